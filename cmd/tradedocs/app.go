package main

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/textract"

	"github.com/joseph-ayodele/tradedocs/internal/classify"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/extract"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
	"github.com/joseph-ayodele/tradedocs/internal/llm/openai"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
	"github.com/joseph-ayodele/tradedocs/internal/storage"
	"github.com/joseph-ayodele/tradedocs/internal/summarize"
)

// app holds the clients built once per process and shared by every batch.
type app struct {
	cfg        *common.Config
	logger     *slog.Logger
	pipeline   *pipeline.Orchestrator
	summarizer *summarize.Summarizer
	publisher  *storage.Publisher     // nil when storage is disabled
	store      repository.ReportStore // nil when persistence is disabled
}

func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, error) {
	gen, err := newGenerator(cfg, logger)
	if err != nil {
		return nil, err
	}
	analyzer, err := newAnalyzer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	registry, err := extract.NewBuiltinRegistry(gen, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		pipeline: pipeline.New(analyzer, classify.New(gen, logger), registry, logger,
			pipeline.WithWorkers(cfg.Pipeline.Workers)),
		summarizer: summarize.New(gen, logger),
	}

	if cfg.Storage.Enabled {
		awsCfg, err := storage.NewAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		up, err := storage.NewS3Uploader(awsCfg, cfg.Storage.Bucket, cfg.AWS.Endpoint, logger)
		if err != nil {
			return nil, err
		}
		a.publisher = storage.NewPublisher(up, cfg.Storage, logger)
	}

	store, err := repository.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.store = store

	logger.Info("app.ready",
		"ocr", cfg.OCR.Provider,
		"llm", cfg.LLM.Provider,
		"model", cfg.LLM.ModelName(),
		"workers", cfg.Pipeline.Workers,
		"storage", cfg.Storage.Enabled,
		"database", cfg.Database.Driver,
	)
	return a, nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("app.store.close_failed", "error", err)
	}
}

func newGenerator(cfg *common.Config, logger *slog.Logger) (llm.Generator, error) {
	gen, err := openai.NewGenerator(openai.ConfigFrom(cfg.LLM), logger)
	if err != nil {
		return nil, err
	}
	return gen, nil
}

func newAnalyzer(ctx context.Context, cfg *common.Config, logger *slog.Logger) (ocr.Analyzer, error) {
	if cfg.OCR.Provider == "local" {
		return ocr.NewLocalAnalyzer(ocr.LocalConfigFrom(cfg.OCR), logger), nil
	}
	awsCfg, err := storage.NewAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	return ocr.NewTextractAnalyzer(textract.NewFromConfig(awsCfg), ocr.TextractConfig{
		Timeout:     cfg.OCR.Timeout,
		MaxAttempts: cfg.OCR.MaxAttempts,
	}, logger), nil
}
