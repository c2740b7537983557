// runocr analyzes one file with the configured analyzer and prints the
// normalized document as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/textract"

	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
	"github.com/joseph-ayodele/tradedocs/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg, err := common.LoadConfig(os.Getenv("TRADEDOCS_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var analyzer ocr.Analyzer
	switch cfg.OCR.Provider {
	case "local":
		analyzer = ocr.NewLocalAnalyzer(ocr.LocalConfigFrom(cfg.OCR), logger)
	default:
		awsCfg, err := storage.NewAWSConfig(ctx, cfg.AWS)
		if err != nil {
			logger.Error("aws config", "error", err)
			os.Exit(1)
		}
		analyzer = ocr.NewTextractAnalyzer(textract.NewFromConfig(awsCfg), ocr.TextractConfig{
			Timeout:     cfg.OCR.Timeout,
			MaxAttempts: cfg.OCR.MaxAttempts,
		}, logger)
	}

	start := time.Now()
	doc, err := analyzer.Analyze(ctx, path)
	if err != nil {
		logger.Error("analyze failed", "file", path, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	logger.Info("analyze ok",
		"file", path,
		"provider", cfg.OCR.Provider,
		"lines", len(doc.Lines),
		"tables", len(doc.Tables),
		"empty", doc.IsEmpty(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
