package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
	"github.com/joseph-ayodele/tradedocs/internal/schema"
)

// SchemaExtractor is the single extraction engine, parameterized by one
// document type's schema and instructions.
type SchemaExtractor struct {
	cfg    schema.Config
	gen    llm.Generator
	system string
	strict *jsonschema.Schema
	logger *slog.Logger
}

// New builds an extractor for cfg. The prompt and the strict JSON Schema are
// prepared once here.
func New(cfg schema.Config, gen llm.Generator, logger *slog.Logger) (*SchemaExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Schema == nil {
		return nil, fmt.Errorf("extract: %s has no schema", cfg.Type)
	}
	system, err := BuildSystemPrompt(cfg)
	if err != nil {
		return nil, err
	}
	strict, err := llm.CompileSchema(schema.JSONSchema(cfg.Schema))
	if err != nil {
		return nil, fmt.Errorf("extract: %s: %w", cfg.Type, err)
	}
	return &SchemaExtractor{
		cfg:    cfg,
		gen:    gen,
		system: system,
		strict: strict,
		logger: logger.With("doc_type", cfg.Type),
	}, nil
}

func (e *SchemaExtractor) Type() constants.DocumentType { return e.cfg.Type }

// SystemPrompt returns the instructions sent to the generator.
func (e *SchemaExtractor) SystemPrompt() string { return e.system }

// Extract produces a conformed record or a failure record; it never returns
// an error.
func (e *SchemaExtractor) Extract(ctx context.Context, doc ocr.NormalizedDocument) ExtractionRecord {
	start := time.Now()
	log := common.LoggerFrom(ctx, e.logger)
	log.Debug("extract.start", "lines", len(doc.Lines))

	payload, err := llm.MarshalPayload(doc.ForPrompt())
	if err != nil {
		return e.fail("", err, log)
	}

	raw, err := e.gen.Generate(ctx, e.system, payload)
	if err != nil {
		log.Error("extract.generate.failed", "error", err)
		return e.fail("", err, log)
	}

	obj, err := llm.DecodeObject(raw)
	if err != nil {
		var de *llm.DecodeError
		if errors.As(err, &de) {
			log.Warn("extract.decode.failed", "reason", de.Reason, "raw_len", len(raw))
		}
		return e.fail(raw, err, log)
	}

	rec, rep := schema.Conform(e.cfg.Schema, obj)
	if len(rep.Dropped) > 0 {
		log.Warn("extract.conform.dropped_keys", "keys", rep.Dropped)
	}
	if len(rep.Backfilled) > 0 {
		log.Warn("extract.conform.backfilled",
			"kind", constants.ErrSchemaViolation,
			"keys", rep.Backfilled,
		)
	}
	if len(rep.Reset) > 0 {
		log.Warn("extract.conform.reset", "keys", rep.Reset)
	}

	if err := llm.ValidateValue(e.strict, rec); err != nil {
		log.Error("extract.schema_validation_failed", "error", err)
		return e.fail(raw, err, log)
	}

	log.Info("extract.ok",
		"fields", e.cfg.Schema.Len(),
		"backfilled", len(rep.Backfilled),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Succeeded(rec)
}

func (e *SchemaExtractor) fail(raw string, err error, log *slog.Logger) ExtractionRecord {
	log.Warn("extract.failed", "error_kind", e.cfg.ErrorKind, "error", err)
	return Failed(Failure{
		Error:          e.cfg.ErrorKind,
		RawModelOutput: raw,
		Detail:         err.Error(),
	})
}
