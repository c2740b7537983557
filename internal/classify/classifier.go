// Package classify assigns one document type from the closed set to a
// normalized document.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
)

// ErrUnresolved is matched by every ClassificationError.
var ErrUnresolved = errors.New("document type unresolved")

// ClassificationError records generator output that named no known type.
type ClassificationError struct {
	Raw string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("unexpected classification result: %q", e.Raw)
}

func (e *ClassificationError) Is(target error) bool { return target == ErrUnresolved }

// Result is either a resolved Type or an Err describing the rejected output.
type Result struct {
	Type constants.DocumentType
	Raw  string
	Err  *ClassificationError
}

func (r Result) Resolved() bool { return r.Err == nil && r.Type != "" }

// Classifier is stateless; determinism comes from the generator.
type Classifier struct {
	gen    llm.Generator
	system string
	logger *slog.Logger
}

func New(gen llm.Generator, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{gen: gen, system: SystemPrompt(), logger: logger}
}

// Classify returns a Result for any generator answer. The error is non-nil
// only when the generator itself failed.
func (c *Classifier) Classify(ctx context.Context, doc ocr.NormalizedDocument) (Result, error) {
	start := time.Now()
	log := common.LoggerFrom(ctx, c.logger)

	payload, err := llm.MarshalPayload(doc.ForPrompt())
	if err != nil {
		return Result{}, err
	}
	out, err := c.gen.Generate(ctx, c.system, payload)
	if err != nil {
		log.Error("classify.generate.failed", "error", err)
		return Result{}, err
	}

	label := normalizeLabel(out)
	dt, ok := constants.ParseDocumentType(label)
	if !ok {
		log.Warn("classify.unresolved",
			"raw", out,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{Raw: out, Err: &ClassificationError{Raw: out}}, nil
	}

	log.Info("classify.ok",
		"doc_type", dt,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Type: dt, Raw: out}, nil
}

// normalizeLabel strips whitespace and wrapping quotes or backticks. The
// label itself is not case-folded or fuzzy-matched.
func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`\"'")
	return strings.TrimSpace(s)
}
