package common

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	ContextKeyRunID    contextKey = "run_id"
	ContextKeyFileName contextKey = "file_name"
)

// WithRunID adds a pipeline run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return v
	}
	return ""
}

// WithFileName records the source file currently being processed.
func WithFileName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyFileName, name)
}

// FileNameFromContext extracts the source file name from context
func FileNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyFileName).(string); ok {
		return v
	}
	return ""
}

// LoggerFrom decorates logger with the run and file carried by ctx.
func LoggerFrom(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RunIDFromContext(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	if f := FileNameFromContext(ctx); f != "" {
		logger = logger.With("file", f)
	}
	return logger
}
