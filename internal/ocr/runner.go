package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes one external tool. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ErrToolMissing is returned when a configured binary is not on PATH.
var ErrToolMissing = errors.New("ocr tool not installed")

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		r.logger.Error("ocr.exec.missing", "tool", name, "error", err)
		return nil, nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}

	start := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err := cmd.Run()

	log := r.logger.With("tool", name, "elapsed_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.Error("ocr.exec.failed", "args", args, "error", err, "stderr", truncate(stderr.String(), 8<<10))
		return stdout.Bytes(), stderr.Bytes(), err
	}
	log.Debug("ocr.exec.ok", "stdout_bytes", stdout.Len())
	return stdout.Bytes(), stderr.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
