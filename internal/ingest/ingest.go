// Package ingest acquires batches of input files from the local filesystem.
package ingest

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned by Source.Next when no further batch will come.
var ErrExhausted = errors.New("no more batches")

// Batch is one ordered set of input paths processed as a run.
type Batch struct {
	ID        string
	Root      string
	Files     []string
	CreatedAt time.Time
}

// Source yields batches until it returns ErrExhausted or ctx is done.
type Source interface {
	Next(ctx context.Context) (Batch, error)
}

// FileResult is the per-file scan outcome.
type FileResult struct {
	Path         string
	HashHex      string
	Deduplicated bool
	Err          string
}

// DirStats summarizes a scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Accepted     uint32
	Deduplicated uint32
	Failed       uint32
}
