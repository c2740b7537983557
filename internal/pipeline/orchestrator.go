// Package pipeline runs analyze, classify and extract over a batch of files
// and returns one BatchItem per usable file in input order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/classify"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/extract"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
)

// Classifier resolves the type of a normalized document.
type Classifier interface {
	Classify(ctx context.Context, doc ocr.NormalizedDocument) (classify.Result, error)
}

// Extractors looks up the extractor for a resolved type.
type Extractors interface {
	For(dt constants.DocumentType) (extract.Extractor, bool)
}

type Orchestrator struct {
	analyzer   ocr.Analyzer
	classifier Classifier
	extractors Extractors
	logger     *slog.Logger
	workers    int
	newRunID   func() string
}

type Option func(*Orchestrator)

// WithWorkers bounds the number of files processed concurrently.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRunID overrides run id generation.
func WithRunID(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newRunID = fn
		}
	}
}

func New(analyzer ocr.Analyzer, classifier Classifier, extractors Extractors, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		analyzer:   analyzer,
		classifier: classifier,
		extractors: extractors,
		logger:     logger,
		workers:    1,
		newRunID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type outcome struct {
	done bool
	item *BatchItem
	skip *SkippedFile
	err  error
}

// Run processes files and returns their items in input order. A run id
// already on ctx is reused. A generator
// failure during classification aborts the run. On cancellation the items
// completed so far are returned with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, files []string) (RunResult, error) {
	start := time.Now()
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = o.newRunID()
		ctx = common.WithRunID(ctx, runID)
	}
	log := common.LoggerFrom(ctx, o.logger)
	log.Info("pipeline.run.start", "files", len(files), "workers", o.workers)

	var slots []outcome
	if o.workers > 1 && len(files) > 1 {
		slots = o.runParallel(ctx, files)
	} else {
		slots = o.runSequential(ctx, files)
	}

	res, err := collect(runID, slots)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Error("pipeline.run.failed",
			"error", err,
			"completed", len(res.Items),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res, err
	}
	log.Info("pipeline.run.ok",
		"scanned", res.Stats.Scanned,
		"skipped", res.Stats.Skipped,
		"classified", res.Stats.Classified,
		"unresolved", res.Stats.Unresolved,
		"failed", res.Stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, files []string) []outcome {
	slots := make([]outcome, len(files))
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		slots[i] = o.processFile(ctx, path)
		if slots[i].err != nil {
			break
		}
	}
	return slots
}

// runParallel fills index-addressed slots from a bounded pool. The first
// run-level error stops further scheduling.
func (o *Orchestrator) runParallel(ctx context.Context, files []string) []outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]outcome, len(files))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(o.workers, len(files))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out := o.processFile(ctx, files[i])
				slots[i] = out
				if out.err != nil {
					cancel()
				}
			}
		}()
	}

schedule:
	for i := range files {
		select {
		case <-ctx.Done():
			break schedule
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return slots
}

func (o *Orchestrator) processFile(ctx context.Context, path string) outcome {
	if ctx.Err() != nil {
		return outcome{}
	}
	start := time.Now()
	name := filepath.Base(path)
	ctx = common.WithFileName(ctx, name)
	log := common.LoggerFrom(ctx, o.logger)
	log.Info("pipeline.file.start", "path", path)

	doc, err := o.analyzer.Analyze(ctx, path)
	if ctx.Err() != nil {
		return outcome{}
	}
	if err != nil || doc.IsEmpty() {
		skip := &SkippedFile{FileName: name, Reason: constants.ErrNormalizationEmpty}
		if err != nil {
			skip.Detail = err.Error()
		}
		log.Warn("pipeline.file.skipped", "reason", skip.Reason, "error", err)
		return outcome{done: true, skip: skip}
	}

	res, err := o.classifier.Classify(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{}
		}
		return outcome{err: common.CollaboratorError("generator", fmt.Errorf("classify %s: %w", name, err))}
	}
	if !res.Resolved() {
		item := unresolvedItem(name, res.Raw)
		log.Warn("pipeline.file.unresolved", "raw", res.Raw)
		return outcome{done: true, item: &item}
	}

	ex, ok := o.extractors.For(res.Type)
	if !ok {
		return outcome{err: fmt.Errorf("no extractor registered for %s: %w", res.Type, common.ErrInternal)}
	}
	rec := ex.Extract(ctx, doc)
	if ctx.Err() != nil {
		return outcome{}
	}
	item := resolvedItem(name, res.Type, rec)
	log.Info("pipeline.file.ok",
		"doc_type", res.Type,
		"extracted", rec.OK(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outcome{done: true, item: &item}
}

// collect compacts slots in index order. The error of the lowest failing
// index wins; items after it are still returned when they completed.
func collect(runID string, slots []outcome) (RunResult, error) {
	res := RunResult{RunID: runID, Items: []BatchItem{}, Skipped: []SkippedFile{}}
	var errs []error
	for _, s := range slots {
		if s.err != nil {
			errs = append(errs, s.err)
			continue
		}
		if !s.done {
			continue
		}
		res.Stats.Scanned++
		switch {
		case s.skip != nil:
			res.Stats.Skipped++
			res.Skipped = append(res.Skipped, *s.skip)
		case s.item != nil:
			res.Items = append(res.Items, *s.item)
			if s.item.DocType == nil {
				res.Stats.Unresolved++
				continue
			}
			res.Stats.Classified++
			if rec, ok := s.item.Record(); ok && !rec.OK() {
				res.Stats.Failed++
			}
		}
	}
	if len(errs) > 0 {
		return res, errs[0]
	}
	return res, nil
}

// IsAborted reports whether err ended a run early.
func IsAborted(err error) bool {
	return errors.Is(err, common.ErrCollaborator) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
