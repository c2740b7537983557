// Package async runs batch handlers on a bounded worker pool.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/tradedocs/internal/ingest"
)

// Handler processes one batch. Returned errors are logged by the queue.
type Handler func(ctx context.Context, b ingest.Batch) error

type BatchQueue struct {
	handle  Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan ingest.Batch
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*BatchQueue)

func WithWorkers(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.ch = make(chan ingest.Batch, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *BatchQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewBatchQueue starts the workers. Each batch runs with a fresh context
// bounded by the process timeout.
func NewBatchQueue(handle Handler, logger *slog.Logger, opts ...Option) *BatchQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &BatchQueue{
		handle:  handle,
		logger:  logger,
		workers: 1,
		timeout: 15 * time.Minute,
		ch:      make(chan ingest.Batch, 16),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *BatchQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.start", "worker_id", workerID)

				for b := range q.ch {
					start := time.Now()
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.handle(ctx, b)
					cancel()

					if err != nil {
						q.logger.Error("queue.batch.failed", "worker_id", workerID, "batch_id", b.ID, "error", err)
					} else {
						q.logger.Info("queue.batch.ok",
							"worker_id", workerID,
							"batch_id", b.ID,
							"files", len(b.Files),
							"elapsed_ms", time.Since(start).Milliseconds(),
						)
					}
				}

				q.logger.Debug("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue blocks while the queue is full. It returns false once Shutdown
// has been called or ctx is done.
func (q *BatchQueue) Enqueue(ctx context.Context, b ingest.Batch) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "batch_id", b.ID)
		return false
	}
	select {
	case q.ch <- b:
		q.logger.Info("queue.enqueue.ok", "batch_id", b.ID, "files", len(b.Files))
		return true
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "batch_id", b.ID)
	select {
	case q.ch <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// Shutdown stops intake and waits for queued batches until ctx is done.
func (q *BatchQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.ok")
	}
}
