package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // emit files already present as the first batch
	Debounce    time.Duration // quiet period that closes a batch
	SkipHidden  bool
}

// Watch emits one Batch per debounce window of create, write and rename
// events on allowed files. Content already emitted in this session is not
// emitted again. Both channels close when ctx is done.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan Batch, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("ingest.watch.failed", "error", "no roots provided")
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.failed", "error", err)
		return nil, nil, err
	}

	var initial []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path)) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			logger.Error("ingest.watch.failed", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	batches := make(chan Batch)
	errCh := make(chan error, 1)
	bw := &batchWindow{cfg: cfg, logger: logger, pending: map[string]struct{}{}, seen: map[string]string{}}
	for _, p := range initial {
		bw.pending[p] = struct{}{}
	}

	go func() {
		defer close(batches)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "error", err)
			}
		}()

		timer := time.NewTimer(time.Hour)
		timer.Stop()
		if len(bw.pending) > 0 {
			timer.Reset(0)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create != 0 {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("ingest.watch.add_failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if !bw.accepts(e) {
					continue
				}
				bw.pending[e.Name] = struct{}{}
				timer.Reset(cfg.Debounce)
			case <-timer.C:
				b, ok := bw.flush(cfg.Roots[0])
				if !ok {
					continue
				}
				select {
				case batches <- b:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	logger.Info("ingest.watch.start", "roots", cfg.Roots, "debounce", cfg.Debounce.String(), "initial", len(initial))
	return batches, errCh, nil
}

// batchWindow accumulates paths between flushes. It is only touched by the
// watch goroutine.
type batchWindow struct {
	cfg     WatchConfig
	logger  *slog.Logger
	pending map[string]struct{}
	seen    map[string]string // sha256 -> first path
}

func (bw *batchWindow) accepts(e fsnotify.Event) bool {
	if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	if bw.cfg.SkipHidden && IsHidden(e.Name) {
		return false
	}
	return AllowedExt(filepath.Ext(e.Name))
}

// flush turns the pending set into a sorted, content-deduplicated batch.
func (bw *batchWindow) flush(root string) (Batch, bool) {
	paths := make([]string, 0, len(bw.pending))
	for p := range bw.pending {
		paths = append(paths, p)
	}
	clear(bw.pending)
	sort.Strings(paths)

	files := make([]string, 0, len(paths))
	for _, p := range paths {
		sum, err := HashFile(p)
		if err != nil {
			// renamed away or removed before the window closed
			bw.logger.Debug("ingest.file.gone", "path", p, "error", err)
			continue
		}
		if first, dup := bw.seen[sum]; dup {
			bw.logger.Info("ingest.file.duplicate", "path", p, "first", first, "sha256", sum)
			continue
		}
		bw.seen[sum] = p
		files = append(files, p)
	}
	if len(files) == 0 {
		return Batch{}, false
	}
	b := Batch{ID: uuid.NewString(), Root: root, Files: files, CreatedAt: time.Now().UTC()}
	bw.logger.Info("ingest.batch.ready", "batch_id", b.ID, "files", len(files))
	return b, true
}

// ChannelSource adapts a batch channel to Source.
type ChannelSource struct {
	ch <-chan Batch
}

func NewChannelSource(ch <-chan Batch) *ChannelSource {
	return &ChannelSource{ch: ch}
}

func (s *ChannelSource) Next(ctx context.Context) (Batch, error) {
	select {
	case <-ctx.Done():
		return Batch{}, ctx.Err()
	case b, ok := <-s.ch:
		if !ok {
			return Batch{}, ErrExhausted
		}
		return b, nil
	}
}
