package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// ScanOptions controls which files a directory scan picks up.
type ScanOptions struct {
	Recursive  bool
	SkipHidden bool
}

// ScanDirectory lists allowed files under root sorted by path. Files whose
// content hash was already seen in this scan are reported as deduplicated
// and left out of the accepted list.
func ScanDirectory(ctx context.Context, root string, opts ScanOptions) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError(common.CodeInvalidInput, "root path is required", common.ErrInvalidInput)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, DirStats{}, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, DirStats{}, common.NewAppError(common.CodeInvalidInput, root+" is not a directory", common.ErrInvalidInput)
	}

	var paths []string
	var stats DirStats
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		if opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, common.WrapError(err, "walk "+root)
	}
	sort.Strings(paths)

	seen := map[string]string{}
	results := make([]FileResult, 0, len(paths))
	for _, p := range paths {
		sum, err := HashFile(p)
		if err != nil {
			results = append(results, FileResult{Path: p, Err: err.Error()})
			stats.Failed++
			continue
		}
		r := FileResult{Path: p, HashHex: sum}
		if _, dup := seen[sum]; dup {
			r.Deduplicated = true
			stats.Deduplicated++
		} else {
			seen[sum] = p
			stats.Accepted++
		}
		results = append(results, r)
	}
	return results, stats, nil
}

// Accepted returns the paths of results that were neither failed nor duplicates.
func Accepted(results []FileResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err == "" && !r.Deduplicated {
			out = append(out, r.Path)
		}
	}
	return out
}

// HashFile returns the hex sha256 of the file content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// AllowedExt reports whether ext (with or without the dot) is an accepted input type.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden reports whether the base name starts with a dot.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// DirectorySource yields a single batch with the accepted files of Root.
type DirectorySource struct {
	Root    string
	Options ScanOptions
	Logger  *slog.Logger

	done bool
}

func NewDirectorySource(root string, opts ScanOptions, logger *slog.Logger) *DirectorySource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectorySource{Root: root, Options: opts, Logger: logger}
}

func (s *DirectorySource) Next(ctx context.Context) (Batch, error) {
	if s.done {
		return Batch{}, ErrExhausted
	}
	s.done = true

	start := time.Now()
	results, stats, err := ScanDirectory(ctx, s.Root, s.Options)
	if err != nil {
		s.Logger.Error("ingest.scan.failed", "root", s.Root, "error", err)
		return Batch{}, err
	}
	for _, r := range results {
		switch {
		case r.Err != "":
			s.Logger.Warn("ingest.file.unreadable", "path", r.Path, "error", r.Err)
		case r.Deduplicated:
			s.Logger.Info("ingest.file.duplicate", "path", r.Path, "sha256", r.HashHex)
		}
	}
	files := Accepted(results)
	s.Logger.Info("ingest.scan.ok",
		"root", s.Root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"accepted", stats.Accepted,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if len(files) == 0 {
		return Batch{}, common.NewAppError(common.CodeInvalidInput, "no supported files in "+s.Root, common.ErrNotFound)
	}
	return Batch{ID: uuid.NewString(), Root: s.Root, Files: files, CreatedAt: time.Now().UTC()}, nil
}
