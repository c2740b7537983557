package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// ErrNothingToMerge is returned when a batch holds no readable PDF.
var ErrNothingToMerge = errors.New("no pdf files to merge")

// MergeResult describes one merged artifact.
type MergeResult struct {
	Path    string
	Name    string
	Inputs  []string
	Skipped []string
	Pages   int
}

// MergedName returns Merged_<YYYYMMDD_HHMMSS_micro>.pdf for t.
func MergedName(t time.Time) string {
	return fmt.Sprintf("Merged_%s_%06d.pdf", t.Format("20060102_150405"), t.Nanosecond()/1000)
}

// MergePDFs concatenates the PDF files among paths, in order, into dir.
// Images, missing files and PDFs that fail to parse are skipped.
func MergePDFs(ctx context.Context, paths []string, dir string, now time.Time, logger *slog.Logger) (MergeResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var res MergeResult
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return MergeResult{}, err
		}
		if constants.MapExtToFormat(constants.NormalizeExt(filepath.Ext(p))) != constants.PDF {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		n, err := pageCount(p, conf)
		if err != nil {
			logger.Warn("storage.merge.skip", "path", p, "error", err)
			res.Skipped = append(res.Skipped, p)
			continue
		}
		res.Inputs = append(res.Inputs, p)
		res.Pages += n
	}
	if len(res.Inputs) == 0 {
		return res, ErrNothingToMerge
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create merge dir: %w", err)
	}
	res.Name = MergedName(now)
	res.Path = filepath.Join(dir, res.Name)
	if err := api.MergeCreateFile(res.Inputs, res.Path, false, conf); err != nil {
		logger.Error("storage.merge.failed", "inputs", len(res.Inputs), "error", err)
		return res, fmt.Errorf("merge pdfs: %w", err)
	}

	logger.Info("storage.merge.ok",
		"file", res.Name,
		"inputs", len(res.Inputs),
		"skipped", len(res.Skipped),
		"pages", res.Pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func pageCount(path string, conf *model.Configuration) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, conf)
}
