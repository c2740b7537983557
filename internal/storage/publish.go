package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// Artifact is what a batch leaves behind in storage.
type Artifact struct {
	FileName      string
	LocalPath     string
	ObjectURL     string
	OriginalFiles []string
}

// Publisher merges a batch and uploads the merged PDF.
type Publisher struct {
	uploader Uploader
	cfg      common.StorageConfig
	now      func() time.Time
	logger   *slog.Logger
}

func NewPublisher(uploader Uploader, cfg common.StorageConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{uploader: uploader, cfg: cfg, now: time.Now, logger: logger}
}

// Publish returns ErrNothingToMerge when the batch has no PDF; callers may
// treat that as "nothing to store".
func (p *Publisher) Publish(ctx context.Context, files []string) (Artifact, error) {
	log := common.LoggerFrom(ctx, p.logger)
	merged, err := MergePDFs(ctx, files, p.cfg.MergeDir, p.now().UTC(), log)
	if err != nil {
		return Artifact{OriginalFiles: files}, err
	}
	art := Artifact{FileName: merged.Name, LocalPath: merged.Path, OriginalFiles: merged.Inputs}
	if p.uploader == nil {
		return art, nil
	}
	up, err := p.uploader.Upload(ctx, merged.Path, ObjectKey(p.cfg.Prefix, merged.Name))
	if err != nil {
		return art, err
	}
	art.ObjectURL = up.URL
	return art, nil
}
