package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/export"
	"github.com/joseph-ayodele/tradedocs/internal/ingest"
	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
	"github.com/joseph-ayodele/tradedocs/internal/storage"
	"github.com/joseph-ayodele/tradedocs/internal/summarize"
)

// batchOutput is what one processed batch produced.
type batchOutput struct {
	BatchID  string                     `json:"batch_id"`
	RecordID string                     `json:"record_id,omitempty"`
	Merged   string                     `json:"merged_file,omitempty"`
	URL      string                     `json:"object_url,omitempty"`
	Items    []pipeline.BatchItem       `json:"items"`
	Skipped  []pipeline.SkippedFile     `json:"skipped"`
	Report   summarize.ComplianceReport `json:"report"`
}

// processBatch runs the pipeline and the summary for b. Merge, upload,
// persistence and export are side outputs: their failures are logged and
// do not fail the batch.
func (a *app) processBatch(ctx context.Context, b ingest.Batch) (batchOutput, error) {
	start := time.Now()
	ctx = common.WithRunID(ctx, b.ID)
	log := common.LoggerFrom(ctx, a.logger)
	out := batchOutput{BatchID: b.ID}

	res, err := a.pipeline.Run(ctx, b.Files)
	out.Items, out.Skipped = res.Items, res.Skipped
	if err != nil {
		if pipeline.IsAborted(err) {
			log.Warn("batch.aborted", "error", err, "completed", len(res.Items))
		}
		return out, err
	}

	report, err := a.summarizer.Summarize(ctx, res.Items)
	if err != nil {
		return out, err
	}
	out.Report = report

	art := a.publish(ctx, b)
	out.Merged, out.URL = art.FileName, art.ObjectURL
	out.RecordID = a.persist(ctx, b, art, out)
	a.export(ctx, b, out)

	log.Info("batch.ok",
		"files", len(b.Files),
		"items", len(out.Items),
		"overall_status", report.OverallStatus,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (a *app) publish(ctx context.Context, b ingest.Batch) storage.Artifact {
	if a.publisher == nil {
		return storage.Artifact{}
	}
	log := common.LoggerFrom(ctx, a.logger)
	art, err := a.publisher.Publish(ctx, b.Files)
	switch {
	case errors.Is(err, storage.ErrNothingToMerge):
		log.Info("batch.publish.skipped", "reason", "no pdf in batch")
	case err != nil:
		log.Error("batch.publish.failed", "error", err)
	}
	return art
}

func (a *app) persist(ctx context.Context, b ingest.Batch, art storage.Artifact, out batchOutput) string {
	if a.store == nil {
		return ""
	}
	log := common.LoggerFrom(ctx, a.logger)
	originals := art.OriginalFiles
	if len(originals) == 0 {
		originals = b.Files
	}
	rec, err := repository.NewReportRecord(b.ID, art.FileName, art.ObjectURL, baseNames(originals), out.Report, out.Items)
	if err != nil {
		log.Error("batch.persist.failed", "error", err)
		return ""
	}
	id, err := a.store.SaveReport(ctx, rec)
	if err != nil {
		log.Error("batch.persist.failed", "error", err)
		return ""
	}
	log.Info("batch.persist.ok", "record_id", id)
	return id
}

// export writes the workbook to export.path. A path without an .xlsx
// extension is a directory that receives one workbook per batch.
func (a *app) export(ctx context.Context, b ingest.Batch, out batchOutput) {
	target := a.cfg.Export.Path
	if target == "" {
		return
	}
	if !strings.EqualFold(filepath.Ext(target), ".xlsx") {
		target = filepath.Join(target, b.ID+".xlsx")
	}
	log := common.LoggerFrom(ctx, a.logger)
	if err := export.WriteWorkbookFile(target, out.Items, out.Report, log); err != nil {
		log.Error("batch.export.failed", "path", target, "error", err)
	}
}

func baseNames(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, filepath.Base(p))
	}
	return out
}
