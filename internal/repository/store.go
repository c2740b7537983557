// Package repository persists compliance reports.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// ReportRecord is one persisted batch outcome.
type ReportRecord struct {
	ID               string
	FileName         string
	ObjectURL        string
	OriginalFiles    []string
	BatchID          string
	ExtractedValues  json.RawMessage // compliance report
	Items            json.RawMessage // batch items
	ProcessingStatus constants.ProcessingStatus
	CreatedAt        time.Time
}

// NewReportRecord marshals the report and items into a record ready to save.
func NewReportRecord(batchID, fileName, objectURL string, originals []string, report, items any) (ReportRecord, error) {
	rep, err := json.Marshal(report)
	if err != nil {
		return ReportRecord{}, fmt.Errorf("marshal report: %w", err)
	}
	its, err := json.Marshal(items)
	if err != nil {
		return ReportRecord{}, fmt.Errorf("marshal items: %w", err)
	}
	if originals == nil {
		originals = []string{}
	}
	return ReportRecord{
		FileName:         fileName,
		ObjectURL:        objectURL,
		OriginalFiles:    originals,
		BatchID:          batchID,
		ExtractedValues:  rep,
		Items:            its,
		ProcessingStatus: constants.ProcessingCompleted,
	}, nil
}

// ReportStore saves records and returns their id. Callers do not retry.
type ReportStore interface {
	SaveReport(ctx context.Context, rec ReportRecord) (string, error)
	GetReport(ctx context.Context, id string) (ReportRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// OpenStore opens the store selected by cfg.Driver. An empty driver means
// persistence is disabled and returns a nil store.
func OpenStore(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (ReportStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "":
		return nil, nil
	case "postgres", "postgresql", "pgx":
		pool, err := Open(ctx, ConfigFrom(cfg), logger)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(pool, logger)
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case "sqlite", "sqlite3":
		s, err := OpenSQLite(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, common.NewAppError(common.CodeConfig, "unknown database driver "+cfg.Driver, common.ErrInvalidInput)
	}
}
