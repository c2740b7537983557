package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trade_reports (
	id                TEXT PRIMARY KEY,
	file_name         TEXT NOT NULL DEFAULT '',
	object_url        TEXT NOT NULL DEFAULT '',
	original_files    TEXT NOT NULL DEFAULT '[]',
	batch_id          TEXT NOT NULL DEFAULT '',
	extracted_values  TEXT NOT NULL,
	items             TEXT NOT NULL,
	processing_status TEXT NOT NULL,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS trade_reports_batch_id_idx ON trade_reports (batch_id);`

// SQLiteStore keeps reports in a local file, for single-node use and tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, common.NewAppError(common.CodeConfig, "database.dsn is required for sqlite", common.ErrInvalidInput)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "open sqlite", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=10000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, common.NewAppError(common.CodeDatabase, "init sqlite", err)
		}
	}
	logger.Info("db.connect.ok", "driver", "sqlite", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, rec ReportRecord) (string, error) {
	start := time.Now()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	originals := rec.OriginalFiles
	if originals == nil {
		originals = []string{}
	}
	files, err := json.Marshal(originals)
	if err != nil {
		return "", fmt.Errorf("marshal original files: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trade_reports
			(id, file_name, object_url, original_files, batch_id, extracted_values, items, processing_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FileName, rec.ObjectURL, string(files), rec.BatchID,
		string(rec.ExtractedValues), string(rec.Items), string(rec.ProcessingStatus),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.logger.Error("db.report.save_failed", "batch_id", rec.BatchID, "error", err)
		return "", common.NewAppError(common.CodeDatabase, "save report", errors.Join(common.ErrDatabase, err))
	}
	s.logger.Info("db.report.saved", "id", rec.ID, "batch_id", rec.BatchID, "elapsed_ms", time.Since(start).Milliseconds())
	return rec.ID, nil
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (ReportRecord, error) {
	var rec ReportRecord
	var files, values, items, status, created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, object_url, original_files, batch_id, extracted_values, items, processing_status, created_at
		FROM trade_reports WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.FileName, &rec.ObjectURL, &files, &rec.BatchID, &values, &items, &status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ReportRecord{}, common.NewAppError(common.CodeDatabase, "report "+id, common.ErrNotFound)
	}
	if err != nil {
		return ReportRecord{}, common.NewAppError(common.CodeDatabase, "get report", errors.Join(common.ErrDatabase, err))
	}
	if err := json.Unmarshal([]byte(files), &rec.OriginalFiles); err != nil {
		return ReportRecord{}, fmt.Errorf("decode original files: %w", err)
	}
	rec.ExtractedValues = json.RawMessage(values)
	rec.Items = json.RawMessage(items)
	rec.ProcessingStatus = processingStatus(status)
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return ReportRecord{}, fmt.Errorf("decode created_at: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return common.NewAppError(common.CodeDatabase, "ping", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func processingStatus(s string) constants.ProcessingStatus {
	if s == string(constants.ProcessingFailed) {
		return constants.ProcessingFailed
	}
	return constants.ProcessingCompleted
}
