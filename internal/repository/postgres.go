package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS trade_reports (
	id                uuid PRIMARY KEY,
	file_name         text NOT NULL DEFAULT '',
	object_url        text NOT NULL DEFAULT '',
	original_files    text[] NOT NULL DEFAULT '{}',
	batch_id          text NOT NULL DEFAULT '',
	extracted_values  jsonb NOT NULL,
	items             jsonb NOT NULL,
	processing_status text NOT NULL,
	created_at        timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS trade_reports_batch_id_idx ON trade_reports (batch_id);`

// pgxConn is the part of *pgxpool.Pool the store uses.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	db     pgxConn
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: pool, pool: pool, logger: logger}
}

// Migrate creates the reports table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, pgSchema); err != nil {
		s.logger.Error("db.migrate.failed", "error", err)
		return common.NewAppError(common.CodeDatabase, "migrate", err)
	}
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, rec ReportRecord) (string, error) {
	start := time.Now()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.OriginalFiles == nil {
		rec.OriginalFiles = []string{}
	}

	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO trade_reports
			(id, file_name, object_url, original_files, batch_id, extracted_values, items, processing_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text`,
		rec.ID, rec.FileName, rec.ObjectURL, rec.OriginalFiles, rec.BatchID,
		[]byte(rec.ExtractedValues), []byte(rec.Items), string(rec.ProcessingStatus), rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		s.logger.Error("db.report.save_failed", "batch_id", rec.BatchID, "error", err)
		return "", common.NewAppError(common.CodeDatabase, "save report", errors.Join(common.ErrDatabase, err))
	}
	s.logger.Info("db.report.saved", "id", id, "batch_id", rec.BatchID, "elapsed_ms", time.Since(start).Milliseconds())
	return id, nil
}

func (s *PostgresStore) GetReport(ctx context.Context, id string) (ReportRecord, error) {
	var rec ReportRecord
	var status string
	var values, items []byte
	err := s.db.QueryRow(ctx, `
		SELECT id::text, file_name, object_url, original_files, batch_id, extracted_values, items, processing_status, created_at
		FROM trade_reports WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.FileName, &rec.ObjectURL, &rec.OriginalFiles, &rec.BatchID, &values, &items, &status, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ReportRecord{}, common.NewAppError(common.CodeDatabase, "report "+id, common.ErrNotFound)
	}
	if err != nil {
		return ReportRecord{}, common.NewAppError(common.CodeDatabase, "get report", errors.Join(common.ErrDatabase, err))
	}
	rec.ExtractedValues = values
	rec.Items = items
	rec.ProcessingStatus = processingStatus(status)
	return rec, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return HealthCheck(ctx, s.db, 2*time.Second, s.logger)
}

func (s *PostgresStore) Close() error {
	Close(s.pool, s.logger)
	return nil
}
