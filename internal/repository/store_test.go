package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
)

func sampleRecord(t *testing.T) ReportRecord {
	t.Helper()
	rec, err := NewReportRecord("batch-1", "Merged_20260314_090507_000000.pdf",
		"https://docs.s3.ap-south-1.amazonaws.com/merged/Merged_20260314_090507_000000.pdf",
		[]string{"lc.pdf", "invoice.pdf"},
		map[string]any{"overall_status": "COMPLIANT", "summary": []string{"ok"}},
		[]map[string]any{{"file_name": "lc.pdf", "doc_type": "LETTER_OF_CREDIT"}},
	)
	require.NoError(t, err)
	return rec
}

func exerciseStore(t *testing.T, s ReportStore) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	rec := sampleRecord(t)
	id, err := s.SaveReport(ctx, rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, rec.FileName, got.FileName)
	assert.Equal(t, rec.ObjectURL, got.ObjectURL)
	assert.Equal(t, []string{"lc.pdf", "invoice.pdf"}, got.OriginalFiles)
	assert.Equal(t, "batch-1", got.BatchID)
	assert.Equal(t, constants.ProcessingCompleted, got.ProcessingStatus)
	assert.JSONEq(t, string(rec.ExtractedValues), string(got.ExtractedValues))
	assert.JSONEq(t, string(rec.Items), string(got.Items))
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)

	_, err = s.GetReport(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "reports.db"), nil)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore_KeepsCallerID(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "reports.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	rec := sampleRecord(t)
	rec.ID = "fixed-id"
	id, err := s.SaveReport(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	_, err = s.SaveReport(context.Background(), rec)
	assert.ErrorIs(t, err, common.ErrDatabase)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("TRADEDOCS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TRADEDOCS_TEST_PG_DSN not set")
	}
	s, err := OpenStore(context.Background(), common.DatabaseConfig{Driver: "postgres", DSN: dsn, DialTimeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpenStore_Drivers(t *testing.T) {
	s, err := OpenStore(context.Background(), common.DatabaseConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = OpenStore(context.Background(), common.DatabaseConfig{Driver: "mongo"}, nil)
	assert.True(t, common.IsAppError(err, common.CodeConfig))

	_, err = OpenStore(context.Background(), common.DatabaseConfig{Driver: "sqlite"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	s, err = OpenStore(context.Background(), common.DatabaseConfig{Driver: "SQLite", DSN: filepath.Join(t.TempDir(), "r.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())
}

func TestNewReportRecord_MarshalsPayloads(t *testing.T) {
	rec, err := NewReportRecord("b", "", "", nil, map[string]int{"a": 1}, []int{})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`{"a":1}`), rec.ExtractedValues)
	assert.Equal(t, json.RawMessage(`[]`), rec.Items)
	assert.Equal(t, []string{}, rec.OriginalFiles)
	assert.Equal(t, constants.ProcessingCompleted, rec.ProcessingStatus)

	_, err = NewReportRecord("b", "", "", nil, make(chan int), nil)
	assert.Error(t, err)
}
