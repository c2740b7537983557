package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func inbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b_invoice.pdf"), "invoice")
	writeFile(t, filepath.Join(dir, "a_awb.PNG"), "awb")
	writeFile(t, filepath.Join(dir, "c_awb_copy.jpg"), "awb")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, ".scan.pdf"), "hidden")
	writeFile(t, filepath.Join(dir, "nested", "d_lc.tiff"), "lc")
	return dir
}

func TestScanDirectory_SortsFiltersAndDeduplicates(t *testing.T) {
	dir := inbox(t)

	results, stats, err := ScanDirectory(context.Background(), dir, ScanOptions{SkipHidden: true})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, filepath.Join(dir, "a_awb.PNG"), results[0].Path)
	assert.Equal(t, filepath.Join(dir, "b_invoice.pdf"), results[1].Path)
	assert.Equal(t, filepath.Join(dir, "c_awb_copy.jpg"), results[2].Path)
	assert.True(t, results[2].Deduplicated)
	assert.Equal(t, results[0].HashHex, results[2].HashHex)

	assert.Equal(t, []string{results[0].Path, results[1].Path}, Accepted(results))
	assert.Equal(t, DirStats{Scanned: 4, Matched: 3, Accepted: 2, Deduplicated: 1}, stats)
}

func TestScanDirectory_RecursiveAndHidden(t *testing.T) {
	dir := inbox(t)

	results, _, err := ScanDirectory(context.Background(), dir, ScanOptions{Recursive: true})
	require.NoError(t, err)
	paths := Accepted(results)
	assert.Contains(t, paths, filepath.Join(dir, "nested", "d_lc.tiff"))
	assert.Contains(t, paths, filepath.Join(dir, ".scan.pdf"))
}

func TestScanDirectory_RejectsBadRoot(t *testing.T) {
	_, _, err := ScanDirectory(context.Background(), " ", ScanOptions{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	file := filepath.Join(t.TempDir(), "x.pdf")
	writeFile(t, file, "x")
	_, _, err = ScanDirectory(context.Background(), file, ScanOptions{})
	assert.True(t, common.IsAppError(err, common.CodeInvalidInput))

	_, _, err = ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"), ScanOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDirectorySource_YieldsOneBatch(t *testing.T) {
	dir := inbox(t)
	src := NewDirectorySource(dir, ScanOptions{SkipHidden: true}, nil)

	b, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, dir, b.Root)
	assert.Len(t, b.Files, 2)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestDirectorySource_EmptyInbox(t *testing.T) {
	src := NewDirectorySource(t.TempDir(), ScanOptions{}, nil)
	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}
