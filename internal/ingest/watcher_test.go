package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextBatch(t *testing.T, ch <-chan Batch) Batch {
	t.Helper()
	select {
	case b, ok := <-ch:
		require.True(t, ok, "batch channel closed")
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
		return Batch{}
	}
}

func TestWatch_GroupsEventsPerWindow(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, _, err := Watch(ctx, WatchConfig{Roots: []string{dir}, Debounce: 200 * time.Millisecond, SkipHidden: true}, nil)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "2_awb.pdf"), "awb")
	writeFile(t, filepath.Join(dir, "1_invoice.pdf"), "invoice")
	writeFile(t, filepath.Join(dir, "readme.md"), "skip")
	writeFile(t, filepath.Join(dir, ".tmp.pdf"), "skip")

	b := nextBatch(t, batches)
	assert.Equal(t, []string{filepath.Join(dir, "1_invoice.pdf"), filepath.Join(dir, "2_awb.pdf")}, b.Files)
	assert.NotEmpty(t, b.ID)

	// same content again is not re-emitted; new content is
	writeFile(t, filepath.Join(dir, "3_awb_again.pdf"), "awb")
	writeFile(t, filepath.Join(dir, "4_lc.pdf"), "lc")
	b = nextBatch(t, batches)
	assert.Equal(t, []string{filepath.Join(dir, "4_lc.pdf")}, b.Files)
}

func TestWatch_InitialScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "existing.png"), "co")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, _, err := Watch(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true, Debounce: time.Second}, nil)
	require.NoError(t, err)

	b := nextBatch(t, batches)
	assert.Equal(t, []string{filepath.Join(dir, "existing.png")}, b.Files)
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	batches, errs, err := Watch(ctx, WatchConfig{Roots: []string{t.TempDir()}}, nil)
	require.NoError(t, err)
	cancel()

	src := NewChannelSource(batches)
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	_, open := <-errs
	assert.False(t, open)
}

func TestWatch_RequiresRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
