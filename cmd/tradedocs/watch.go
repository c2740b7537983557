package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/internal/async"
	"github.com/joseph-ayodele/tradedocs/internal/ingest"
)

var (
	watchInitial  bool
	watchDebounce time.Duration
	watchWorkers  int
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and process each burst of new files as a batch",
	Long: `Watch groups files created or written in dir (default ".") into one batch
per debounce window and prints one compliance report per batch. Content
already seen in this session is not processed again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		debounce := cfg.Ingest.Debounce
		if cmd.Flags().Changed("debounce") {
			debounce = watchDebounce
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		batches, _, err := ingest.Watch(ctx, ingest.WatchConfig{
			Roots:       []string{dir},
			InitialScan: watchInitial,
			Debounce:    debounce,
			SkipHidden:  true,
		}, logger)
		if err != nil {
			return err
		}

		var outMu sync.Mutex
		q := async.NewBatchQueue(func(ctx context.Context, b ingest.Batch) error {
			out, err := a.processBatch(ctx, b)
			outMu.Lock()
			defer outMu.Unlock()
			if err != nil {
				printError(cmd.ErrOrStderr(), err)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out.Report)
		}, logger, async.WithWorkers(watchWorkers))

		src := ingest.NewChannelSource(batches)
		for {
			b, err := src.Next(ctx)
			if err != nil {
				if !errors.Is(err, ingest.ErrExhausted) && ctx.Err() == nil {
					logger.Error("watch.source.failed", "error", err)
				}
				break
			}
			if !q.Enqueue(ctx, b) {
				break
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		q.Shutdown(shutdownCtx)
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "process files already present as the first batch")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 5*time.Second, "quiet period that closes a batch (overrides ingest.debounce)")
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 1, "batches processed concurrently")
}
