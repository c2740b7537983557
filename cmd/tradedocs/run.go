package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/internal/ingest"
)

var (
	runRecursive bool
	runFull      bool
)

var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Process the documents in a directory as one batch",
	Long: `Run scans dir (default ".") for pdf, png, jpg, jpeg, tif and tiff files,
processes them as one batch and prints the compliance report as JSON.
With --full the batch items and skipped files are printed as well.`,
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
		recursive := cfg.Ingest.Recursive
		if cmd.Flags().Changed("recursive") {
			recursive = runRecursive
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		src := ingest.NewDirectorySource(dir, ingest.ScanOptions{Recursive: recursive, SkipHidden: true}, logger)
		b, err := src.Next(ctx)
		if err != nil {
			return err
		}
		out, err := a.processBatch(ctx, b)
		if err != nil {
			return err
		}
		if runFull {
			return writeJSON(cmd.OutOrStdout(), out)
		}
		return writeJSON(cmd.OutOrStdout(), out.Report)
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runRecursive, "recursive", "r", false, "scan subdirectories (overrides ingest.recursive)")
	runCmd.Flags().BoolVar(&runFull, "full", false, "print items and skipped files with the report")
}
