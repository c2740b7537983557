package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "tradedocs",
	Short: "Trade-finance document checking against a Letter of Credit",
	Long: `tradedocs reads a batch of trade documents, classifies each one,
extracts its fields and checks the batch against the Letter of Credit.

The pipeline includes:
  - Layout analysis with Textract or local poppler/tesseract
  - Classification into five document types
  - Schema-driven field extraction
  - A compliance report with deterministic LC checks`,
	Version:       gitRelease,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./tradedocs.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)",
	)

	rootCmd.AddCommand(runCmd, watchCmd, mailCmd, classifyCmd, versionCmd)
}

// loadConfig reads and validates configuration and installs the logger
// as the slog default.
func loadConfig() (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newLogger writes to stderr; stdout carries the reports.
func newLogger(c common.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
