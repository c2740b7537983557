package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/classify"
)

// classification is printed by the classify command.
type classification struct {
	File           string `json:"file"`
	DocType        string `json:"doc_type,omitempty"`
	Error          string `json:"error,omitempty"`
	RawModelOutput string `json:"raw_model_output,omitempty"`
	Lines          int    `json:"lines"`
	Tables         int    `json:"tables"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Analyze one file and print its document type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		gen, err := newGenerator(cfg, logger)
		if err != nil {
			return err
		}
		analyzer, err := newAnalyzer(ctx, cfg, logger)
		if err != nil {
			return err
		}

		doc, err := analyzer.Analyze(ctx, args[0])
		if err != nil {
			return err
		}
		res, err := classify.New(gen, logger).Classify(ctx, doc)
		if err != nil {
			return err
		}

		out := classification{File: args[0], Lines: len(doc.Lines), Tables: len(doc.Tables)}
		if res.Resolved() {
			out.DocType = res.Type.String()
		} else {
			out.Error = string(constants.ErrClassificationFailed)
			out.RawModelOutput = res.Raw
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}
