package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/ingest"
)

var (
	mailAll  bool
	mailFull bool
)

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Process the attachments of the newest matching unread email",
	Long: `Mail connects to imap.server, looks through unread messages in
imap.mailbox newest first and takes the first whose subject contains
imap.subject. Its pdf and image attachments are saved under imap.dir and
processed as one batch. The message is then marked as read.
With --all every matching unread message is processed in turn.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateIMAP(); err != nil {
			logger.Error("config.invalid", "error", err)
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		box, err := ingest.DialIMAP(ctx, cfg.IMAP, logger)
		if err != nil {
			return err
		}
		defer box.Close()

		src := ingest.NewIMAPSource(box, ingest.MailOptions{Subject: cfg.IMAP.Subject, Dir: cfg.IMAP.Dir}, logger)
		processed := 0
		for {
			b, err := src.Next(ctx)
			if errors.Is(err, ingest.ErrExhausted) {
				break
			}
			if err != nil {
				return err
			}
			out, err := a.processBatch(ctx, b)
			if err != nil {
				return err
			}
			if mailFull {
				err = writeJSON(cmd.OutOrStdout(), out)
			} else {
				err = writeJSON(cmd.OutOrStdout(), out.Report)
			}
			if err != nil {
				return err
			}
			processed++
			if !mailAll {
				break
			}
		}
		if processed == 0 {
			return common.NewAppError(common.CodeInvalidInput,
				"no unread email with attachments and subject containing "+cfg.IMAP.Subject, common.ErrNotFound)
		}
		return nil
	},
}

func init() {
	mailCmd.Flags().BoolVar(&mailAll, "all", false, "process every matching unread message")
	mailCmd.Flags().BoolVar(&mailFull, "full", false, "print items and skipped files with the report")
}
