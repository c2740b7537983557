package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.gitRelease=... -X main.gitCommit=...".
var (
	gitRelease = "dev"
	gitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tradedocs %s (%s)\n", gitRelease, gitCommit)
	},
}
