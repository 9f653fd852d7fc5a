package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// commit is set via ldflags at build time.
var commit = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the memoryd version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "memoryd %s (%s)\n", version, commit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
