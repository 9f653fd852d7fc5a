package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage on-disk snapshots of the memory and task corpus",
}

var backupNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Take an immediate snapshot, bypassing the scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.backups.Snapshot(); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "backup complete")
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupNowCmd)
	rootCmd.AddCommand(backupCmd)
}
