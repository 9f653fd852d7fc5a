package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Find and remove exact-duplicate memories (matching content_hash)",
}

var dedupPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which memories would be removed, without deleting anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDedup(cmd, false)
	},
}

var dedupApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Delete duplicate memories, after taking a safety snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDedup(cmd, true)
	},
}

func runDedup(cmd *cobra.Command, apply bool) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if apply {
		if err := a.backups.Snapshot(); err != nil {
			return fmt.Errorf("pre-dedup snapshot: %w", err)
		}
	}

	report, err := a.memory.Dedup(apply)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func init() {
	dedupCmd.AddCommand(dedupPlanCmd, dedupApplyCmd)
	rootCmd.AddCommand(dedupCmd)
}
