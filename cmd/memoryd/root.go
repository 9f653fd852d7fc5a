package main

import (
	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "memoryd",
	Short: "Personal knowledge and task server (MCP stdio + dashboard bridge)",
	Long: `memoryd stores memories and tasks as markdown-with-frontmatter files on
disk and exposes them through an MCP stdio tool server, a local HTTP/
WebSocket dashboard bridge, or both at once.

Running memoryd with no subcommand is equivalent to "memoryd serve".`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "", "path to memoryd.toml (default: search order in spec §6.2)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level: debug, info, warn, error")
}
