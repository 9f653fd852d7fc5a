// Command memoryd runs the memoryd personal knowledge and task server: an
// MCP stdio tool server and a local dashboard bridge sharing one on-disk
// markdown+frontmatter corpus of memories and tasks.
//
// Optional environment variables (spec §6.2):
//
//	MEMORY_DIR, TASK_DIR   - override the memory/task roots
//	MCP_MODE               - "true" or "1" forces the stdio transport
//	MEMORYD_CONFIG         - path to a memoryd.toml config file
package main

import (
	"fmt"
	"os"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "memoryd: %v\n", err)
		os.Exit(1)
	}
}
