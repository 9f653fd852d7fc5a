// Package settings holds the process-wide configuration object described
// in spec §3.4/§6.2: loaded from disk at startup, watched for changes, and
// broadcast via the change bus. The object itself is copy-on-write —
// readers hold a snapshot pointer, writers atomically install a new one.
package settings

import (
	"encoding/json"
	"os"
	"sync/atomic"
)

// Settings is the recognized settings schema (spec §6.2).
type Settings struct {
	MemoryDir string `json:"memory_dir"`
	TaskDir   string `json:"task_dir"`

	Server struct {
		Port        int      `json:"port"`
		Host        string   `json:"host"`
		CORSOrigins []string `json:"cors_origins"`
	} `json:"server"`

	Features struct {
		AutoBackup                bool   `json:"auto_backup"`
		BackupIntervalSec         int    `json:"backup_interval_sec"`
		MaxBackups                int    `json:"max_backups"`
		EnableWebsocket           bool   `json:"enable_websocket"`
		SemanticSearchProvider    string `json:"semantic_search_provider"` // none|ollama|xenova
	} `json:"features"`

	MCP struct {
		MaxTools      int      `json:"max_tools"`
		DefaultLayers []string `json:"default_layers"`
	} `json:"mcp"`

	Logging struct {
		Level string `json:"level"` // error|warn|info|debug
	} `json:"logging"`

	// TaskLayout is resolved once at startup (spec §9 Open Question #2):
	// "flat" (tasks.json per project) or "per_file" (task-<id>.md).
	TaskLayout string `json:"task_layout"`
}

// Default returns the documented defaults (spec §6.2).
func Default() *Settings {
	s := &Settings{
		MemoryDir:  "./memories",
		TaskDir:    "./tasks",
		TaskLayout: "per_file",
	}
	s.Server.Port = 3001
	s.Server.Host = "127.0.0.1"
	s.Server.CORSOrigins = []string{"http://localhost:3000"}
	s.Features.AutoBackup = true
	s.Features.BackupIntervalSec = 3600
	s.Features.MaxBackups = 10
	s.Features.EnableWebsocket = true
	s.Features.SemanticSearchProvider = "none"
	s.MCP.MaxTools = 0 // 0 = unlimited
	s.MCP.DefaultLayers = []string{"core"}
	s.Logging.Level = "info"
	return s
}

// Load reads settings.json at path, falling back to defaults for any field
// not present (missing file is not an error — callers get Default()).
func Load(path string) (*Settings, error) {
	s := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, err
	}
	applyEnv(s)
	return s, nil
}

// applyEnv overlays the MEMORY_DIR and TASK_DIR environment overrides
// (spec §6.2).
func applyEnv(s *Settings) {
	if v := os.Getenv("MEMORY_DIR"); v != "" {
		s.MemoryDir = v
	}
	if v := os.Getenv("TASK_DIR"); v != "" {
		s.TaskDir = v
	}
	// MCP_MODE is read by internal/config to pick the transport; MCP_QUIET
	// is not read anywhere. Neither maps onto a Settings field.
}

// Save writes settings as indented JSON to path.
func Save(path string, s *Settings) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Store is a copy-on-write holder: Get never blocks on a concurrent Set.
type Store struct {
	v atomic.Pointer[Settings]
}

// NewStore creates a Store seeded with initial.
func NewStore(initial *Settings) *Store {
	st := &Store{}
	st.v.Store(initial)
	return st
}

// Get returns the current snapshot. Callers must not mutate the result.
func (s *Store) Get() *Settings {
	return s.v.Load()
}

// Set atomically installs a new snapshot.
func (s *Store) Set(next *Settings) {
	s.v.Store(next)
}
