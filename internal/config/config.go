// Package config loads memoryd's process configuration: the handful of
// settings needed to start up (roots, transport mode, log level) before
// internal/settings.Store takes over for the richer, watch-reloaded schema.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds startup configuration for memoryd.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Server    ServerConfig    `toml:"server"`
	Transport TransportConfig `toml:"transport"`
	Log       LogConfig       `toml:"log"`
	Backup    BackupConfig    `toml:"backup"`
}

// StorageConfig locates the on-disk corpus.
type StorageConfig struct {
	Root       string `toml:"root"`        // Parent of memories/, tasks/, data/, backups/, session-dropoffs/.
	TaskLayout string `toml:"task_layout"` // "flat" or "per_file"; see settings.Settings.TaskLayout.
}

// ServerConfig holds MCP server identity metadata (reported in initialize).
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// TransportConfig controls which faces the process exposes.
type TransportConfig struct {
	// Mode selects the primary transport: "stdio" (MCP only, default),
	// "bridge" (dashboard bridge only), or "both".
	Mode string `toml:"mode"`
	// Port is the preferred dashboard bridge port (default 3001).
	Port int `toml:"port"`
	// Host is the bridge bind address; must resolve to loopback (§4.9).
	Host string `toml:"host"`
	// CORSOrigins is decoded but not passed to the bridge, which takes its
	// allowed origins from settings.Settings.Server.CORSOrigins.
	CORSOrigins []string `toml:"cors_origins"`
}

// LogConfig controls the stderr JSON logger.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// BackupConfig holds backup options from the config file and the
// MEMORYD_BACKUP_* env vars. cmd/memoryd does not consult them: the snapshot
// scheduler takes its policy from settings.Settings.Features.
type BackupConfig struct {
	Enabled      bool `toml:"enabled"`
	IntervalSec  int  `toml:"interval_sec"`
	MaxBackups   int  `toml:"max_backups"`
}

// Load builds a Config from defaults, an optional TOML file, and env vars.
//
// Config file search order (first found wins):
//  1. configPath parameter (from --config flag)
//  2. MEMORYD_CONFIG environment variable
//  3. ./memoryd.toml (current directory)
//  4. ~/.config/memoryd/memoryd.toml (XDG-style)
//
// All fields are optional in the config file; env vars always win.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Root:       ".",
			TaskLayout: "per_file",
		},
		Server: ServerConfig{
			Name:    "memoryd",
			Version: "0.1.0",
		},
		Transport: TransportConfig{
			Mode:        "stdio",
			Port:        3001,
			Host:        "127.0.0.1",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			Enabled:     true,
			IntervalSec: 3600,
			MaxBackups:  10,
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("MEMORYD_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("memoryd.toml"); err == nil {
		return "memoryd.toml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/memoryd/memoryd.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) applyEnv() {
	envOverride("MEMORYD_STORAGE_ROOT", &c.Storage.Root)
	envOverride("MEMORYD_TASK_LAYOUT", &c.Storage.TaskLayout)
	envOverride("MEMORYD_TRANSPORT", &c.Transport.Mode)
	envOverride("MEMORYD_HOST", &c.Transport.Host)
	envOverride("MEMORYD_LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("MEMORYD_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			c.Transport.Port = port
		}
	}

	// MCP_MODE forces the stdio transport. MCP_QUIET is not read anywhere
	// in memoryd.
	if v := os.Getenv("MCP_MODE"); v == "true" || v == "1" {
		c.Transport.Mode = "stdio"
	}

	if v := os.Getenv("MEMORYD_BACKUP_ENABLED"); v != "" {
		c.Backup.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("MEMORYD_BACKUP_INTERVAL_SEC"); v != "" {
		var secs int
		if _, err := fmt.Sscanf(v, "%d", &secs); err == nil && secs > 0 {
			c.Backup.IntervalSec = secs
		}
	}
}

// Validate checks structural invariants of the loaded config.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "bridge", "both":
	default:
		return fmt.Errorf("invalid transport mode: %q (must be \"stdio\", \"bridge\", or \"both\")", c.Transport.Mode)
	}
	switch c.Storage.TaskLayout {
	case "flat", "per_file":
	default:
		return fmt.Errorf("invalid task_layout: %q (must be \"flat\" or \"per_file\")", c.Storage.TaskLayout)
	}
	if c.Transport.Host != "127.0.0.1" && c.Transport.Host != "localhost" && c.Transport.Host != "::1" {
		return fmt.Errorf("transport.host must be a loopback address, got %q (network-exposed serving is out of scope)", c.Transport.Host)
	}
	return nil
}

func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
