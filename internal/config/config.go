// Package config loads the user configuration from
// ~/.convoscan/config.toml. Every field has a default; a missing file is
// not an error.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// UserConfigFileName is the config file name inside the config dir.
const UserConfigFileName = "config.toml"

// EnvConfigDir overrides the config directory location.
const EnvConfigDir = "CONVOSCAN_CONFIG_DIR"

// UserConfig is the top-level configuration.
type UserConfig struct {
	// Search holds default query settings applied when flags are absent
	Search SearchSettings `toml:"search"`

	// Logs configures the debug log
	Logs LogSettings `toml:"logs"`

	// Watch configures the export file watcher
	Watch WatchSettings `toml:"watch"`
}

// SearchSettings defines search defaults.
type SearchSettings struct {
	// DefaultLimit is the result limit when no -limit flag is given
	// Default: 10
	DefaultLimit int `toml:"default_limit"`

	// DefaultSort is the sort key when no -sort flag is given
	// Default: "score"
	DefaultSort string `toml:"default_sort"`
}

// LogSettings defines debug log configuration.
type LogSettings struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `toml:"level"`

	// Format sets the log format: "json" (default) or "text"
	Format string `toml:"format"`

	// MaxSizeMB is the max size in MB before rotation (default: 10)
	MaxSizeMB int `toml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `toml:"max_backups"`

	// RetentionDays is days to keep rotated files (default: 14)
	RetentionDays int `toml:"retention_days"`

	// Compress enables gzip compression of rotated files (default: true)
	Compress *bool `toml:"compress"`

	// RingBufferMB is the in-memory crash-dump buffer size in MB (default: 4)
	RingBufferMB int `toml:"ring_buffer_mb"`

	// AggregateIntervalS is the event aggregation flush interval in seconds
	// Default: 10
	AggregateIntervalS int `toml:"aggregate_interval_secs"`
}

// WatchSettings defines export watcher configuration.
type WatchSettings struct {
	// DebounceMs is how long to wait after the last write event before
	// triggering a rescan (default: 300)
	DebounceMs int `toml:"debounce_ms"`

	// RescansPerMinute caps how often a changing file triggers rescans
	// Default: 12
	RescansPerMinute int `toml:"rescans_per_minute"`
}

// GetCompress resolves the compress setting with its default.
func (l *LogSettings) GetCompress() bool {
	if l.Compress == nil {
		return true
	}
	return *l.Compress
}

// ConfigDir returns the directory holding the config file and logs,
// honoring the CONVOSCAN_CONFIG_DIR override.
func ConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".convoscan"
	}
	return filepath.Join(home, ".convoscan")
}

// Default returns a config with every default applied.
func Default() *UserConfig {
	cfg := &UserConfig{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config file from the config dir. A missing file yields the
// defaults; a malformed file is an error.
func Load() (*UserConfig, error) {
	return LoadFrom(filepath.Join(ConfigDir(), UserConfigFileName))
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (*UserConfig, error) {
	cfg := &UserConfig{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the config dir, creating it when needed.
func (c *UserConfig) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, UserConfigFileName))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

func (c *UserConfig) applyDefaults() {
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.DefaultSort == "" {
		c.Search.DefaultSort = "score"
	}
	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
	if c.Logs.Format == "" {
		c.Logs.Format = "json"
	}
	if c.Logs.MaxSizeMB <= 0 {
		c.Logs.MaxSizeMB = 10
	}
	if c.Logs.MaxBackups <= 0 {
		c.Logs.MaxBackups = 3
	}
	if c.Logs.RetentionDays <= 0 {
		c.Logs.RetentionDays = 14
	}
	if c.Logs.RingBufferMB <= 0 {
		c.Logs.RingBufferMB = 4
	}
	if c.Logs.AggregateIntervalS <= 0 {
		c.Logs.AggregateIntervalS = 10
	}
	if c.Watch.DebounceMs <= 0 {
		c.Watch.DebounceMs = 300
	}
	if c.Watch.RescansPerMinute <= 0 {
		c.Watch.RescansPerMinute = 12
	}
}
