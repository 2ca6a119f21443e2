package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, "score", cfg.Search.DefaultSort)
	assert.Equal(t, "info", cfg.Logs.Level)
	assert.Equal(t, "json", cfg.Logs.Format)
	assert.Equal(t, 10, cfg.Logs.MaxSizeMB)
	assert.Equal(t, 3, cfg.Logs.MaxBackups)
	assert.Equal(t, 14, cfg.Logs.RetentionDays)
	assert.True(t, cfg.Logs.GetCompress())
	assert.Equal(t, 4, cfg.Logs.RingBufferMB)
	assert.Equal(t, 300, cfg.Watch.DebounceMs)
	assert.Equal(t, 12, cfg.Watch.RescansPerMinute)
}

func TestLoadFromMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[search]
default_limit = 25
default_sort = "date"

[logs]
level = "debug"
compress = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, "date", cfg.Search.DefaultSort)
	assert.Equal(t, "debug", cfg.Logs.Level)
	assert.False(t, cfg.Logs.GetCompress(), "explicit false survives defaulting")

	// Unset fields still pick up their defaults.
	assert.Equal(t, "json", cfg.Logs.Format)
	assert.Equal(t, 300, cfg.Watch.DebounceMs)
}

func TestLoadFromMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[search\nbroken"), 0o644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestConfigDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	assert.Equal(t, dir, ConfigDir())
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())

	cfg := Default()
	cfg.Search.DefaultLimit = 50
	cfg.Logs.Level = "warn"
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.Search.DefaultLimit)
	assert.Equal(t, "warn", loaded.Logs.Level)
}
