package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, 1000, cfg.Sandbox.LoopBudget)
		assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)
		assert.Equal(t, "setup", cfg.Entries.Setup)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, `
entries:
  setup: init
  draw: frame
sandbox:
  loop_budget: 50
  timeout: 250ms
  forward_math: false
logging:
  level: debug
  format: json
`))
		require.NoError(t, err)
		assert.Equal(t, "init", cfg.Entries.Setup)
		assert.Equal(t, "frame", cfg.Entries.Draw)
		assert.Equal(t, 50, cfg.Sandbox.LoopBudget)
		assert.Equal(t, 250*time.Millisecond, cfg.Sandbox.Timeout)
		assert.False(t, cfg.Sandbox.ForwardMath)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, "sketchscan.db", cfg.Storage.Path, "unset keys keep their defaults")

		opts := cfg.SandboxOptions()
		assert.Equal(t, 50, opts.LoopBudget)
		assert.False(t, opts.ForwardMath)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SKETCHSCAN_LOOP_BUDGET", "7")
		t.Setenv("SKETCHSCAN_LOG_LEVEL", "warn")
		t.Setenv("SKETCHSCAN_DB", "/tmp/other.db")

		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Sandbox.LoopBudget)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "/tmp/other.db", cfg.Storage.Path)
	})

	t.Run("invalid env value", func(t *testing.T) {
		t.Setenv("SKETCHSCAN_LOOP_BUDGET", "lots")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero loop budget", func(c *Config) { c.Sandbox.LoopBudget = 0 }},
		{"same entry names", func(c *Config) { c.Entries.Draw = c.Entries.Setup }},
		{"missing entry name", func(c *Config) { c.Entries.Setup = "" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"no concurrency", func(c *Config) { c.Scan.Concurrency = 0 }},
		{"no storage path", func(c *Config) { c.Storage.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
