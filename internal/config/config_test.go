package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Client.API = "http://tasks.internal:8080"
	cfg.Client.PollWait = 40 * time.Second
	cfg.Timer.MinSave = 5 * time.Second
	cfg.Timezone = "Europe/Berlin"
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "poll_wait: 40s")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, "Europe/Berlin", loaded.Location().String())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TASKBOARD_CLIENT_API", "https://example.com")
	t.Setenv("TASKBOARD_TIMER_TICK_INTERVAL", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cfg.Client.API)
	assert.Equal(t, 250*time.Millisecond, cfg.Timer.TickInterval)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: 0.0.0.0:9000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, DefaultConfig().Server.DBPath, cfg.Server.DBPath)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad api", func(c *Config) { c.Client.API = "localhost:7466" }},
		{"zero timeout", func(c *Config) { c.Client.Timeout = 0 }},
		{"long poll wait", func(c *Config) { c.Client.PollWait = 2 * time.Minute }},
		{"no tick", func(c *Config) { c.Timer.TickInterval = 0 }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"no db", func(c *Config) { c.Server.DBPath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}
