package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "OSMO", cfg.Pair.Base)
	assert.Equal(t, "USD", cfg.Pair.Quote)
	assert.Equal(t, 64, cfg.Engine.RequestBuffer)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 200*time.Millisecond, cfg.BotOrderInterval())
	assert.Equal(t, 2*time.Second, cfg.BotOrderLifetime())
}

func TestLoadMissingPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("pair:\n  base: ATOM\nbots:\n  order_interval_ms: 50\nserver:\n  listen_addr: \":9000\"\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ATOM", cfg.Pair.Base)
	assert.Equal(t, "USD", cfg.Pair.Quote)
	assert.Equal(t, 50*time.Millisecond, cfg.BotOrderInterval())
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, 20, cfg.Server.DepthLimit)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pair: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":7777")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.ListenAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
