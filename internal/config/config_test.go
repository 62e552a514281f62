package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rwasmvm/rwasmvm/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, "rwasmvm", cfg.Metrics.Namespace)
	require.True(t, cfg.Runtime.CatchTrap)
	require.Equal(t, uint32(0), cfg.Runtime.FuelLimit)
}

func TestLoadFromFileOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runtime:\n  fuel_limit: 50000\n  is_shared: true\n"), 0o644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, uint32(50000), cfg.Runtime.FuelLimit)
	require.True(t, cfg.Runtime.IsShared)
	// Untouched fields keep their defaults.
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := config.LoadFromFile("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RWASMVM_LOG_LEVEL", "debug")
	t.Setenv("RWASMVM_METRICS_ADDR", ":1234")

	cfg := config.DefaultConfig()
	config.LoadFromEnv(cfg)

	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, ":1234", cfg.Metrics.ListenAddr)
	require.True(t, cfg.Metrics.Enabled)
}
