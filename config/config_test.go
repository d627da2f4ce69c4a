package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arxtrus/bootes/config"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	require.Equal(t, 30, cfg.Timeout)
	require.Equal(t, uint(3), cfg.MaxRetries)
	require.Equal(t, 1.0, cfg.RetryDelay)
	require.Equal(t, "1d", cfg.DefaultStockInterval)
	require.Equal(t, "1y", cfg.DefaultStockPeriod)
	require.False(t, cfg.CacheEnabled)
	require.Equal(t, 300, cfg.CacheTTL)
	require.Equal(t, 60, cfg.RequestsPerMinute)
	require.Equal(t, config.Default(), cfg)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BOOTES_TIMEOUT", "5")
	t.Setenv("BOOTES_MAX_RETRIES", "0")
	t.Setenv("BOOTES_CACHE_ENABLED", "true")
	t.Setenv("BOOTES_DEFAULT_PERIOD", "1mo")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	require.Equal(t, 5, cfg.Timeout)
	require.Equal(t, uint(0), cfg.MaxRetries)
	require.True(t, cfg.CacheEnabled)
	require.Equal(t, "1mo", cfg.DefaultStockPeriod)
}

func TestFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("BOOTES_TIMEOUT", "not-a-number")

	_, err := config.FromEnv()
	require.Error(t, err)
}

func TestDerivedDurations(t *testing.T) {
	cfg := config.Default()
	cfg.Timeout = 10
	cfg.RetryDelay = 0.5
	cfg.CacheTTL = 60

	require.Equal(t, "10s", cfg.RequestTimeout().String())
	require.Equal(t, "500ms", cfg.RetryBaseDelay().String())
	require.Equal(t, "1m0s", cfg.CacheExpiry().String())
}
