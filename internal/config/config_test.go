package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, "9090", cfg.MetricsPort)
	require.Equal(t, "*/5 * * * *", cfg.CleanupSchedule)
	require.Equal(t, time.Second, cfg.PollInterval)
	require.Equal(t, 10*time.Second, cfg.PingerInterval)

	require.Equal(t, int64(1<<30), cfg.Limits.MemoryBytes)
	require.InDelta(t, 80.0, cfg.Limits.CPUPercent, 0.001)
	require.Equal(t, int64(100<<20), cfg.Limits.BandwidthBytesPerSec)
	require.Equal(t, int64(50), cfg.Limits.Connections)
	require.Equal(t, int64(10), cfg.Limits.MaxOperations)

	require.Equal(t, 3, cfg.NetworkRecovery.MaxRetries)
	require.Equal(t, time.Second, cfg.NetworkRecovery.BaseDelay)
	require.Equal(t, 30*time.Second, cfg.NetworkRecovery.MaxDelay)
	require.True(t, cfg.NetworkRecovery.ExponentialBackoff)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GATEKEEPER_LOG_LEVEL", "debug")
	t.Setenv("GATEKEEPER_LOG_FORMAT", "text")
	t.Setenv("GATEKEEPER_HTTP_PORT", "8181")
	t.Setenv("GATEKEEPER_MAX_MEMORY_BYTES", "2147483648")
	t.Setenv("GATEKEEPER_MAX_CPU_PERCENT", "60.5")
	t.Setenv("GATEKEEPER_MAX_OPERATIONS", "4")
	t.Setenv("GATEKEEPER_POLL_INTERVAL", "500ms")
	t.Setenv("GATEKEEPER_CLEANUP_SCHEDULE", "*/10 * * * *")
	t.Setenv("GATEKEEPER_NET_MAX_RETRIES", "5")
	t.Setenv("GATEKEEPER_NET_BASE_DELAY", "2s")
	t.Setenv("GATEKEEPER_NET_EXPONENTIAL_BACKOFF", "false")
	t.Setenv("GATEKEEPER_PINGER_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "8181", cfg.HTTPPort)
	require.Equal(t, int64(2<<30), cfg.Limits.MemoryBytes)
	require.InDelta(t, 60.5, cfg.Limits.CPUPercent, 0.001)
	require.Equal(t, int64(4), cfg.Limits.MaxOperations)
	require.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	require.Equal(t, "*/10 * * * *", cfg.CleanupSchedule)
	require.Equal(t, 5, cfg.NetworkRecovery.MaxRetries)
	require.Equal(t, 2*time.Second, cfg.NetworkRecovery.BaseDelay)
	require.False(t, cfg.NetworkRecovery.ExponentialBackoff)
	require.Equal(t, 30*time.Second, cfg.PingerInterval)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric memory limit", "GATEKEEPER_MAX_MEMORY_BYTES", "a-lot"},
		{"non-numeric cpu limit", "GATEKEEPER_MAX_CPU_PERCENT", "most"},
		{"negative memory limit", "GATEKEEPER_MAX_MEMORY_BYTES", "-1"},
		{"zero operations limit", "GATEKEEPER_MAX_OPERATIONS", "0"},
		{"malformed poll interval", "GATEKEEPER_POLL_INTERVAL", "fast"},
		{"poll interval below the floor", "GATEKEEPER_POLL_INTERVAL", "50ms"},
		{"pinger interval below the floor", "GATEKEEPER_PINGER_INTERVAL", "100ms"},
		{"malformed net retries", "GATEKEEPER_NET_MAX_RETRIES", "three"},
		{"malformed exponential flag", "GATEKEEPER_NET_EXPONENTIAL_BACKOFF", "sometimes"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
