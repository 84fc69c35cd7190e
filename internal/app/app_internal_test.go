package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skillcoder/resource-gatekeeper/internal/config"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/appstate"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/pinger"
	"github.com/skillcoder/resource-gatekeeper/internal/logic/admission"
	"github.com/skillcoder/resource-gatekeeper/internal/logic/recovery"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:    "info",
		LogFormat:   "text",
		HTTPPort:    "0",
		MetricsPort: "0",
		Limits: admission.Limits{
			MemoryBytes:          1 << 30,
			CPUPercent:           80,
			BandwidthBytesPerSec: 100 << 20,
			Connections:          50,
			MaxOperations:        10,
		},
		PollInterval:    50 * time.Millisecond,
		CleanupSchedule: "*/5 * * * *",
		NetworkRecovery: recovery.DefaultNetworkRecoveryConfig(),
		PingerInterval:  50 * time.Millisecond,
	}
}

func newTestAppState() *appstate.AppState {
	logger := discardLogger()
	quit := make(chan os.Signal, 1)

	return appstate.New(logger, time.Now(), quit, pinger.New(logger, 50*time.Millisecond))
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("wires the component graph", func(t *testing.T) {
		t.Parallel()

		application, err := New(discardLogger(), testConfig(), newTestAppState())
		require.NoError(t, err)
		require.NotNil(t, application.Admission())
		require.NotNil(t, application.Recovery())
	})

	t.Run("rejects a bad cleanup schedule", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.CleanupSchedule = "not a schedule"

		_, err := New(discardLogger(), cfg, newTestAppState())
		require.Error(t, err)
	})
}

func TestApp_RunLifecycle(t *testing.T) {
	t.Parallel()

	state := newTestAppState()

	application, err := New(discardLogger(), testConfig(), state)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	runErr := make(chan error, 1)

	go func() {
		runErr <- application.Run(ctx)
	}()

	require.Eventually(t, state.IsReady, 5*time.Second, 10*time.Millisecond)

	// The core must accept work while running.
	result, err := application.Admission().Admit(ctx, "probe",
		func(context.Context) (any, error) { return "ok", nil },
		admission.Requirements{MemoryBytes: 1 << 20},
		admission.PriorityNormal,
	)
	require.NoError(t, err)
	require.Equal(t, "ok", result)

	cancel()

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("application run never returned after cancellation")
	}

	require.Equal(t, appstate.StateTerminated, state.GetState())
}
