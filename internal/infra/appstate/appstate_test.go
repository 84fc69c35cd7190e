package appstate_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skillcoder/resource-gatekeeper/internal/infra/appstate"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/pinger"
)

type failingPinger struct{}

func (failingPinger) Name() string { return "failing" }

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type fakeShutdowner struct {
	name  string
	err   error
	calls *[]string
}

func (f *fakeShutdowner) Name() string { return f.name }

func (f *fakeShutdowner) Shutdown(_ context.Context) error {
	*f.calls = append(*f.calls, f.name)

	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAppState(t *testing.T) *appstate.AppState {
	t.Helper()

	quit := make(chan os.Signal, 1)
	pingerSrv := pinger.New(discardLogger(), 10*time.Millisecond)

	return appstate.New(discardLogger(), time.Now(), quit, pingerSrv)
}

func TestAppState_Transitions(t *testing.T) {
	t.Parallel()

	state := newAppState(t)
	require.Equal(t, appstate.StateInit, state.GetState())

	require.NoError(t, state.SetStarting(t.Context()))
	require.Equal(t, appstate.StateStarting, state.GetState())

	require.NoError(t, state.SetRunning(t.Context()))
	require.Equal(t, appstate.StateRunning, state.GetState())
	require.True(t, state.IsReady())

	require.NoError(t, state.Shutdown(t.Context()))
	require.Equal(t, appstate.StateTerminated, state.GetState())
}

func TestAppState_InvalidTransitions(t *testing.T) {
	t.Parallel()

	t.Run("running requires starting first", func(t *testing.T) {
		t.Parallel()

		state := newAppState(t)
		require.ErrorIs(t, state.SetRunning(t.Context()), appstate.ErrInvalidStateTransition)
	})

	t.Run("starting twice fails", func(t *testing.T) {
		t.Parallel()

		state := newAppState(t)
		require.NoError(t, state.SetStarting(t.Context()))
		require.ErrorIs(t, state.SetStarting(t.Context()), appstate.ErrInvalidStateTransition)
	})

	t.Run("terminated is final", func(t *testing.T) {
		t.Parallel()

		state := newAppState(t)
		require.NoError(t, state.SetStarting(t.Context()))
		require.NoError(t, state.Shutdown(t.Context()))
		require.ErrorIs(t, state.SetTerminating(t.Context()), appstate.ErrAlreadyTerminated)
	})
}

func TestAppState_IsHealthy(t *testing.T) {
	t.Parallel()

	t.Run("not healthy before running", func(t *testing.T) {
		t.Parallel()

		state := newAppState(t)
		require.False(t, state.IsHealthy())

		require.NoError(t, state.SetStarting(t.Context()))
		require.False(t, state.IsHealthy())
	})

	t.Run("healthy while running with passing pingers", func(t *testing.T) {
		t.Parallel()

		state := newAppState(t)
		require.NoError(t, state.SetStarting(t.Context()))
		require.NoError(t, state.SetRunning(t.Context()))
		require.True(t, state.IsHealthy())
	})

	t.Run("unhealthy when a critical pinger fails", func(t *testing.T) {
		t.Parallel()

		state := newAppState(t)
		require.NoError(t, state.RegisterPinger(failingPinger{}))
		require.NoError(t, state.SetStarting(t.Context()))
		require.NoError(t, state.SetRunning(t.Context()))

		require.Eventually(t, func() bool {
			return !state.IsHealthy()
		}, 2*time.Second, 5*time.Millisecond)
	})
}

func TestAppState_ShutdownReverseOrder(t *testing.T) {
	t.Parallel()

	state := newAppState(t)

	var calls []string

	require.NoError(t, state.RegisterShutdowner(&fakeShutdowner{name: "first", calls: &calls}))
	require.NoError(t, state.RegisterShutdowner(&fakeShutdowner{name: "second", calls: &calls}))

	require.NoError(t, state.SetStarting(t.Context()))
	require.NoError(t, state.SetRunning(t.Context()))

	require.NoError(t, state.Shutdown(t.Context()))

	// The pinger service registers itself during SetStarting and shuts down
	// before the explicitly registered components.
	require.Equal(t, []string{"second", "first"}, calls)
}

func TestAppState_Uptime(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(-time.Minute)
	quit := make(chan os.Signal, 1)
	state := appstate.New(discardLogger(), start, quit, pinger.New(discardLogger(), time.Second))

	require.Equal(t, start, state.GetStartTime())
	require.GreaterOrEqual(t, state.GetUptime(), time.Minute)
}
