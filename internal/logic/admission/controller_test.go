package admission_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/skillcoder/resource-gatekeeper/internal/logic/admission"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallLimits() admission.Limits {
	return admission.Limits{
		MemoryBytes:          1 << 30,
		CPUPercent:           80,
		BandwidthBytesPerSec: 100 << 20,
		Connections:          50,
		MaxOperations:        10,
	}
}

// blockingOp parks until released, so the test controls exactly when its
// reservation comes back.
func blockingOp(release <-chan struct{}) admission.Operation {
	return func(ctx context.Context) (any, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestController_AdmitImmediately(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())

	result, err := ctrl.Admit(t.Context(), "render",
		func(_ context.Context) (any, error) { return 42, nil },
		admission.Requirements{MemoryBytes: 100 << 20, CPUPercent: 10},
		admission.PriorityNormal,
	)

	require.NoError(t, err)
	require.Equal(t, 42, result)

	status := ctrl.Status()
	require.Zero(t, status.Active)
	require.Equal(t, admission.Usage{}, status.Usage)
}

func TestController_ReleasesOnOperationError(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())

	opErr := errors.New("backend unavailable")

	result, err := ctrl.Admit(t.Context(), "render",
		func(_ context.Context) (any, error) { return nil, opErr },
		admission.Requirements{MemoryBytes: 100 << 20},
		admission.PriorityNormal,
	)

	require.Nil(t, result)
	require.ErrorIs(t, err, opErr)

	var contention *admission.ContentionError
	require.ErrorAs(t, err, &contention)
	require.Equal(t, "render", contention.OperationName)
	require.NotEmpty(t, contention.OperationID)

	require.Zero(t, ctrl.Status().Active)
	require.Equal(t, admission.Usage{}, ctrl.Status().Usage)
}

func TestController_ReleasesOnPanic(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())

	result, err := ctrl.Admit(t.Context(), "render",
		func(_ context.Context) (any, error) { panic("boom") },
		admission.Requirements{MemoryBytes: 100 << 20},
		admission.PriorityNormal,
	)

	require.Nil(t, result)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")

	require.Zero(t, ctrl.Status().Active)
	require.Equal(t, admission.Usage{}, ctrl.Status().Usage)
}

func TestController_RejectsNormalUnderSaturation(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())

	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = ctrl.Admit(t.Context(), "saturator",
			blockingOp(release),
			admission.Requirements{MemoryBytes: 1 << 30, CPUPercent: 80},
			admission.PriorityNormal,
		)
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Active == 1
	}, time.Second, 5*time.Millisecond)

	result, err := ctrl.Admit(t.Context(), "latecomer",
		func(_ context.Context) (any, error) { return nil, nil },
		admission.Requirements{MemoryBytes: 100 << 20},
		admission.PriorityNormal,
	)

	require.Nil(t, result)
	require.ErrorIs(t, err, admission.ErrRejected)

	var contention *admission.ContentionError
	require.ErrorAs(t, err, &contention)
	require.Equal(t, "latecomer", contention.OperationName)
	require.Positive(t, contention.EstimatedWait)
	require.NotEmpty(t, contention.Suggestion)

	close(release)
	<-done
}

func TestController_ConcurrentNormalBurstAdmitsExactlyOne(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())

	// Each request alone fits the 1GiB/80%/100MBps/50-connection ceiling;
	// any two together exceed it.
	req := admission.Requirements{
		MemoryBytes:          800 << 20,
		CPUPercent:           70,
		BandwidthBytesPerSec: 80 << 20,
		Connections:          40,
	}

	release := make(chan struct{})
	errs := make(chan error, 3)

	for range 3 {
		go func() {
			_, err := ctrl.Admit(t.Context(), "burst",
				blockingOp(release),
				req,
				admission.PriorityNormal,
			)
			errs <- err
		}()
	}

	// Two callers must be rejected while the winner still holds its
	// reservation.
	var rejected []error

	for len(rejected) < 2 {
		select {
		case err := <-errs:
			rejected = append(rejected, err)
		case <-time.After(2 * time.Second):
			t.Fatal("losing operations were never rejected")
		}
	}

	for _, err := range rejected {
		require.ErrorIs(t, err, admission.ErrRejected)

		var contention *admission.ContentionError
		require.ErrorAs(t, err, &contention)
		require.Positive(t, contention.EstimatedWait)
	}

	require.Equal(t, 1, ctrl.Status().Active)

	close(release)

	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("winning operation never finished")
	}

	require.Zero(t, ctrl.Status().Active)
}

func TestController_QueuesHighAndPromotesOnRelease(t *testing.T) {
	t.Parallel()

	fakeClock := clocktesting.NewFakeClock(time.Now())
	ctrl := admission.New(discardLogger(), smallLimits(), admission.WithClock(fakeClock))

	require.NoError(t, ctrl.Start(t.Context()))
	<-ctrl.Ready()

	release := make(chan struct{})
	saturatorDone := make(chan struct{})

	go func() {
		defer close(saturatorDone)

		_, _ = ctrl.Admit(t.Context(), "saturator",
			blockingOp(release),
			admission.Requirements{MemoryBytes: 1 << 30},
			admission.PriorityNormal,
		)
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Active == 1
	}, time.Second, 5*time.Millisecond)

	type outcome struct {
		result any
		err    error
	}

	queuedDone := make(chan outcome, 1)

	go func() {
		result, err := ctrl.Admit(t.Context(), "queued",
			func(_ context.Context) (any, error) { return "promoted", nil },
			admission.Requirements{MemoryBytes: 500 << 20},
			admission.PriorityHigh,
		)
		queuedDone <- outcome{result, err}
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Queued == 1
	}, time.Second, 5*time.Millisecond)

	close(release)
	<-saturatorDone

	select {
	case got := <-queuedDone:
		require.NoError(t, got.err)
		require.Equal(t, "promoted", got.result)
	case <-time.After(2 * time.Second):
		t.Fatal("queued operation was never promoted")
	}

	require.Zero(t, ctrl.Status().Queued)
	require.Zero(t, ctrl.Status().Active)
}

func TestController_CancelledWaiterIsEvicted(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())
	require.NoError(t, ctrl.Start(t.Context()))
	<-ctrl.Ready()

	release := make(chan struct{})
	defer close(release)

	saturatorDone := make(chan struct{})

	go func() {
		defer close(saturatorDone)

		_, _ = ctrl.Admit(t.Context(), "saturator",
			blockingOp(release),
			admission.Requirements{MemoryBytes: 1 << 30},
			admission.PriorityNormal,
		)
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Active == 1
	}, time.Second, 5*time.Millisecond)

	waitCtx, cancel := context.WithCancel(t.Context())
	waiterErr := make(chan error, 1)

	go func() {
		_, err := ctrl.Admit(waitCtx, "cancelled",
			func(_ context.Context) (any, error) { return nil, nil },
			admission.Requirements{MemoryBytes: 500 << 20},
			admission.PriorityCritical,
		)
		waiterErr <- err
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Queued == 1
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-waiterErr:
		require.ErrorIs(t, err, admission.ErrEvicted)
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter never returned")
	}

	require.Zero(t, ctrl.Status().Queued)
}

func TestController_ShutdownEvictsWaiters(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())
	require.NoError(t, ctrl.Start(t.Context()))
	<-ctrl.Ready()

	release := make(chan struct{})
	defer close(release)

	saturatorDone := make(chan struct{})

	go func() {
		defer close(saturatorDone)

		_, _ = ctrl.Admit(t.Context(), "saturator",
			blockingOp(release),
			admission.Requirements{MemoryBytes: 1 << 30},
			admission.PriorityNormal,
		)
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Active == 1
	}, time.Second, 5*time.Millisecond)

	waiterErr := make(chan error, 1)

	go func() {
		_, err := ctrl.Admit(t.Context(), "stranded",
			func(_ context.Context) (any, error) { return nil, nil },
			admission.Requirements{MemoryBytes: 500 << 20},
			admission.PriorityHigh,
		)
		waiterErr <- err
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Queued == 1
	}, time.Second, 5*time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, ctrl.Shutdown(shutdownCtx))

	select {
	case err := <-waiterErr:
		require.ErrorIs(t, err, admission.ErrEvicted)
		require.ErrorIs(t, err, admission.ErrNotRunning)
	case <-time.After(2 * time.Second):
		t.Fatal("stranded waiter never returned")
	}
}

func TestController_RejectsAfterShutdown(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())
	require.NoError(t, ctrl.Shutdown(t.Context()))

	_, err := ctrl.Admit(t.Context(), "late",
		func(_ context.Context) (any, error) { return nil, nil },
		admission.Requirements{},
		admission.PriorityCritical,
	)

	require.ErrorIs(t, err, admission.ErrNotRunning)
}

func TestController_CleanupForceReleasesStuckOperations(t *testing.T) {
	t.Parallel()

	fakeClock := clocktesting.NewFakeClock(time.Now())
	ctrl := admission.New(discardLogger(), smallLimits(),
		admission.WithClock(fakeClock),
		admission.WithCleanupAges(5*time.Minute, 10*time.Minute),
	)

	release := make(chan struct{})
	defer close(release)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = ctrl.Admit(t.Context(), "stuck",
			blockingOp(release),
			admission.Requirements{MemoryBytes: 200 << 20},
			admission.PriorityNormal,
		)
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Active == 1
	}, time.Second, 5*time.Millisecond)

	fakeClock.Step(6 * time.Minute)

	released, dropped := ctrl.Cleanup(t.Context())

	require.Equal(t, 1, released)
	require.Zero(t, dropped)
	require.Zero(t, ctrl.Status().Active)
	require.Equal(t, admission.Usage{}, ctrl.Status().Usage)
}

func TestController_CleanupDropsStaleQueuedOperations(t *testing.T) {
	t.Parallel()

	fakeClock := clocktesting.NewFakeClock(time.Now())
	ctrl := admission.New(discardLogger(), smallLimits(),
		admission.WithClock(fakeClock),
		admission.WithCleanupAges(30*time.Minute, 10*time.Minute),
	)

	release := make(chan struct{})
	defer close(release)

	saturatorDone := make(chan struct{})

	go func() {
		defer close(saturatorDone)

		_, _ = ctrl.Admit(t.Context(), "saturator",
			blockingOp(release),
			admission.Requirements{MemoryBytes: 1 << 30},
			admission.PriorityNormal,
		)
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Active == 1
	}, time.Second, 5*time.Millisecond)

	waiterErr := make(chan error, 1)

	go func() {
		_, err := ctrl.Admit(t.Context(), "stale",
			func(_ context.Context) (any, error) { return nil, nil },
			admission.Requirements{MemoryBytes: 500 << 20},
			admission.PriorityHigh,
		)
		waiterErr <- err
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Queued == 1
	}, time.Second, 5*time.Millisecond)

	fakeClock.Step(11 * time.Minute)

	released, dropped := ctrl.Cleanup(t.Context())

	require.Zero(t, released)
	require.Equal(t, 1, dropped)

	select {
	case err := <-waiterErr:
		require.ErrorIs(t, err, admission.ErrEvicted)
		require.ErrorIs(t, err, admission.ErrQueueExpired)
	case <-time.After(2 * time.Second):
		t.Fatal("stale waiter never returned")
	}
}

func TestController_Status(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())

	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = ctrl.Admit(t.Context(), "active",
			blockingOp(release),
			admission.Requirements{MemoryBytes: 512 << 20, CPUPercent: 40, Connections: 5},
			admission.PriorityNormal,
		)
	}()

	require.Eventually(t, func() bool {
		return ctrl.Status().Active == 1
	}, time.Second, 5*time.Millisecond)

	status := ctrl.Status()
	require.Equal(t, int64(512<<20), status.Usage.MemoryBytes)
	require.InDelta(t, 40.0, status.Usage.CPUPercent, 0.001)
	require.Equal(t, int64(5), status.Usage.Connections)
	require.Equal(t, smallLimits(), status.Limits)
	require.InDelta(t, 50.0, status.LoadPercent, 0.001)

	// With no intervening admit or release the snapshot is stable.
	require.Equal(t, status, ctrl.Status())

	close(release)
	<-done
}

func TestRun_TypedWrapper(t *testing.T) {
	t.Parallel()

	ctrl := admission.New(discardLogger(), smallLimits())

	got, err := admission.Run(t.Context(), ctrl, "typed",
		func(_ context.Context) (string, error) { return "hello", nil },
		admission.Requirements{MemoryBytes: 1 << 20},
		admission.PriorityNormal,
	)

	require.NoError(t, err)
	require.Equal(t, "hello", got)
}
