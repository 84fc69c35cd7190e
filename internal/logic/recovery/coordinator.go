package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/skillcoder/resource-gatekeeper/internal/infra/metrics"
)

// contention is the private capability interface implemented by admission
// contention errors. Detected structurally so this package never imports the
// admission package.
type contention interface {
	ContentionWait() time.Duration
}

// Coordinator turns classified errors into one recovery action per
// invocation plus diagnostics and a user-facing message. It holds no state
// across invocations beyond the occurrence window.
type Coordinator struct {
	logger      *slog.Logger
	clock       clock.Clock
	netConfig   NetworkRecoveryConfig
	occurrences *occurrenceTracker
}

// CoordinatorOption configures optional coordinator behavior.
type CoordinatorOption func(*Coordinator)

// WithClock injects the time source. Tests use a fake clock.
func WithClock(c clock.Clock) CoordinatorOption {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// NewCoordinator creates a recovery coordinator with the given network
// recovery policy.
func NewCoordinator(logger *slog.Logger, netConfig NetworkRecoveryConfig, opts ...CoordinatorOption) *Coordinator {
	co := &Coordinator{
		logger:    logger,
		clock:     clock.RealClock{},
		netConfig: netConfig,
	}

	for _, opt := range opts {
		opt(co)
	}

	co.occurrences = newOccurrenceTracker(co.clock, occurrenceWindow)

	return co
}

// HandleError classifies the error, selects a single recovery action, and
// executes it. RETRY outcomes return after the backoff delay has elapsed;
// re-invoking the original operation is the caller's responsibility.
//
// The coordinator never lets a classified error escape as a plain failure;
// a panic inside its own fallback construction is the one condition that
// degrades to FAIL_SAFE with a wrapped diagnostic.
func (c *Coordinator) HandleError(ctx context.Context, err error, ectx ErrorContext, opts Options) (result Result) {
	now := c.clock.Now()
	severity := Classify(err)

	c.occurrences.record(ectx.Operation, errorToken(err))

	defer func() {
		if r := recover(); r != nil {
			wrapped := fmt.Errorf("recovery construction failed: %v: %w", r, err)
			result = c.failSafe(wrapped, severity, ectx, now)
		}

		metrics.RecordRecoveryAction(result.Action.String(), severity.String())
	}()

	action := c.selectAction(err, severity, ectx, opts)

	c.logger.DebugContext(ctx, "recovery action selected",
		"operation", ectx.Operation,
		"stage", string(ectx.Stage),
		"severity", severity.String(),
		"action", action.String(),
		"retryCount", ectx.RetryCount,
	)

	switch action {
	case ActionRetry:
		return c.retry(ctx, err, severity, ectx, opts, now)
	case ActionFallback:
		return Result{
			Success:         true,
			Action:          ActionFallback,
			Fallback:        fallbackFor(ectx.Stage),
			FallbackApplied: true,
			UserMessage:     userMessage(ActionFallback, severity, err, ectx),
			Diagnostics:     newDiagnostics(err, ectx, now),
		}
	case ActionGracefulDegradation:
		return Result{
			Success:           true,
			Action:            ActionGracefulDegradation,
			Fallback:          degradedFor(ectx.Stage),
			FallbackApplied:   true,
			UserMessage:       userMessage(ActionGracefulDegradation, severity, err, ectx),
			Diagnostics:       newDiagnostics(err, ectx, now),
			EstimatedRecovery: c.contentionWait(err),
		}
	default:
		return c.failSafe(err, severity, ectx, now)
	}
}

// selectAction is the per-invocation decision ladder:
// fatal, structural override, retry budget, fallback preference, fail-safe.
func (c *Coordinator) selectAction(err error, severity Severity, ectx ErrorContext, opts Options) Action {
	if severity == SeverityFatal {
		return ActionFailSafe
	}

	// Deterministic response-shape failures cannot be fixed by retrying, so
	// they skip the retry budget entirely.
	if isStructural(err) {
		return ActionFallback
	}

	if severity == SeverityRecoverable && ectx.RetryCount < opts.MaxRetries {
		return ActionRetry
	}

	if opts.EnableFallback {
		if severity == SeverityDegraded {
			return ActionGracefulDegradation
		}

		return ActionFallback
	}

	return ActionFailSafe
}

// retry waits out the capped exponential backoff, then hands control back to
// the caller for re-invocation. Cancellation during the wait degrades to
// fail-safe.
func (c *Coordinator) retry(
	ctx context.Context,
	err error,
	severity Severity,
	ectx ErrorContext,
	opts Options,
	now time.Time,
) Result {
	delay := RetryDelay(ectx.RetryCount, opts.RetryDelay, opts.MaxRetryDelay)

	metrics.ObserveRetryBackoff(delay.Seconds())

	if !c.sleep(ctx, delay) {
		return c.failSafe(fmt.Errorf("retry cancelled: %w", ctx.Err()), severity, ectx, now)
	}

	return Result{
		Success:     false,
		Action:      ActionRetry,
		UserMessage: userMessage(ActionRetry, severity, err, ectx),
		Diagnostics: newDiagnostics(err, ectx, now),
		RetryDelay:  delay,
	}
}

// HandleNetworkError applies the fixed per-type network recovery policy,
// bypassing the generic classifier's action selection.
func (c *Coordinator) HandleNetworkError(ctx context.Context, err error, ectx ErrorContext) Result {
	now := c.clock.Now()
	netType := ClassifyNetwork(err)

	c.occurrences.record(ectx.Operation, netType.String())

	c.logger.DebugContext(ctx, "network error",
		"operation", ectx.Operation,
		"type", netType.String(),
		"retryCount", ectx.RetryCount,
	)

	switch netType {
	case NetworkErrorTimeout:
		if ectx.RetryCount < c.netConfig.MaxRetries {
			return c.networkRetry(ctx, err, ectx, now, c.networkDelay(ectx.RetryCount))
		}

		return c.networkFallback(err, ectx, now)

	case NetworkErrorRateLimit:
		// Rate limits always retry, honoring the server-supplied window.
		retryAfter := retryAfterOf(err)

		return c.networkRetry(ctx, err, ectx, now, retryAfter)

	case NetworkErrorConnectionFailed:
		if ectx.RetryCount < maxConnectionRetries {
			return c.networkRetry(ctx, err, ectx, now, c.networkDelay(ectx.RetryCount))
		}

		return c.networkFallback(err, ectx, now)

	case NetworkErrorServiceUnavailable:
		result := Result{
			Success:           true,
			Action:            ActionGracefulDegradation,
			Fallback:          degradedFor(ectx.Stage),
			FallbackApplied:   true,
			UserMessage:       userMessage(ActionGracefulDegradation, SeverityDegraded, err, ectx),
			Diagnostics:       newDiagnostics(err, ectx, now),
			EstimatedRecovery: serviceUnavailableRecovery,
		}

		metrics.RecordRecoveryAction(result.Action.String(), SeverityDegraded.String())

		return result

	case NetworkErrorAuthenticationFailed:
		// Credentials do not become valid by waiting.
		result := c.failSafe(err, SeverityFatal, ectx, now)

		metrics.RecordRecoveryAction(result.Action.String(), SeverityFatal.String())

		return result

	default:
		if ectx.RetryCount < 1 {
			return c.networkRetry(ctx, err, ectx, now, c.networkDelay(ectx.RetryCount))
		}

		return c.networkFallback(err, ectx, now)
	}
}

func (c *Coordinator) networkDelay(retryCount int) time.Duration {
	if !c.netConfig.ExponentialBackoff {
		return c.netConfig.BaseDelay
	}

	return RetryDelay(retryCount, c.netConfig.BaseDelay, c.netConfig.MaxDelay)
}

func (c *Coordinator) networkRetry(
	ctx context.Context,
	err error,
	ectx ErrorContext,
	now time.Time,
	delay time.Duration,
) Result {
	metrics.RecordRecoveryAction(ActionRetry.String(), SeverityDegraded.String())
	metrics.ObserveRetryBackoff(delay.Seconds())

	if !c.sleep(ctx, delay) {
		return c.failSafe(fmt.Errorf("retry cancelled: %w", ctx.Err()), SeverityDegraded, ectx, now)
	}

	return Result{
		Success:           false,
		Action:            ActionRetry,
		UserMessage:       userMessage(ActionRetry, SeverityDegraded, err, ectx),
		Diagnostics:       newDiagnostics(err, ectx, now),
		RetryDelay:        delay,
		EstimatedRecovery: delay,
	}
}

func (c *Coordinator) networkFallback(err error, ectx ErrorContext, now time.Time) Result {
	metrics.RecordRecoveryAction(ActionFallback.String(), SeverityDegraded.String())

	return Result{
		Success:         true,
		Action:          ActionFallback,
		Fallback:        fallbackFor(ectx.Stage),
		FallbackApplied: true,
		UserMessage:     userMessage(ActionFallback, SeverityDegraded, err, ectx),
		Diagnostics:     newDiagnostics(err, ectx, now),
	}
}

func (c *Coordinator) failSafe(err error, severity Severity, ectx ErrorContext, now time.Time) Result {
	return Result{
		Success:     false,
		Action:      ActionFailSafe,
		UserMessage: userMessage(ActionFailSafe, severity, err, ectx),
		Diagnostics: newDiagnostics(err, ectx, now),
	}
}

// contentionWait extracts the estimated wait when the error originated in
// the admission controller.
func (c *Coordinator) contentionWait(err error) time.Duration {
	var target contention
	if errors.As(err, &target) {
		return target.ContentionWait()
	}

	return 0
}

// sleep blocks for d or until the context is cancelled, reporting whether
// the full delay elapsed.
func (c *Coordinator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C():
		return true
	}
}

// OccurrenceCount returns how many times the (operation, error) pair was
// seen within the rolling window.
func (c *Coordinator) OccurrenceCount(operation, errName string) int {
	return c.occurrences.count(operation, errName)
}

// OccurrenceSnapshot returns in-window occurrence counts for every tracked
// (operation, error) pair.
func (c *Coordinator) OccurrenceSnapshot() map[string]int {
	return c.occurrences.snapshot()
}

// retryAfterOf extracts a server-supplied retry window from a typed network
// error, defaulting when absent.
func retryAfterOf(err error) time.Duration {
	var nerr *NetworkError
	if errors.As(err, &nerr) && nerr.RetryAfter > 0 {
		return nerr.RetryAfter
	}

	return defaultRateLimitRetryAfter
}
