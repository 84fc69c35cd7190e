package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/skillcoder/resource-gatekeeper/internal/infra/metrics"
)

// Controller decides whether submitted operations run immediately, wait for
// capacity, or are rejected, under the configured resource limits. Each
// instance owns its ledger and wait queue exclusively; nothing else reads or
// writes them.
type Controller struct {
	logger   *slog.Logger
	clock    clock.WithTicker
	estimate DurationEstimator

	pollInterval time.Duration
	maxActiveAge time.Duration
	maxQueueAge  time.Duration

	mu     sync.Mutex
	ledger *Ledger
	active map[string]*operationTracking
	queue  *waitQueue

	// releaseCh carries a wake-up to the promote loop whenever a reservation
	// is released. Buffered so a release never blocks on a busy promoter.
	releaseCh  chan struct{}
	ready      chan struct{}
	doneCh     chan struct{}
	inShutdown atomic.Bool
	started    atomic.Bool
}

// Option configures optional controller behavior.
type Option func(*Controller)

// WithClock injects the time source. Tests use a fake clock.
func WithClock(c clock.WithTicker) Option {
	return func(ctrl *Controller) {
		ctrl.clock = c
	}
}

// WithDurationEstimator replaces the default linear duration model.
func WithDurationEstimator(e DurationEstimator) Option {
	return func(ctrl *Controller) {
		ctrl.estimate = e
	}
}

// WithPollInterval overrides the safety-net queue re-check period.
func WithPollInterval(d time.Duration) Option {
	return func(ctrl *Controller) {
		ctrl.pollInterval = d
	}
}

// WithCleanupAges overrides the stuck-operation and stale-queue thresholds
// used by Cleanup.
func WithCleanupAges(maxActive, maxQueued time.Duration) Option {
	return func(ctrl *Controller) {
		ctrl.maxActiveAge = maxActive
		ctrl.maxQueueAge = maxQueued
	}
}

// New creates an admission controller bounded by the given limits.
func New(logger *slog.Logger, limits Limits, opts ...Option) *Controller {
	ctrl := &Controller{
		logger:       logger,
		clock:        clock.RealClock{},
		estimate:     EstimateDuration,
		pollInterval: defaultPollInterval,
		maxActiveAge: defaultMaxActiveAge,
		maxQueueAge:  defaultMaxQueueAge,
		ledger:       NewLedger(limits),
		active:       make(map[string]*operationTracking),
		queue:        newWaitQueue(),
		releaseCh:    make(chan struct{}, 1),
		ready:        make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ctrl)
	}

	return ctrl
}

// Name returns the name of the admission controller component.
func (c *Controller) Name() string {
	return "admission-controller"
}

// Start launches the queue promotion loop.
func (c *Controller) Start(ctx context.Context) error {
	if c.inShutdown.Load() {
		c.logger.InfoContext(ctx, "admission controller is shutting down, skipping start")

		return nil
	}

	if !c.started.CompareAndSwap(false, true) {
		return nil
	}

	go c.run(ctx)

	return nil
}

// Ready returns a channel that is closed when the promotion loop is running.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Ping reports whether the controller is accepting work.
func (c *Controller) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ready:
		if c.inShutdown.Load() {
			return ErrNotRunning
		}

		return nil
	default:
		return fmt.Errorf("admission controller is not ready")
	}
}

// Shutdown stops the promotion loop and evicts all queued waiters.
func (c *Controller) Shutdown(ctx context.Context) error {
	if !c.inShutdown.CompareAndSwap(false, true) {
		c.logger.ErrorContext(ctx, "admission controller is already shutting down, skipping shutdown")

		return nil
	}

	defer func() {
		c.logger.InfoContext(ctx, "admission controller shut downed")
	}()

	c.logger.InfoContext(ctx, "shutting down admission controller")

	c.evictAll()
	c.notifyRelease()

	if !c.started.Load() {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before promotion loop exited: %w", ctx.Err())
	case <-c.doneCh:
		c.logger.InfoContext(ctx, "promotion loop exited")
	}

	return nil
}

// Admit runs the operation under a resource reservation. If the declared cost
// does not currently fit, CRITICAL/HIGH operations wait in the priority queue
// and NORMAL/LOW operations are rejected immediately with an estimated wait.
// The reservation is released on every exit path, including panic.
func (c *Controller) Admit(
	ctx context.Context,
	name string,
	op Operation,
	req Requirements,
	priority Priority,
) (any, error) {
	if c.inShutdown.Load() {
		metrics.RecordAdmissionOutcome(OutcomeRejectedShutdown.String(), priority.String())

		return nil, &ContentionError{
			OperationName: name,
			Requirements:  req,
			Err:           ErrNotRunning,
		}
	}

	id := uuid.NewString()

	c.mu.Lock()

	if c.ledger.Fits(req) {
		c.reserveLocked(id, name, req)
		c.mu.Unlock()

		return c.execute(ctx, id, name, op, req, priority)
	}

	if !priority.Queueable() {
		wait := c.estimateWait(req)
		c.mu.Unlock()

		c.logger.DebugContext(ctx, "operation rejected",
			"operation", name,
			"priority", priority.String(),
			"estimatedWait", wait,
		)
		metrics.RecordAdmissionOutcome(OutcomeRejectedCapacity.String(), priority.String())

		return nil, &ContentionError{
			OperationID:   id,
			OperationName: name,
			Requirements:  req,
			EstimatedWait: wait,
			Suggestion:    rejectSuggestion,
			Err:           ErrRejected,
		}
	}

	entry := &queuedOperation{
		id:           id,
		name:         name,
		priority:     priority,
		requirements: req,
		enqueuedAt:   c.clock.Now(),
		estimated:    c.estimate(req),
		decision:     make(chan error, 1),
	}

	c.queue.push(entry)
	metrics.SetQueueLength(c.queue.len())
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "operation queued",
		"operation", name,
		"priority", priority.String(),
		"id", id,
	)

	return c.waitForPromotion(ctx, entry, op)
}

// waitForPromotion blocks until the promoter reserves resources for the
// queued entry, the entry is evicted, or the caller's context is cancelled.
func (c *Controller) waitForPromotion(
	ctx context.Context,
	entry *queuedOperation,
	op Operation,
) (any, error) {
	select {
	case err := <-entry.decision:
		if err != nil {
			outcome := OutcomeEvictedExpired
			if errors.Is(err, ErrNotRunning) {
				outcome = OutcomeRejectedShutdown
			}

			metrics.RecordAdmissionOutcome(outcome.String(), entry.priority.String())

			return nil, err
		}

		return c.execute(ctx, entry.id, entry.name, op, entry.requirements, entry.priority)

	case <-ctx.Done():
		c.mu.Lock()
		removed := c.queue.remove(entry.id)
		metrics.SetQueueLength(c.queue.len())
		c.mu.Unlock()

		if removed {
			metrics.RecordAdmissionOutcome(OutcomeEvictedCancelled.String(), entry.priority.String())

			return nil, &ContentionError{
				OperationID:   entry.id,
				OperationName: entry.name,
				Requirements:  entry.requirements,
				Err:           fmt.Errorf("%w: %w", ErrEvicted, ctx.Err()),
			}
		}

		// The promoter already dequeued this entry; its decision is in
		// flight. Honor it so a granted reservation is never leaked.
		err := <-entry.decision
		if err == nil {
			c.release(entry.id, entry.requirements)

			err = &ContentionError{
				OperationID:   entry.id,
				OperationName: entry.name,
				Requirements:  entry.requirements,
				Err:           fmt.Errorf("%w: %w", ErrEvicted, ctx.Err()),
			}
		}

		metrics.RecordAdmissionOutcome(OutcomeEvictedCancelled.String(), entry.priority.String())

		return nil, err
	}
}

// execute runs the operation under an already-held reservation and releases
// it on every exit path. A failure inside the operation is wrapped into a
// ContentionError carrying the id and the original requirements.
func (c *Controller) execute(
	ctx context.Context,
	id string,
	name string,
	op Operation,
	req Requirements,
	priority Priority,
) (result any, err error) {
	defer c.release(id, req)
	defer func() {
		if r := recover(); r != nil {
			err = &ContentionError{
				OperationID:   id,
				OperationName: name,
				Requirements:  req,
				Err:           fmt.Errorf("operation panicked: %v", r),
			}
		}
	}()

	metrics.RecordAdmissionOutcome(OutcomeAdmitted.String(), priority.String())

	result, opErr := op(ctx)
	if opErr != nil {
		return nil, &ContentionError{
			OperationID:   id,
			OperationName: name,
			Requirements:  req,
			Err:           fmt.Errorf("operation failed: %w", opErr),
		}
	}

	return result, nil
}

// reserveLocked increments the ledger and records tracking. Callers hold the
// controller lock.
func (c *Controller) reserveLocked(id, name string, req Requirements) {
	now := c.clock.Now()

	c.ledger.Reserve(req)
	c.active[id] = &operationTracking{
		id:           id,
		name:         name,
		requirements: req,
		startedAt:    now,
		estimatedEnd: now.Add(c.estimate(req)),
	}

	c.publishGauges()
}

// release decrements the ledger, drops tracking, and wakes the promoter.
// Safe to call once per reservation from any exit path; a second call for
// the same id is a no-op.
func (c *Controller) release(id string, req Requirements) {
	c.mu.Lock()

	if _, ok := c.active[id]; !ok {
		c.mu.Unlock()

		return
	}

	delete(c.active, id)
	c.ledger.Release(req)
	c.publishGauges()
	c.mu.Unlock()

	c.notifyRelease()
}

func (c *Controller) notifyRelease() {
	select {
	case c.releaseCh <- struct{}{}:
	default:
	}
}

// run is the promotion loop. Normally it wakes on release notifications; the
// ticker is a safety net against a missed wake-up.
func (c *Controller) run(ctx context.Context) {
	defer close(c.doneCh)

	logger := c.logger.With("component", "promotion-loop")

	ticker := c.clock.NewTicker(c.pollInterval)
	defer ticker.Stop()

	close(c.ready)

	for {
		if c.inShutdown.Load() {
			logger.InfoContext(ctx, "terminating promotion loop")

			return
		}

		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "terminating promotion loop")
			c.evictAll()

			return
		case <-c.releaseCh:
			c.promoteHead()
		case <-ticker.C():
			c.promoteHead()
		}
	}
}

// promoteHead admits the queue head if its requirements fit. Only the head is
// evaluated per wake-up; when it is promoted another wake-up is queued so the
// next head gets its own evaluation promptly.
func (c *Controller) promoteHead() {
	c.mu.Lock()

	head := c.queue.head()
	if head == nil || !c.ledger.Fits(head.requirements) {
		c.mu.Unlock()

		return
	}

	c.queue.popHead()
	c.reserveLocked(head.id, head.name, head.requirements)
	metrics.SetQueueLength(c.queue.len())
	c.mu.Unlock()

	head.decision <- nil

	c.notifyRelease()
}

// evictAll drains the wait queue on shutdown, waking every waiter with a
// rejection.
func (c *Controller) evictAll() {
	c.mu.Lock()

	evicted := c.queue.items
	c.queue.items = nil
	metrics.SetQueueLength(0)
	c.mu.Unlock()

	for _, entry := range evicted {
		entry.decision <- &ContentionError{
			OperationID:   entry.id,
			OperationName: entry.name,
			Requirements:  entry.requirements,
			Err:           fmt.Errorf("%w: %w", ErrEvicted, ErrNotRunning),
		}
	}
}

// Cleanup reclaims reservations held longer than the stuck threshold and
// drops queued entries older than the stale threshold. It defends against
// leaked releases and abandoned callers and is meant to be invoked
// periodically by an external scheduler.
func (c *Controller) Cleanup(ctx context.Context) (released, dropped int) {
	now := c.clock.Now()

	c.mu.Lock()

	var stuck []*operationTracking

	for _, t := range c.active {
		if t.age(now) > c.maxActiveAge {
			stuck = append(stuck, t)
		}
	}

	for _, t := range stuck {
		delete(c.active, t.id)
		c.ledger.Release(t.requirements)
	}

	expired := c.queue.expire(now, c.maxQueueAge)

	c.publishGauges()
	metrics.SetQueueLength(c.queue.len())
	c.mu.Unlock()

	for _, t := range stuck {
		c.logger.WarnContext(ctx, "force released stuck operation",
			"operation", t.name,
			"id", t.id,
			"age", now.Sub(t.startedAt),
		)
	}

	for _, entry := range expired {
		entry.decision <- &ContentionError{
			OperationID:   entry.id,
			OperationName: entry.name,
			Requirements:  entry.requirements,
			Err:           fmt.Errorf("%w: %w", ErrEvicted, ErrQueueExpired),
		}

		c.logger.WarnContext(ctx, "dropped stale queued operation",
			"operation", entry.name,
			"id", entry.id,
			"queuedFor", now.Sub(entry.enqueuedAt),
		)
	}

	if len(stuck) > 0 || len(expired) > 0 {
		c.notifyRelease()
	}

	metrics.RecordCleanupReclaims("stuck", len(stuck))
	metrics.RecordCleanupReclaims("stale_queued", len(expired))

	return len(stuck), len(expired)
}

// Status returns a point-in-time snapshot of usage, limits, and load.
func (c *Controller) Status() SystemStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SystemStatus{
		Usage:       c.ledger.Used(),
		Limits:      c.ledger.Limits(),
		Active:      len(c.active),
		Queued:      c.queue.len(),
		LoadPercent: c.ledger.LoadPercent(),
	}
}

// publishGauges pushes the ledger snapshot to the metrics registry. Callers
// hold the controller lock.
func (c *Controller) publishGauges() {
	metrics.SetResourceUsage(
		float64(c.ledger.used.MemoryBytes),
		c.ledger.used.CPUPercent,
		float64(c.ledger.used.BandwidthBytesPerSec),
		float64(c.ledger.used.Connections),
		float64(c.ledger.used.Operations),
	)
	metrics.SetLoadPercent(c.ledger.LoadPercent())
}

// Run is a typed convenience wrapper around Controller.Admit.
func Run[T any](
	ctx context.Context,
	c *Controller,
	name string,
	op func(ctx context.Context) (T, error),
	req Requirements,
	priority Priority,
) (T, error) {
	result, err := c.Admit(ctx, name, func(ctx context.Context) (any, error) {
		return op(ctx)
	}, req, priority)
	if err != nil {
		var zero T

		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		var zero T

		return zero, fmt.Errorf("unexpected operation result type %T", result)
	}

	return typed, nil
}
