package cronsched

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	cron "github.com/netresearch/go-cron"
)

var _parser = cron.MustNewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Job is the work invoked on each cron occurrence.
type Job func(ctx context.Context)

// Scheduler runs a single job on a cron schedule. Occurrences are computed
// with go-cron in UTC; a run that overlaps the next occurrence delays it
// rather than running concurrently.
type Scheduler struct {
	logger     *slog.Logger
	name       string
	schedule   cron.Schedule
	job        Job
	doneCh     chan struct{}
	inShutdown atomic.Bool
}

// New creates a scheduler for the given cron spec (five-field, UTC).
func New(logger *slog.Logger, name, spec string, job Job) (*Scheduler, error) {
	schedule, err := _parser.Parse("CRON_TZ=UTC " + spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	return &Scheduler{
		logger:   logger,
		name:     name,
		schedule: schedule,
		job:      job,
		doneCh:   make(chan struct{}),
	}, nil
}

// Name returns the name of the scheduler component.
func (s *Scheduler) Name() string {
	return s.name
}

// Start launches the schedule loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "scheduler is shutting down, skipping start", "name", s.name)

		return nil
	}

	go s.run(ctx)

	return nil
}

// Shutdown stops the schedule loop.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.ErrorContext(ctx, "scheduler is already shutting down, skipping shutdown", "name", s.name)

		return nil
	}

	defer func() {
		s.logger.InfoContext(ctx, "scheduler shut downed", "name", s.name)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before scheduler loop exited: %w", ctx.Err())
	case <-s.doneCh:
	}

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	logger := s.logger.With("component", s.name)

	for {
		if s.inShutdown.Load() {
			logger.InfoContext(ctx, "terminating scheduler loop")

			return
		}

		next := s.schedule.Next(time.Now())

		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "terminating scheduler loop")

			return
		case <-time.After(time.Until(next)):
			start := time.Now()
			s.job(ctx)
			logger.DebugContext(ctx, "scheduled job completed", "duration", time.Since(start))
		}
	}
}
