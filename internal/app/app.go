package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skillcoder/resource-gatekeeper/internal/config"
	"github.com/skillcoder/resource-gatekeeper/internal/httpserver"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/cronsched"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/metrics"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/pinger"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/shutdown"
	"github.com/skillcoder/resource-gatekeeper/internal/logic/admission"
	"github.com/skillcoder/resource-gatekeeper/internal/logic/recovery"
)

// App owns the wired component graph: the admission controller and recovery
// coordinator at the core, the HTTP/metrics/pinger/cron shell around them.
type App struct {
	logger      *slog.Logger
	appState    appstater
	admission   *admission.Controller
	recovery    *recovery.Coordinator
	httpServer  *httpserver.Server
	metricsSrv  *httpserver.MetricsServer
	cleanupCron *cronsched.Scheduler
}

// New creates a new application instance with all dependencies wired.
func New(logger *slog.Logger, cfg *config.Config, appState appstater) (*App, error) {
	controller := admission.New(
		logger,
		cfg.Limits,
		admission.WithPollInterval(cfg.PollInterval),
	)

	coordinator := recovery.NewCoordinator(logger, cfg.NetworkRecovery)

	httpServer := httpserver.New(logger, appState, controller, coordinator, cfg.HTTPPort)
	metricsServer := httpserver.NewMetricsServer(logger, cfg.MetricsPort)

	cleanupCron, err := cronsched.New(logger, "cleanup-scheduler", cfg.CleanupSchedule,
		func(ctx context.Context) {
			released, dropped := controller.Cleanup(ctx)
			if released > 0 || dropped > 0 {
				logger.InfoContext(ctx, "cleanup reclaimed operations",
					"forceReleased", released,
					"droppedQueued", dropped,
				)
			}
		})
	if err != nil {
		return nil, fmt.Errorf("create cleanup scheduler: %w", err)
	}

	return &App{
		logger:      logger,
		appState:    appState,
		admission:   controller,
		recovery:    coordinator,
		httpServer:  httpServer,
		metricsSrv:  metricsServer,
		cleanupCron: cleanupCron,
	}, nil
}

// Admission exposes the controller for host-process callers embedding the
// gatekeeper as a library.
func (a *App) Admission() *admission.Controller {
	return a.admission
}

// Recovery exposes the coordinator for host-process callers.
func (a *App) Recovery() *recovery.Coordinator {
	return a.recovery
}

// Run starts every component, marks the application running, and blocks
// until the context is cancelled, then shuts everything down in reverse
// order.
func (a *App) Run(originCtx context.Context) error {
	ctx, cancel := context.WithCancel(originCtx)
	defer cancel()

	signalHandler := shutdown.New(a.logger, a.appState)
	go signalHandler.HandleSignals(ctx, cancel)

	if err := a.appState.SetStarting(ctx); err != nil {
		return fmt.Errorf("set starting application state: %w", err)
	}

	if err := a.startComponents(ctx); err != nil {
		return err
	}

	if err := a.appState.SetRunning(ctx); err != nil {
		return fmt.Errorf("set running application state: %w", err)
	}

	a.logger.InfoContext(ctx, "resource gatekeeper running",
		"limits", fmt.Sprintf("%+v", a.admission.Status().Limits),
	)

	<-ctx.Done()

	return a.appState.Shutdown(originCtx)
}

func (a *App) startComponents(ctx context.Context) error {
	type component interface {
		shutdown.Shutdowner
		Start(ctx context.Context) error
	}

	components := []component{
		a.admission,
		a.metricsSrv,
		a.httpServer,
		a.cleanupCron,
	}

	for _, c := range components {
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}

		if err := a.appState.RegisterShutdowner(c); err != nil {
			return fmt.Errorf("register shutdowner %s: %w", c.Name(), err)
		}
	}

	pingers := []pinger.Pinger{a.admission, a.httpServer, a.metricsSrv}
	for _, p := range pingers {
		if err := a.appState.RegisterPinger(p); err != nil {
			return fmt.Errorf("register pinger %s: %w", p.Name(), err)
		}
	}

	// Keep the gauges truthful from the start, before any admission happens.
	status := a.admission.Status()
	metrics.SetLoadPercent(status.LoadPercent)
	metrics.SetQueueLength(status.Queued)

	return nil
}
