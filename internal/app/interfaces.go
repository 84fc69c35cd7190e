package app

import (
	"context"
	"os"
	"time"

	"github.com/skillcoder/resource-gatekeeper/internal/infra/appstate"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/pinger"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/shutdown"
)

// appstater defines the interface for application state management
type appstater interface {
	RegisterPinger(pinger pinger.Pinger) error
	RegisterShutdowner(shutdowner shutdown.Shutdowner) error
	GetAllStats() map[string]*pinger.Statistics
	Quit() <-chan os.Signal
	SetStarting(ctx context.Context) error
	SetRunning(ctx context.Context) error
	SetTerminating(ctx context.Context) error
	GetStartTime() time.Time
	GetState() appstate.State
	GetUptime() time.Duration
	IsHealthy() bool
	IsReady() bool
	Shutdown(ctx context.Context) error
}
