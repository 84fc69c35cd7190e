package appstate

import (
	"context"

	"github.com/skillcoder/resource-gatekeeper/internal/infra/pinger"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/shutdown"
)

// pingerServer is an internal interface for pinger management
type pingerServer interface {
	shutdown.Shutdowner
	Start(ctx context.Context) error
	Register(pinger pinger.Pinger) error
	GetAllStats() map[string]*pinger.Statistics
}
