package httpserver

import (
	"time"

	"github.com/skillcoder/resource-gatekeeper/internal/infra/appstate"
	"github.com/skillcoder/resource-gatekeeper/internal/infra/pinger"
	"github.com/skillcoder/resource-gatekeeper/internal/logic/admission"
)

// appstater is an internal interface for application state management
type appstater interface {
	GetState() appstate.State
	IsHealthy() bool
	IsReady() bool
	GetUptime() time.Duration
	GetStartTime() time.Time
	GetAllStats() map[string]*pinger.Statistics
}

// admissionStatuser exposes the admission controller snapshot for /-/status.
type admissionStatuser interface {
	Status() admission.SystemStatus
}

// occurrenceSnapshotter exposes in-window error occurrence counts.
type occurrenceSnapshotter interface {
	OccurrenceSnapshot() map[string]int
}
