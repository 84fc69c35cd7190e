package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/skillcoder/resource-gatekeeper/internal/infra/pinger"
	"github.com/skillcoder/resource-gatekeeper/internal/logic/admission"
)

type statusResponse struct {
	State       string                        `json:"state"`
	Uptime      string                        `json:"uptime"`
	StartTime   time.Time                     `json:"startTime"`
	UptimeSec   float64                       `json:"uptimeSeconds"`
	Admission   admission.SystemStatus        `json:"admission"`
	Occurrences map[string]int                `json:"errorOccurrences,omitempty"`
	Pingers     map[string]*pinger.Statistics `json:"pingers,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.appState.IsHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.appState.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uptime := s.appState.GetUptime()

	response := statusResponse{
		State:     string(s.appState.GetState()),
		Uptime:    uptime.String(),
		StartTime: s.appState.GetStartTime(),
		UptimeSec: uptime.Seconds(),
		Admission: s.admission.Status(),
		Pingers:   s.appState.GetAllStats(),
	}

	if s.occurrences != nil {
		response.Occurrences = s.occurrences.OccurrenceSnapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.ErrorContext(ctx, "failed to encode status response",
			"error", err,
		)
	}
}
