package admission

import "time"

// operationTracking is the per-execution record kept while an operation holds
// a reservation. Created at admit, destroyed at release; feeds the wait-time
// estimator with projected availability.
type operationTracking struct {
	id           string
	name         string
	requirements Requirements
	startedAt    time.Time
	estimatedEnd time.Time
}

func (t *operationTracking) age(now time.Time) time.Duration {
	return now.Sub(t.startedAt)
}
