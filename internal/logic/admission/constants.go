package admission

import "time"

const (
	// defaultPollInterval is the safety-net re-check period for the wait
	// queue. Promotion is normally release-driven; the ticker only covers a
	// missed notification.
	defaultPollInterval = 1 * time.Second

	// defaultMaxActiveAge is how long an operation may hold a reservation
	// before Cleanup presumes its release leaked and reclaims it.
	defaultMaxActiveAge = 5 * time.Minute

	// defaultMaxQueueAge is how long an operation may sit in the wait queue
	// before Cleanup drops it as abandoned.
	defaultMaxQueueAge = 10 * time.Minute

	// percentScale is the multiplier for ratio-to-percentage conversion.
	percentScale = 100
)

const (
	rejectSuggestion = "System busy — try again in a few moments"
)
