package recovery

import "time"

const (
	defaultMaxRetries        = 3
	defaultRetryDelay        = 1 * time.Second
	defaultMaxRetryDelay     = 30 * time.Second
	defaultTimeoutMultiplier = 1.5

	// defaultRateLimitRetryAfter applies when the server did not supply a
	// Retry-After value.
	defaultRateLimitRetryAfter = 60 * time.Second

	// serviceUnavailableRecovery is the fixed recovery estimate reported for
	// service-unavailable degradation.
	serviceUnavailableRecovery = 2 * time.Minute

	// maxConnectionRetries caps connection-failure retries independently of
	// the configured retry budget.
	maxConnectionRetries = 2

	// occurrenceWindow is the rolling window over which error occurrences
	// are retained for pattern observation.
	occurrenceWindow = 10 * time.Minute
)
