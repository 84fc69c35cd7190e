package recovery

import "time"

// RetryDelay computes the capped exponential backoff delay for the given
// retry count: min(base << retryCount, maxDelay).
func RetryDelay(retryCount int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		base = defaultRetryDelay
	}

	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	if retryCount < 0 {
		retryCount = 0
	}

	delay := base
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}

	return min(delay, maxDelay)
}
