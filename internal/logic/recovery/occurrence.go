package recovery

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// occurrenceTracker keeps per-(operation, error) timestamps over a rolling
// window. It gates nothing in this package; it is a hook point for an
// external pattern monitor.
type occurrenceTracker struct {
	clock  clock.PassiveClock
	window time.Duration

	mu      sync.Mutex
	entries map[string][]time.Time
}

func newOccurrenceTracker(c clock.PassiveClock, window time.Duration) *occurrenceTracker {
	return &occurrenceTracker{
		clock:   c,
		window:  window,
		entries: make(map[string][]time.Time),
	}
}

// record notes one occurrence and prunes timestamps older than the window.
func (t *occurrenceTracker) record(operation, errName string) {
	now := t.clock.Now()
	key := operation + ":" + errName

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.entries[key][:0]

	for _, ts := range t.entries[key] {
		if now.Sub(ts) <= t.window {
			kept = append(kept, ts)
		}
	}

	t.entries[key] = append(kept, now)
}

// count returns the number of occurrences for the key within the window.
func (t *occurrenceTracker) count(operation, errName string) int {
	now := t.clock.Now()
	key := operation + ":" + errName

	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0

	for _, ts := range t.entries[key] {
		if now.Sub(ts) <= t.window {
			n++
		}
	}

	return n
}

// snapshot returns occurrence counts within the window for all keys.
func (t *occurrenceTracker) snapshot() map[string]int {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	result := make(map[string]int, len(t.entries))

	for key, stamps := range t.entries {
		n := 0

		for _, ts := range stamps {
			if now.Sub(ts) <= t.window {
				n++
			}
		}

		if n > 0 {
			result[key] = n
		}
	}

	return result
}
