package admission

import (
	"context"
	"time"
)

// Priority is the ordinal priority class of an operation. Lower values are
// more urgent; the zero value is PriorityCritical on purpose so that a caller
// who forgets to set it never gets silently dropped under contention.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// String returns a human-readable representation of the priority class.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Queueable reports whether an operation of this priority waits for capacity
// under contention. NORMAL and LOW work fails fast instead, as deliberate
// backpressure against unbounded queue growth from low-value work.
func (p Priority) Queueable() bool {
	return p == PriorityCritical || p == PriorityHigh
}

// Requirements declares the expected cost of an operation across the tracked
// resource dimensions. The caller supplies it at submission time; it is never
// inferred and never mutated by the controller.
type Requirements struct {
	// MemoryBytes is the expected peak memory footprint in bytes.
	MemoryBytes int64

	// CPUPercent is expected CPU consumption in percentage points (0-100).
	CPUPercent float64

	// BandwidthBytesPerSec is expected network bandwidth in bytes per second.
	BandwidthBytesPerSec int64

	// Connections is the number of concurrent outbound connections held.
	Connections int64
}

// Limits is the process-wide ceiling for each resource dimension plus the
// concurrent operation count. Configured once at controller construction.
type Limits struct {
	MemoryBytes          int64
	CPUPercent           float64
	BandwidthBytesPerSec int64
	Connections          int64
	MaxOperations        int64
}

// Operation is the unit of work submitted for admission. The controller knows
// nothing about what it does, only how expensive it claims to be.
type Operation func(ctx context.Context) (any, error)

// Outcome is the high-level final state of an operation's trip through the
// controller. Low-cardinality by design; it is used as a metrics label.
type Outcome int

const (
	// OutcomeAdmitted means the operation ran (successfully or not) under a
	// reservation that was released on exit.
	OutcomeAdmitted Outcome = iota

	// OutcomeRejectedCapacity means a NORMAL/LOW operation was refused
	// immediately because its requirements did not fit.
	OutcomeRejectedCapacity

	// OutcomeRejectedShutdown means admission was refused because the
	// controller is not running.
	OutcomeRejectedShutdown

	// OutcomeEvictedCancelled means a queued operation's context was
	// cancelled before it reached the head of the queue.
	OutcomeEvictedCancelled

	// OutcomeEvictedExpired means a queued operation exceeded the maximum
	// queue age and was dropped by Cleanup.
	OutcomeEvictedExpired
)

// String returns the metrics label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAdmitted:
		return "admitted"
	case OutcomeRejectedCapacity:
		return "rejected_capacity"
	case OutcomeRejectedShutdown:
		return "rejected_shutdown"
	case OutcomeEvictedCancelled:
		return "evicted_cancelled"
	case OutcomeEvictedExpired:
		return "evicted_expired"
	default:
		return "unknown"
	}
}

// Usage is a point-in-time snapshot of the ledger totals.
type Usage struct {
	MemoryBytes          int64   `json:"memoryBytes"`
	CPUPercent           float64 `json:"cpuPercent"`
	BandwidthBytesPerSec int64   `json:"bandwidthBytesPerSec"`
	Connections          int64   `json:"connections"`
	Operations           int64   `json:"operations"`
}

// SystemStatus is the observability snapshot returned by Controller.Status.
type SystemStatus struct {
	Usage       Usage   `json:"usage"`
	Limits      Limits  `json:"limits"`
	Active      int     `json:"activeOperations"`
	Queued      int     `json:"queuedOperations"`
	LoadPercent float64 `json:"loadPercent"`
}

// DurationEstimator predicts how long an operation with the given cost will
// run. It only orders queue promotion and wait estimates; it does not bound
// actual execution time.
type DurationEstimator func(req Requirements) time.Duration
