package admission

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRejected marks a refusal that happened before the operation was
	// queued or executed. Check with errors.Is.
	ErrRejected = errors.New("admission rejected")

	// ErrEvicted marks removal of an operation from the wait queue for any
	// reason other than promotion to execution.
	ErrEvicted = errors.New("evicted from wait queue")

	// ErrQueueExpired is wrapped by ErrEvicted when a queued operation
	// exceeded the maximum queue age.
	ErrQueueExpired = errors.New("queue wait expired")

	// ErrNotRunning is returned when work is submitted to a controller that
	// has not been started or is shutting down.
	ErrNotRunning = errors.New("admission controller is not running")
)

// ContentionError is the single error type crossing the Admit contract. It
// covers both "the system was too busy to take this work" and "the operation
// itself failed while tracked"; the two are distinguished through the wrapped
// cause, not through separate types.
type ContentionError struct {
	OperationID   string
	OperationName string
	Requirements  Requirements
	EstimatedWait time.Duration
	Suggestion    string
	Err           error
}

// Error implements the error interface.
func (e *ContentionError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("operation %s: %v: %s", e.OperationName, e.Err, e.Suggestion)
	}

	return fmt.Sprintf("operation %s: %v", e.OperationName, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *ContentionError) Unwrap() error {
	return e.Err
}

// ContentionWait reports the estimated wait until capacity frees up. It lets
// other packages recognize contention without importing this one.
func (e *ContentionError) ContentionWait() time.Duration {
	return e.EstimatedWait
}
