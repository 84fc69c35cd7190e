package recovery

import (
	"fmt"
	"time"
)

// Severity is the classified seriousness of an error.
type Severity int

const (
	// SeverityRecoverable errors are eligible for retry up to a configured
	// bound, then fallback. This is also the safe default for anything the
	// classifier does not recognize.
	SeverityRecoverable Severity = iota

	// SeverityDegraded errors leave partial functionality available; prefer
	// graceful degradation over retrying.
	SeverityDegraded

	// SeverityFatal errors are terminal: no retry, immediate fail-safe.
	SeverityFatal
)

// String returns the metrics label for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityRecoverable:
		return "recoverable"
	case SeverityDegraded:
		return "degraded"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Action is the single recovery action chosen per error-handling invocation.
type Action int

const (
	ActionRetry Action = iota
	ActionFallback
	ActionGracefulDegradation
	ActionFailSafe
)

// String returns the metrics label for the action.
func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionGracefulDegradation:
		return "graceful_degradation"
	case ActionFailSafe:
		return "fail_safe"
	default:
		return "unknown"
	}
}

// NetworkErrorType categorizes network-specific failures for the fixed
// per-type recovery policy.
type NetworkErrorType int

const (
	NetworkErrorUnknown NetworkErrorType = iota
	NetworkErrorTimeout
	NetworkErrorRateLimit
	NetworkErrorConnectionFailed
	NetworkErrorServiceUnavailable
	NetworkErrorAuthenticationFailed
)

// String returns a human-readable representation of the network error type.
func (t NetworkErrorType) String() string {
	switch t {
	case NetworkErrorTimeout:
		return "timeout"
	case NetworkErrorRateLimit:
		return "rate_limit"
	case NetworkErrorConnectionFailed:
		return "connection_failed"
	case NetworkErrorServiceUnavailable:
		return "service_unavailable"
	case NetworkErrorAuthenticationFailed:
		return "authentication_failed"
	default:
		return "unknown"
	}
}

// Stage identifies the processing stage an error originated from. It keys
// the stage-specific fallback payloads.
type Stage string

const (
	StageValidation  Stage = "validation"
	StageEnhancement Stage = "enhancement"
	StageStructuring Stage = "structuring"
	StageGeneration  Stage = "generation"
)

// ErrorContext is caller-supplied context for one error-handling invocation.
// RetryCount is incremented by the caller across retry cycles; the
// coordinator never mutates it.
type ErrorContext struct {
	Operation  string
	Stage      Stage
	SessionID  string
	RetryCount int
	UserFacing bool
	Metadata   map[string]any
}

// Options configures a single HandleError invocation.
type Options struct {
	MaxRetries          int
	RetryDelay          time.Duration
	MaxRetryDelay       time.Duration
	EnableFallback      bool
	FallbackStrategy    string
	GracefulDegradation bool
}

// DefaultOptions returns the standard recovery options.
func DefaultOptions() Options {
	return Options{
		MaxRetries:          defaultMaxRetries,
		RetryDelay:          defaultRetryDelay,
		MaxRetryDelay:       defaultMaxRetryDelay,
		EnableFallback:      true,
		GracefulDegradation: true,
	}
}

// NetworkError is a typed network failure. Type is authoritative when set;
// classification only falls back to message and status-code matching when it
// is NetworkErrorUnknown.
type NetworkError struct {
	Type       NetworkErrorType
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error (%s): %v", e.Type, e.Err)
	}

	return fmt.Sprintf("network error (%s)", e.Type)
}

// Unwrap exposes the underlying cause.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NetworkRecoveryConfig is the construction-time policy for network error
// recovery.
type NetworkRecoveryConfig struct {
	MaxRetries         int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	TimeoutMultiplier  float64
	ExponentialBackoff bool
}

// DefaultNetworkRecoveryConfig returns the standard network recovery policy.
func DefaultNetworkRecoveryConfig() NetworkRecoveryConfig {
	return NetworkRecoveryConfig{
		MaxRetries:         defaultMaxRetries,
		BaseDelay:          defaultRetryDelay,
		MaxDelay:           defaultMaxRetryDelay,
		TimeoutMultiplier:  defaultTimeoutMultiplier,
		ExponentialBackoff: true,
	}
}

// DiagnosticInfo accompanies every recovery outcome.
type DiagnosticInfo struct {
	ErrorCode   string         `json:"errorCode"`
	Timestamp   time.Time      `json:"timestamp"`
	StackTrace  string         `json:"stackTrace,omitempty"`
	ContextData map[string]any `json:"contextData,omitempty"`
	RequestID   string         `json:"requestId"`
}

// Result is the outcome of one error-handling invocation.
type Result struct {
	Success           bool
	Action            Action
	Fallback          FallbackPayload
	FallbackApplied   bool
	UserMessage       string
	Diagnostics       DiagnosticInfo
	RetryDelay        time.Duration
	EstimatedRecovery time.Duration
}
