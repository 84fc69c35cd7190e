package recovery

import (
	"errors"
	"strings"
)

// Keyword groups for severity classification, checked in priority order over
// the lower-cased error message. Classification is message-based rather than
// type-based because upstream SDK errors arrive flattened to strings.
var (
	fatalPhrases = []string{
		"authentication",
		"unauthorized",
		"permission denied",
		"forbidden",
		"invalid api key",
		"invalid key",
		"api key",
	}

	degradedPhrases = []string{
		"rate limit",
		"quota",
		"too many requests",
		"unavailable",
		"overloaded",
		"timeout",
		"timed out",
	}

	recoverablePhrases = []string{
		"malformed",
		"invalid response",
		"json",
		"missing required field",
		"missing field",
		"empty prompt",
		"unsafe content",
	}
)

// structuralPhrases mark deterministic API-response-shape failures that
// retrying cannot fix; the coordinator maps them straight to fallback.
var structuralPhrases = []string{
	"invalid response",
	"malformed",
	"json",
	"missing required field",
	"missing field",
	"empty prompt",
}

// Classify maps an error to a severity by keyword matching. Unrecognized
// errors are RECOVERABLE: an unknown failure must never be silently treated
// as fatal.
func Classify(err error) Severity {
	if err == nil {
		return SeverityRecoverable
	}

	msg := strings.ToLower(err.Error())

	for _, phrase := range fatalPhrases {
		if strings.Contains(msg, phrase) {
			return SeverityFatal
		}
	}

	for _, phrase := range degradedPhrases {
		if strings.Contains(msg, phrase) {
			return SeverityDegraded
		}
	}

	for _, phrase := range recoverablePhrases {
		if strings.Contains(msg, phrase) {
			return SeverityRecoverable
		}
	}

	return SeverityRecoverable
}

// ClassifyNetwork maps an error to a network error category. A typed
// NetworkError with an explicit Type takes precedence; otherwise the message
// and embedded status code are pattern-matched.
func ClassifyNetwork(err error) NetworkErrorType {
	if err == nil {
		return NetworkErrorUnknown
	}

	var nerr *NetworkError
	if errors.As(err, &nerr) {
		if nerr.Type != NetworkErrorUnknown {
			return nerr.Type
		}

		if t := classifyStatusCode(nerr.StatusCode); t != NetworkErrorUnknown {
			return t
		}
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return NetworkErrorTimeout
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return NetworkErrorRateLimit
	case strings.Contains(msg, "econnrefused") || strings.Contains(msg, "connection refused"):
		return NetworkErrorConnectionFailed
	case strings.Contains(msg, "503") || strings.Contains(msg, "service unavailable"):
		return NetworkErrorServiceUnavailable
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden"):
		return NetworkErrorAuthenticationFailed
	default:
		return NetworkErrorUnknown
	}
}

func classifyStatusCode(code int) NetworkErrorType {
	switch code {
	case 429:
		return NetworkErrorRateLimit
	case 503:
		return NetworkErrorServiceUnavailable
	case 401, 403:
		return NetworkErrorAuthenticationFailed
	default:
		return NetworkErrorUnknown
	}
}

// isStructural reports whether the error message indicates a deterministic
// response-shape failure.
func isStructural(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	for _, phrase := range structuralPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}

	return false
}
