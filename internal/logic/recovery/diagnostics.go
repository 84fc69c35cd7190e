package recovery

import (
	"fmt"
	"maps"
	"runtime/debug"
	"strings"
	"time"
)

const errorCodeDigits = 10000

// newDiagnostics assembles the diagnostic record attached to every recovery
// outcome. The error code is STAGE_ERRORTYPE_<last four digits of the
// timestamp>; the request id ties the outcome back to the caller's session.
func newDiagnostics(err error, ectx ErrorContext, now time.Time) DiagnosticInfo {
	ts := now.UnixMilli()

	contextData := map[string]any{
		"operation":  ectx.Operation,
		"stage":      string(ectx.Stage),
		"retryCount": ectx.RetryCount,
		"userFacing": ectx.UserFacing,
	}
	maps.Copy(contextData, ectx.Metadata)

	return DiagnosticInfo{
		ErrorCode:   errorCode(err, ectx.Stage, ts),
		Timestamp:   now,
		StackTrace:  string(debug.Stack()),
		ContextData: contextData,
		RequestID:   fmt.Sprintf("%s-%s-%d", ectx.SessionID, ectx.Operation, ts),
	}
}

func errorCode(err error, stage Stage, ts int64) string {
	return fmt.Sprintf("%s_%s_%04d",
		strings.ToUpper(string(stage)),
		errorToken(err),
		ts%errorCodeDigits,
	)
}

// errorToken reduces an error to a short upper-case token for the code.
func errorToken(err error) string {
	if err == nil {
		return "UNKNOWN"
	}

	token := strings.ToUpper(err.Error())
	token = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}

		return '_'
	}, token)

	const maxTokenLen = 24
	if len(token) > maxTokenLen {
		token = token[:maxTokenLen]
	}

	return strings.Trim(token, "_")
}

// userMessage produces the plain-language message accompanying an outcome.
func userMessage(action Action, severity Severity, err error, ectx ErrorContext) string {
	if isStructural(err) {
		switch action {
		case ActionFallback:
			return "We hit a formatting problem with the service response; processing continued using alternative processing."
		case ActionGracefulDegradation:
			return "Some advanced processing was skipped; processing continued with reduced detail."
		default:
		}
	}

	switch action {
	case ActionRetry:
		if ectx.UserFacing {
			return fmt.Sprintf("A temporary issue occurred; retrying attempt %d.", ectx.RetryCount+1)
		}

		return "A temporary issue occurred; the operation will be retried."
	case ActionFallback:
		return "The requested processing could not be completed as asked; an alternative result was produced instead."
	case ActionGracefulDegradation:
		return "The service is under pressure; processing continued with reduced functionality."
	case ActionFailSafe:
		if severity == SeverityFatal {
			return "The request could not be completed. Please check your configuration and credentials."
		}

		return "The request could not be completed after several attempts. Please try again later."
	default:
		return "An unexpected condition occurred."
	}
}
