package docModel

import "errors"

// Error taxonomy. Everything the core surfaces wraps one of these sentinels
// so callers can branch with errors.Is instead of string matching.
var (
	// ErrValidation marks malformed or oversized input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown document id.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a duplicate link pair or a concurrent ingest cycle.
	ErrConflict = errors.New("conflict")

	// ErrTransientDependency marks a retryable network/timeout condition.
	ErrTransientDependency = errors.New("transient dependency error")

	// ErrDependencyUnavailable marks exhausted retries or a hard outage.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// TruncateError bounds a failure description before it is persisted as
// processing_error.
func TruncateError(msg string, limit int) string {
	if limit <= 0 || len(msg) <= limit {
		return msg
	}
	return msg[:limit]
}
