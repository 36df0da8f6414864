// Package internal holds small helpers shared across the data source and event processor
// implementations that don't belong in any single public package.
package internal

import "strconv"

// unrecoverableStatusCodes is spec.md 6's single cross-component classification: any HTTP status
// in this set permanently disables the component that received it. Every other status (or a
// network/parse error) is treated as transient and retried per that component's own policy.
var unrecoverableStatusCodes = map[int]bool{
	401: true,
	403: true,
	404: true,
	410: true,
}

// IsHTTPStatusRecoverable reports whether status should be retried (true) or should permanently
// disable the calling component (false).
func IsHTTPStatusRecoverable(status int) bool {
	return !unrecoverableStatusCodes[status]
}

// HTTPStatusError wraps a non-2xx HTTP response status so callers can classify it without
// re-parsing a generic error string.
type HTTPStatusError struct {
	Code int
}

func (e HTTPStatusError) Error() string {
	return "HTTP error " + strconv.Itoa(e.Code)
}
