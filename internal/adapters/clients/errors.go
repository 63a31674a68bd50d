// Package clients provides the instrumented HTTP client used to reach the
// remote quote collection.
package clients

import "errors"

// Transport-level failures. Callers translate them to domain errors in the
// acl package; nothing above the adapters layer sees these values.
var (
	// ErrCircuitOpen means the remote has failed often enough that calls are short-circuited.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last attempt's error once retries run out.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
