// Package apierr provides shared error sentinels and retry infrastructure
// for the HTTP-based rendering providers. Provider clients classify raw
// HTTP failures into these sentinels at their boundary.
//
// Providers wrap with fmt.Errorf("%s: %w", msg, sentinel).
// Callers check with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import "errors"

// Sentinel errors for provider API interaction failures.
var (
	// ErrRateLimit indicates the provider rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrServer indicates the provider returned a 5xx response (retryable).
	ErrServer = errors.New("provider server error")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrNetwork indicates the request never produced an HTTP response
	// (connection refused, reset, DNS failure). Retryable.
	ErrNetwork = errors.New("network error")

	// ErrAuthFailed indicates provider authentication failed (invalid token).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")
)

// Retryable reports whether err is transient and worth another attempt.
// Network-level failures, rate limits, and server errors qualify.
// Auth and other client errors never do.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrRateLimit), errors.Is(err, ErrServer),
		errors.Is(err, ErrTimeout), errors.Is(err, ErrNetwork):
		return true
	default:
		return false
	}
}
