package connector

import "errors"

// Failure kinds for requests that could not be attempted or completed.
// A server that responded with a non-2xx status is not an error on this
// channel; that outcome is returned as a Response with IsSuccessful set
// to false so callers can decode the structured body.
var (
	// ErrBanPrevention marks requests rejected locally while the
	// self-imposed cool-down is active. No network I/O was attempted.
	ErrBanPrevention = errors.New("request blocked by ban prevention window")

	// ErrRequestTimeout marks requests aborted by the connector's own
	// deadline. Execution status on the server is unknown; callers must
	// not assume the request had no effect.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrCancelled marks requests aborted by the caller's context.
	ErrCancelled = errors.New("request cancelled")

	// ErrConnectionFailed marks requests that never reached the server.
	// Safe to assume no effect occurred.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotSupported marks secured requests attempted on a connector
	// constructed without signing credentials.
	ErrNotSupported = errors.New("signed requests require api credentials")
)
