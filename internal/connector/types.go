// Package connector issues HTTP requests against the exchange REST API
// on behalf of endpoint clients. It signs secured requests, enforces
// the ban prevention cool-down, and extracts rate limit usage feedback
// from response headers.
package connector

import "net/url"

// Request describes a single not-yet-issued exchange call.
type Request struct {
	// Method is the HTTP method; defaults to GET when empty.
	Method string

	// Path is the endpoint path relative to the base URL, e.g.
	// "/api/v3/klines".
	Path string

	// Query carries the endpoint parameters. Signed parameters
	// (timestamp, recvWindow, signature) are appended by the connector
	// and must not be present.
	Query url.Values

	// Secured requests are signed with the connector's credentials.
	Secured bool
}

// HeaderUsage is one usage metric extracted from a response header. The
// value is kept as the raw string; attributing it to a counter is the
// endpoint client's concern.
type HeaderUsage struct {
	Header string
	Value  string
}

// Response is the outcome of a completed HTTP exchange. A non-2xx
// status is not an error at this layer: IsSuccessful is false and
// Content still carries the raw error body for upstream decoding.
type Response struct {
	Content      []byte
	LimitsUsage  []HeaderUsage
	StatusCode   int
	IsSuccessful bool
}
