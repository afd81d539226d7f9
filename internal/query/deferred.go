// Package query packages an unexecuted exchange request together with
// its weight manifest and its parse step, so a caller can inspect the
// cost of a request before paying for its execution, or batch-evaluate
// several planned requests against the rate limit registry before
// committing to any network I/O.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tradelens/tradelens/internal/connector"
	"github.com/tradelens/tradelens/internal/ratelimit"
)

// ErrClosed marks use of a deferred query after Close.
var ErrClosed = errors.New("deferred query is closed")

// ErrUnexpectedFormat marks response bodies that could not be parsed
// into the expected shape.
var ErrUnexpectedFormat = errors.New("unexpected response format")

// SendFunc executes the request using the owning client's connector and
// registry: admission checks, the network call, and usage reconciliation
// all happen behind it.
type SendFunc func(ctx context.Context, req connector.Request, weights []ratelimit.Weight, headerMap map[string]string) (*connector.Response, error)

// ParseFunc turns a successful raw response into a typed result.
type ParseFunc[T any] func(resp *connector.Response) (T, error)

// Deferred is a reusable, not-yet-executed request descriptor. It can
// be executed any number of times until closed.
type Deferred[T any] struct {
	mu        sync.Mutex
	req       connector.Request
	weights   []ratelimit.Weight
	headerMap map[string]string
	send      SendFunc
	parse     ParseFunc[T]
	closed    bool
}

// Option customizes a deferred query at construction.
type Option[T any] func(*Deferred[T])

// WithWeights attaches the declared cost manifest.
func WithWeights[T any](weights []ratelimit.Weight) Option[T] {
	return func(d *Deferred[T]) { d.weights = weights }
}

// WithHeaderMap attaches the header-name to limit-id map used to
// reconcile usage feedback for this query.
func WithHeaderMap[T any](headerMap map[string]string) Option[T] {
	return func(d *Deferred[T]) { d.headerMap = headerMap }
}

// New builds a deferred query. The request descriptor and both handlers
// are required.
func New[T any](req connector.Request, send SendFunc, parse ParseFunc[T], opts ...Option[T]) (*Deferred[T], error) {
	if req.Path == "" {
		return nil, errors.New("request path is required")
	}
	if send == nil {
		return nil, errors.New("send handler is required")
	}
	if parse == nil {
		return nil, errors.New("parse handler is required")
	}

	d := &Deferred[T]{req: req, send: send, parse: parse}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Request returns the bound request descriptor.
func (d *Deferred[T]) Request() connector.Request { return d.req }

// Weights returns the declared cost manifest.
func (d *Deferred[T]) Weights() ([]ratelimit.Weight, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	return d.weights, nil
}

// Execute runs the bound send pipeline and parses the result. Transport
// failures surface as errors with a nil response. An HTTP-level
// rejection returns the failed response as data with a zero result and
// no error, so callers can decode the structured error body. A body
// that cannot be parsed wraps ErrUnexpectedFormat.
func (d *Deferred[T]) Execute(ctx context.Context) (T, *connector.Response, error) {
	var zero T

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return zero, nil, ErrClosed
	}
	req, weights, headerMap, send, parse := d.req, d.weights, d.headerMap, d.send, d.parse
	d.mu.Unlock()

	resp, err := send(ctx, req, weights, headerMap)
	if err != nil {
		return zero, nil, err
	}
	if !resp.IsSuccessful {
		return zero, resp, nil
	}

	result, err := parse(resp)
	if err != nil {
		return zero, resp, fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	return result, resp, nil
}

// Close releases the handler references. It is idempotent; subsequent
// Execute or Weights calls fail with ErrClosed and perform no I/O.
func (d *Deferred[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.send = nil
	d.parse = nil
}
