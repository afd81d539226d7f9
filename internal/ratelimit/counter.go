package ratelimit

import (
	"sync"
	"time"
)

// Counter tracks usage of exactly one rate limit window. It is safe for
// concurrent use by any number of in-flight requests.
//
// The window reset is lazy: every access first compares elapsed wall
// time against the reset interval and zeroes usage if the interval has
// passed. An idle counter is therefore reset late, which is harmless
// since an idle counter carries no usage pressure.
type Counter struct {
	mu sync.Mutex

	id            string
	name          string
	dimension     Dimension
	limit         int
	resetInterval time.Duration

	usage       int
	windowStart time.Time // wall time the current window opened
	lastUpdate  time.Time // logical timestamp of the newest applied update

	clock func() time.Time
}

// NewCounter builds a counter for the given window spec. The spec must
// have been validated by the caller.
func NewCounter(id string, spec LimitSpec, clock func() time.Time) *Counter {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Counter{
		id:            id,
		name:          spec.Name,
		dimension:     spec.Dimension,
		limit:         spec.Limit,
		resetInterval: spec.ResetInterval,
		windowStart:   clock(),
		clock:         clock,
	}
}

// ID returns the stable identifier the counter was registered under.
func (c *Counter) ID() string { return c.id }

// Name returns the descriptive window name.
func (c *Counter) Name() string { return c.name }

// Dimension returns the weight dimension this window guards.
func (c *Counter) Dimension() Dimension { return c.dimension }

// ResetInterval returns the window duration.
func (c *Counter) ResetInterval() time.Duration { return c.resetInterval }

// Limit returns the current usage ceiling.
func (c *Counter) Limit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// SetLimit replaces the usage ceiling in place. Used when the server
// reports a revised limit without a full re-registration.
func (c *Counter) SetLimit(limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = limit
}

// TestUsage reports whether the window can absorb extra points without
// reaching the ceiling. It applies the lazy reset but never mutates
// usage.
func (c *Counter) TestUsage(extra int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyResetLocked()
	return c.usage+extra < c.limit
}

// AddUsage adds locally predicted cost to the window. The logical
// timestamp advances the update marker only when it is newer.
func (c *Counter) AddUsage(points int, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyResetLocked()
	c.usage += points
	if ts.After(c.lastUpdate) {
		c.lastUpdate = ts
	}
}

// SetUsage overwrites usage from an authoritative server report. Stale
// reports (timestamp older than the last applied update) are dropped.
// A newer report that lowers usage while the local window is still open
// means the server rolled its window over; the local window restarts to
// match.
func (c *Counter) SetUsage(points int, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	expired := c.applyResetLocked()
	if ts.Before(c.lastUpdate) {
		return
	}
	if points < c.usage && !expired {
		c.windowStart = c.clock()
	}
	c.usage = points
	c.lastUpdate = ts
}

// Usage returns current usage after the lazy reset check.
func (c *Counter) Usage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyResetLocked()
	return c.usage
}

// IsViolated reports whether the last known usage has reached the
// ceiling. It skips the reset check, so it may briefly report true for
// a window that has in fact rolled over. Use it only for cheap
// fast-path decisions, never for enforcement.
func (c *Counter) IsViolated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage >= c.limit
}

// applyResetLocked zeroes usage and restarts the window when the reset
// interval has elapsed. Returns true when a reset happened.
func (c *Counter) applyResetLocked() bool {
	now := c.clock()
	if now.Sub(c.windowStart) < c.resetInterval {
		return false
	}
	c.usage = 0
	c.windowStart = now
	return true
}
