// Package ratelimit tracks usage of server-enforced rate limit windows
// on the client side. A Counter owns one window; a Registry indexes
// counters by id and by weight dimension so a single request can be
// admission-checked against every window it touches.
package ratelimit

import (
	"fmt"
	"time"
)

// Dimension identifies one class of rate-limited resource consumption,
// e.g. IP request weight or per-account order count. Several windows
// may guard the same dimension.
type Dimension int

// Weight declares how much one request costs on one dimension.
type Weight struct {
	Dimension Dimension
	Amount    int
}

// LimitSpec describes a rate limit window to register.
type LimitSpec struct {
	Dimension     Dimension
	Limit         int
	ResetInterval time.Duration
	Name          string
}

// Validate reports whether the spec describes a usable window.
func (s LimitSpec) Validate() error {
	if s.Limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", s.Limit)
	}
	if s.ResetInterval < time.Second {
		return fmt.Errorf("reset interval must be at least 1s, got %s", s.ResetInterval)
	}
	return nil
}
