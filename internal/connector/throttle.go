package connector

import (
	"sync"
	"time"
)

// Throttle is the self-imposed cool-down armed by server throttling
// signals. While active, every send fails locally before any network
// I/O, protecting the caller's IP and account from escalating bans.
//
// Expiry is lazy: any access first checks whether the stored duration
// has elapsed and clears the state if so. There is no background timer.
type Throttle struct {
	mu        sync.Mutex
	delta     time.Duration
	startedAt time.Time
	clock     func() time.Time
}

// NewThrottle builds an inactive throttle. A nil clock falls back to
// time.Now in UTC.
func NewThrottle(clock func() time.Time) *Throttle {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Throttle{clock: clock}
}

// Arm starts (or restarts) the cool-down for the given duration.
// Non-positive durations are ignored.
func (t *Throttle) Arm(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delta = d
	t.startedAt = t.clock()
}

// Active reports whether the cool-down is still in force, clearing
// expired state as a side effect.
func (t *Throttle) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeLocked()
}

// Remaining returns how long the cool-down has left, or zero when
// inactive.
func (t *Throttle) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.activeLocked() {
		return 0
	}
	return t.delta - t.clock().Sub(t.startedAt)
}

// Cancel clears the cool-down immediately.
func (t *Throttle) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delta = 0
}

func (t *Throttle) activeLocked() bool {
	if t.delta <= 0 {
		return false
	}
	if t.clock().Sub(t.startedAt) >= t.delta {
		t.delta = 0
		return false
	}
	return true
}
