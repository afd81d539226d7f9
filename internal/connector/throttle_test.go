package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func throttleClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestThrottleInactiveByDefault(t *testing.T) {
	clock, _ := throttleClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	throttle := NewThrottle(clock)

	require.False(t, throttle.Active())
	require.Zero(t, throttle.Remaining())
}

func TestThrottleLazyExpiry(t *testing.T) {
	clock, advance := throttleClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	throttle := NewThrottle(clock)

	throttle.Arm(5 * time.Second)
	require.True(t, throttle.Active())
	require.Equal(t, 5*time.Second, throttle.Remaining())

	advance(3 * time.Second)
	require.True(t, throttle.Active())
	require.Equal(t, 2*time.Second, throttle.Remaining())

	advance(2 * time.Second)
	require.False(t, throttle.Active())
	require.Zero(t, throttle.Remaining())
}

func TestThrottleCancel(t *testing.T) {
	clock, _ := throttleClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	throttle := NewThrottle(clock)

	throttle.Arm(time.Minute)
	require.True(t, throttle.Active())

	throttle.Cancel()
	require.False(t, throttle.Active())
}

func TestThrottleRearmReplacesWindow(t *testing.T) {
	clock, advance := throttleClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	throttle := NewThrottle(clock)

	throttle.Arm(2 * time.Second)
	advance(time.Second)
	throttle.Arm(10 * time.Second)

	advance(2 * time.Second)
	require.True(t, throttle.Active())
	require.Equal(t, 8*time.Second, throttle.Remaining())
}

func TestThrottleIgnoresNonPositiveDurations(t *testing.T) {
	throttle := NewThrottle(nil)

	throttle.Arm(0)
	require.False(t, throttle.Active())

	throttle.Arm(-time.Second)
	require.False(t, throttle.Active())
}
