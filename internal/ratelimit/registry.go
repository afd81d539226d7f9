package ratelimit

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFound marks lookups of limit ids or dimensions that were never
// registered. Hitting it means the caller issued a weighted request
// nobody configured a window for, which is a programming defect rather
// than a runtime condition.
var ErrNotFound = errors.New("rate limit not found")

// Registry owns the full set of counters for one client instance,
// indexed by stable id and by weight dimension. Structural mutation is
// guarded by a registry-level lock; usage mutation by the per-counter
// locks.
type Registry struct {
	mu          sync.RWMutex
	byID        map[string]*Counter
	byDimension map[Dimension][]*Counter
	clock       func() time.Time
}

// NewRegistry builds an empty registry. A nil clock falls back to
// time.Now in UTC.
func NewRegistry(clock func() time.Time) *Registry {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Registry{
		byID:        make(map[string]*Counter),
		byDimension: make(map[Dimension][]*Counter),
		clock:       clock,
	}
}

// TryRegisterLimit inserts a new counter under id. Registration is
// idempotent: a second call with the same id returns false and leaves
// the existing counter untouched.
func (r *Registry) TryRegisterLimit(id string, spec LimitSpec) (bool, error) {
	if id == "" {
		return false, errors.New("limit id is required")
	}
	if err := spec.Validate(); err != nil {
		return false, fmt.Errorf("limit %s: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; exists {
		return false, nil
	}

	counter := NewCounter(id, spec, r.clock)
	r.byID[id] = counter
	r.byDimension[spec.Dimension] = append(r.byDimension[spec.Dimension], counter)
	return true, nil
}

// ContainsLimit reports whether a counter is registered under id.
func (r *Registry) ContainsLimit(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// ModifyLimit replaces the ceiling of an existing counter in place.
func (r *Registry) ModifyLimit(id string, limit int) error {
	if limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", limit)
	}

	r.mu.RLock()
	counter, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	counter.SetLimit(limit)
	return nil
}

// TestUsage checks every counter registered on every dimension the
// weights touch. It stops at the first window that cannot absorb its
// amount and returns that counter's id. A dimension with no registered
// counters is a configuration defect and yields ErrNotFound.
func (r *Registry) TestUsage(weights []Weight) (bool, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, w := range weights {
		counters := r.byDimension[w.Dimension]
		if len(counters) == 0 {
			return false, "", fmt.Errorf("%w: dimension %d has no registered limits", ErrNotFound, w.Dimension)
		}
		for _, counter := range counters {
			if !counter.TestUsage(w.Amount) {
				return false, counter.ID(), nil
			}
		}
	}
	return true, "", nil
}

// IncrementUsage additively applies the weights to every counter on
// every named dimension. This is the optimistic local accounting path;
// authoritative server reports arrive through UpdateUsage.
func (r *Registry) IncrementUsage(weights []Weight, ts time.Time) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, w := range weights {
		counters := r.byDimension[w.Dimension]
		if len(counters) == 0 {
			return fmt.Errorf("%w: dimension %d has no registered limits", ErrNotFound, w.Dimension)
		}
		for _, counter := range counters {
			counter.AddUsage(w.Amount, ts)
		}
	}
	return nil
}

// UpdateUsage overwrites one counter from a server-reported value.
func (r *Registry) UpdateUsage(id string, usage int, ts time.Time) error {
	r.mu.RLock()
	counter, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	counter.SetUsage(usage, ts)
	return nil
}

// LimitStatus is a point-in-time view of one registered window.
type LimitStatus struct {
	ID            string        `json:"id"`
	Name          string        `json:"name,omitempty"`
	Dimension     Dimension     `json:"dimension"`
	Limit         int           `json:"limit"`
	Usage         int           `json:"usage"`
	ResetInterval time.Duration `json:"reset_interval"`
}

// Snapshot returns the state of every registered window, ordered by id.
func (r *Registry) Snapshot() []LimitStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]LimitStatus, 0, len(r.byID))
	for _, counter := range r.byID {
		statuses = append(statuses, LimitStatus{
			ID:            counter.ID(),
			Name:          counter.Name(),
			Dimension:     counter.Dimension(),
			Limit:         counter.Limit(),
			Usage:         counter.Usage(),
			ResetInterval: counter.ResetInterval(),
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}
