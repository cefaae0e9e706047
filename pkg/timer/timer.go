package timer

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidDuration is returned for negative durations.
var ErrInvalidDuration = errors.New("invalid duration")

// Expiry is delivered to the callback when a timer fires.
type Expiry[K comparable] struct {
	Name K
	Gen  uint64
}

// Timer describes a pending timer.
type Timer[K comparable] struct {
	Name      K
	Gen       uint64
	StartTime time.Time
	Duration  time.Duration

	timer *time.Timer
}

// ExpiresAt returns when the timer will fire.
func (t *Timer[K]) ExpiresAt() time.Time {
	return t.StartTime.Add(t.Duration)
}

// RemainingTime returns time until the timer fires.
func (t *Timer[K]) RemainingTime() time.Duration {
	remaining := t.Duration - time.Since(t.StartTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Manager owns a set of named timers.
type Manager[K comparable] struct {
	mu sync.Mutex

	timers map[K]*Timer[K]
	gen    uint64

	// Called from the timer goroutine; must not block.
	onExpiry func(Expiry[K])
}

// NewManager creates a manager that reports expiries to onExpiry.
func NewManager[K comparable](onExpiry func(Expiry[K])) *Manager[K] {
	return &Manager[K]{
		timers:   make(map[K]*Timer[K]),
		onExpiry: onExpiry,
	}
}

// Schedule starts or replaces the timer for name and returns its generation.
func (m *Manager[K]) Schedule(name K, d time.Duration) (uint64, error) {
	if d < 0 {
		return 0, ErrInvalidDuration
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.timers[name]; ok {
		existing.timer.Stop()
	}

	m.gen++
	gen := m.gen
	t := &Timer[K]{
		Name:      name,
		Gen:       gen,
		StartTime: time.Now(),
		Duration:  d,
	}
	t.timer = time.AfterFunc(d, func() {
		m.fire(Expiry[K]{Name: name, Gen: gen})
	})
	m.timers[name] = t
	return gen, nil
}

// Cancel stops the timer for name. It reports whether one was pending.
func (m *Manager[K]) Cancel(name K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[name]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(m.timers, name)
	return true
}

// CancelAll stops every pending timer.
func (m *Manager[K]) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, t := range m.timers {
		t.timer.Stop()
		delete(m.timers, name)
	}
}

// Claim consumes an expiry. It returns false when the expiry belongs to a
// timer that was cancelled or replaced since it fired.
func (m *Manager[K]) Claim(e Expiry[K]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[e.Name]
	if !ok || t.Gen != e.Gen {
		return false
	}
	delete(m.timers, e.Name)
	return true
}

// Pending reports whether a timer for name is pending.
func (m *Manager[K]) Pending(name K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[name]
	return ok
}

// Get returns a copy of the pending timer for name, or nil.
func (m *Manager[K]) Get(name K) *Timer[K] {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[name]
	if !ok {
		return nil
	}
	return &Timer[K]{
		Name:      t.Name,
		Gen:       t.Gen,
		StartTime: t.StartTime,
		Duration:  t.Duration,
	}
}

// Count returns the number of pending timers.
func (m *Manager[K]) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manager[K]) fire(e Expiry[K]) {
	m.mu.Lock()
	t, ok := m.timers[e.Name]
	live := ok && t.Gen == e.Gen
	callback := m.onExpiry
	m.mu.Unlock()

	if live && callback != nil {
		callback(e)
	}
}
