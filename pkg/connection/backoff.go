package connection

import (
	"sync"
	"time"
)

// Reconnect delay defaults.
const (
	// DefaultReconnectDelay is the wait between a lost link and the next attempt.
	DefaultReconnectDelay = 15 * time.Second

	// DefaultRestartDelay is the wait between a restart teardown and the connect.
	DefaultRestartDelay = 500 * time.Millisecond
)

// Backoff hands out reconnect delays and counts attempts.
// With a multiplier of 1 (the default) the delay is fixed.
type Backoff struct {
	mu sync.Mutex

	current    time.Duration
	initial    time.Duration
	max        time.Duration
	multiplier float64

	attempts int
}

// BackoffConfig allows customizing backoff parameters.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// NewBackoff creates a fixed-delay backoff.
func NewBackoff(delay time.Duration) *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Initial: delay})
}

// NewBackoffWithConfig creates a backoff with custom settings.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = DefaultReconnectDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}

	return &Backoff{
		current:    cfg.Initial,
		initial:    cfg.Initial,
		max:        cfg.Max,
		multiplier: cfg.Multiplier,
	}
}

// Next returns the next delay and advances the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.current
	b.attempts++
	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next

	return delay
}

// Peek returns the current delay without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Reset resets the backoff after a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
