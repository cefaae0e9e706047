package transport

import (
	"sync"
	"time"
)

// Keep-alive constants.
const (
	// DefaultPingInterval is the default interval between probes.
	DefaultPingInterval = 10 * time.Second

	// DefaultPongTimeout is the default wait for traffic after a probe.
	DefaultPongTimeout = 5 * time.Second

	// DefaultMaxMissedPongs is the number of unanswered probes that drop the link.
	DefaultMaxMissedPongs = 1
)

// KeepAliveConfig configures keep-alive behavior.
type KeepAliveConfig struct {
	// PingInterval is the interval between probes.
	PingInterval time.Duration

	// PongTimeout is the wait for traffic after a probe.
	PongTimeout time.Duration

	// MaxMissedPongs is the number of consecutive unanswered probes
	// after which the link is considered lost.
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay calculates the maximum time to detect a dead link.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return CalculateDetectionDelay(c.PingInterval, c.PongTimeout, c.MaxMissedPongs)
}

// CalculateDetectionDelay calculates the maximum detection delay for given parameters.
func CalculateDetectionDelay(pingInterval, pongTimeout time.Duration, maxMissedPongs int) time.Duration {
	return pingInterval*time.Duration(maxMissedPongs) + pongTimeout
}

// KeepAlive counts probes and the traffic that answers them.
// It does not run timers; the owner calls PingSent when a probe was
// written, Traffic on every inbound read and PongTimeout when the wait
// for an answer elapsed.
type KeepAlive struct {
	config KeepAliveConfig

	mu           sync.Mutex
	sequence     uint32
	missedPongs  int
	pending      bool
	lastPingTime time.Time
	lastPongTime time.Time
	lastLatency  time.Duration
}

// NewKeepAlive creates a keep-alive counter. Zero fields take defaults.
func NewKeepAlive(config KeepAliveConfig) *KeepAlive {
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.PongTimeout <= 0 {
		config.PongTimeout = DefaultPongTimeout
	}
	if config.MaxMissedPongs <= 0 {
		config.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return &KeepAlive{config: config}
}

// Config returns the effective configuration.
func (ka *KeepAlive) Config() KeepAliveConfig {
	return ka.config
}

// PingSent records a probe and returns its sequence number.
func (ka *KeepAlive) PingSent() uint32 {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.sequence++
	ka.pending = true
	ka.lastPingTime = time.Now()
	return ka.sequence
}

// Traffic records inbound bytes. It reports whether they answered a
// pending probe.
func (ka *KeepAlive) Traffic() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	now := time.Now()
	ka.lastPongTime = now
	if !ka.pending {
		return false
	}
	ka.pending = false
	ka.missedPongs = 0
	ka.lastLatency = now.Sub(ka.lastPingTime)
	return true
}

// PongTimeout records that the wait for an answer elapsed. It returns the
// number of consecutive misses and whether the link must be dropped. A
// timeout with no pending probe (already answered) is ignored.
func (ka *KeepAlive) PongTimeout() (missed int, dead bool) {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if !ka.pending {
		return ka.missedPongs, false
	}
	ka.pending = false
	ka.missedPongs++
	return ka.missedPongs, ka.missedPongs >= ka.config.MaxMissedPongs
}

// Reset clears all counters, e.g. for a new connection.
func (ka *KeepAlive) Reset() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.sequence = 0
	ka.missedPongs = 0
	ka.pending = false
	ka.lastPingTime = time.Time{}
	ka.lastPongTime = time.Time{}
	ka.lastLatency = 0
}

// KeepAliveStats contains keep-alive statistics.
type KeepAliveStats struct {
	LastPingTime time.Time
	LastPongTime time.Time
	LastLatency  time.Duration
	MissedPongs  int
	CurrentSeq   uint32
	Pending      bool
}

// Stats returns current keep-alive statistics.
func (ka *KeepAlive) Stats() KeepAliveStats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return KeepAliveStats{
		LastPingTime: ka.lastPingTime,
		LastPongTime: ka.lastPongTime,
		LastLatency:  ka.lastLatency,
		MissedPongs:  ka.missedPongs,
		CurrentSeq:   ka.sequence,
		Pending:      ka.pending,
	}
}
