package connection

import (
	"errors"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrNotConnected     = errors.New("not connected")
)

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no link and nothing scheduled.
	StateDisconnected State = iota

	// StateConnecting indicates a dial or the greeting is in progress.
	StateConnecting

	// StateConnected indicates the greeting succeeded.
	StateConnected

	// StateAwaitingReconnect indicates a reconnect is scheduled.
	StateAwaitingReconnect

	// StateClosed indicates the session has been shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateAwaitingReconnect:
		return "AWAITING_RECONNECT"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Topic returns the word announced to hosts when the link enters s:
// "connecting", "connected", "disconnected" or "reconnecting".
func (s State) Topic() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAwaitingReconnect:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Manager tracks connection state and the single pending reconnect.
type Manager struct {
	mu sync.RWMutex

	state   State
	backoff *Backoff

	autoReconnect    bool
	reconnectPending bool

	onStateChange func(oldState, newState State)
}

// NewManager creates a manager in StateDisconnected.
func NewManager(backoff *Backoff) *Manager {
	if backoff == nil {
		backoff = NewBackoff(DefaultReconnectDelay)
	}
	return &Manager{
		state:         StateDisconnected,
		backoff:       backoff,
		autoReconnect: true,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if the greeting succeeded and the link is up.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

// CanConnect reports whether a connect request should start a dial.
// Requests while connecting or connected are ignored.
func (m *Manager) CanConnect() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch m.state {
	case StateConnecting, StateConnected, StateClosed:
		return false
	default:
		return true
	}
}

// SetAutoReconnect enables or disables automatic reconnection.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// Transition moves to newState. It returns false, without calling the state
// change callback, when the manager is already in newState or closed.
func (m *Manager) Transition(newState State) bool {
	m.mu.Lock()
	oldState := m.state
	if oldState == newState || oldState == StateClosed {
		m.mu.Unlock()
		return false
	}
	m.state = newState
	if newState == StateConnected {
		m.backoff.Reset()
	}
	callback := m.onStateChange
	m.mu.Unlock()

	if callback != nil {
		callback(oldState, newState)
	}
	return true
}

// LinkLost records a lost or failed link. When auto-reconnect is enabled it
// moves to StateAwaitingReconnect and, unless a reconnect is already pending,
// arms one and returns its delay with arm set to true.
func (m *Manager) LinkLost() (delay time.Duration, arm bool) {
	m.mu.RLock()
	auto := m.autoReconnect
	m.mu.RUnlock()

	if !auto {
		m.Transition(StateDisconnected)
		return 0, false
	}
	if m.State() == StateClosed {
		return 0, false
	}
	m.Transition(StateAwaitingReconnect)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reconnectPending || m.state == StateClosed {
		return 0, false
	}
	m.reconnectPending = true
	return m.backoff.Next(), true
}

// ReconnectFired clears the pending reconnect. It reports whether one was
// pending; a false result means the reconnect was disarmed meanwhile.
func (m *Manager) ReconnectFired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := m.reconnectPending
	m.reconnectPending = false
	return pending
}

// DisarmReconnect forgets a pending reconnect, e.g. on an explicit disconnect.
func (m *Manager) DisarmReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectPending = false
}

// ReconnectPending reports whether a reconnect is armed.
func (m *Manager) ReconnectPending() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reconnectPending
}

// Close moves to StateClosed. Further transitions are ignored.
func (m *Manager) Close() {
	m.Transition(StateClosed)
	m.DisarmReconnect()
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// BackoffAttempts returns the number of reconnects armed since the last
// successful connection.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}
