package handshake

import (
	"fmt"
	"io"
	"time"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

// DefaultQuietPeriod is the default sync quiet period.
const DefaultQuietPeriod = 3000 * time.Millisecond

// State is the handshake phase.
type State uint8

const (
	// StateIdle means no connection has been handshaken.
	StateIdle State = iota

	// StateHandshaking means initial requests are outstanding.
	StateHandshaking

	// StateSettled means the caches are reconciled.
	StateSettled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateSettled:
		return "SETTLED"
	default:
		return "UNKNOWN"
	}
}

// Timer is the quiet-period timer driven by the coordinator. Its expiry must
// be routed back to Tick by the owner.
type Timer interface {
	Reset(d time.Duration)
	Stop()
}

// Coordinator runs the sync handshake for one session. It is not safe for
// concurrent use.
type Coordinator struct {
	registry *codec.Registry
	timer    Timer
	quiet    time.Duration

	state State
	work  []string

	onStateChange func(oldState, newState State)
}

// NewCoordinator creates a coordinator over the registry. A non-positive
// quiet period selects DefaultQuietPeriod.
func NewCoordinator(registry *codec.Registry, timer Timer, quiet time.Duration) *Coordinator {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Coordinator{
		registry: registry,
		timer:    timer,
		quiet:    quiet,
	}
}

// OnStateChange sets a callback for phase transitions.
func (c *Coordinator) OnStateChange(fn func(oldState, newState State)) {
	c.onStateChange = fn
}

// State returns the current phase.
func (c *Coordinator) State() State {
	return c.state
}

// Syncing reports whether decode updates must be applied silently.
func (c *Coordinator) Syncing() bool {
	return c.state == StateHandshaking
}

// Pending returns the number of features still on the work-list.
func (c *Coordinator) Pending() int {
	return len(c.work)
}

// Begin starts a handshake: the work-list is filled with every feature in
// registry order, every feature's initial request is written, and the quiet
// timer is started. The first write error is returned; the remaining
// requests are not attempted.
func (c *Coordinator) Begin(w io.Writer, ch codec.Channel) error {
	c.work = c.registry.Names()
	c.setState(StateHandshaking)

	for _, name := range c.work {
		if err := c.registry.RequestInitial(name, w, ch); err != nil {
			return fmt.Errorf("initial request %s: %w", name, err)
		}
	}

	c.timer.Reset(c.quiet)
	return nil
}

// Touch records inbound traffic. While handshaking it restarts the quiet
// timer.
func (c *Coordinator) Touch() {
	if c.state == StateHandshaking {
		c.timer.Reset(c.quiet)
	}
}

// Tick handles a quiet-timer expiry. While features remain, one is popped
// and queried again and the timer is restarted. Once the list is empty the
// coordinator settles and returns the aggregated snapshot with settled set.
func (c *Coordinator) Tick(w io.Writer, ch codec.Channel) (snapshot []codec.State, settled bool, err error) {
	if c.state != StateHandshaking {
		return nil, false, nil
	}

	if n := len(c.work); n > 0 {
		name := c.work[n-1]
		c.work = c.work[:n-1]
		c.timer.Reset(c.quiet)
		if err := c.registry.RequestInitial(name, w, ch); err != nil {
			return nil, false, fmt.Errorf("retry request %s: %w", name, err)
		}
		return nil, false, nil
	}

	c.timer.Stop()
	c.setState(StateSettled)
	return c.registry.SnapshotAll(), true, nil
}

// Reset returns to idle, discarding the work-list and stopping the timer.
func (c *Coordinator) Reset() {
	c.work = nil
	c.timer.Stop()
	c.setState(StateIdle)
}

func (c *Coordinator) setState(s State) {
	if c.state == s {
		return
	}
	old := c.state
	c.state = s
	if c.onStateChange != nil {
		c.onStateChange(old, s)
	}
}
