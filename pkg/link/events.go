package link

import (
	"time"

	"github.com/consolelink/consolelink-go/pkg/codec"
	"github.com/consolelink/consolelink-go/pkg/connection"
	"github.com/consolelink/consolelink-go/pkg/handshake"
	"github.com/consolelink/consolelink-go/pkg/timer"
	"github.com/consolelink/consolelink-go/pkg/transport"
)

// TopicConnectionState is the topic of ConnectionEvent messages.
const TopicConnectionState = "connectionState"

// ConnectionEvent is delivered on the message channel when the link comes
// up, goes down or starts waiting for a reconnect. Payload is one of
// "connected", "disconnected", "reconnecting".
type ConnectionEvent struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// Status is a point-in-time view of a session.
type Status struct {
	State             connection.State
	Sync              handshake.State
	Address           string
	Console           string
	ConnectionID      string
	BufferedBytes     int
	PendingTimers     int
	ReconnectAttempts int
	KeepAlive         transport.KeepAliveStats
}

// timerName identifies the timers owned by a session.
type timerName string

const (
	timerDebounce  timerName = "debounce"
	timerSync      timerName = "sync"
	timerPing      timerName = "ping"
	timerPong      timerName = "pong"
	timerReconnect timerName = "reconnect"
	timerRestart   timerName = "restart"
)

// Loop events. Events carrying gen belong to one connection attempt and are
// dropped once the attempt has been torn down.
type (
	connectEvent    struct{}
	disconnectEvent struct{}
	restartEvent    struct{}
	closeEvent      struct{}

	commandEvent struct {
		cmd codec.Command
	}

	snapshotEvent struct {
		reply chan []codec.State
	}

	statusEvent struct {
		reply chan Status
	}

	dialEvent struct {
		gen    uint64
		connID string
		conn   transport.Connection
		err    error
	}

	dataEvent struct {
		gen  uint64
		data []byte
	}

	readErrorEvent struct {
		gen uint64
		err error
	}

	timerEvent struct {
		expiry timer.Expiry[timerName]
	}
)

// sessionTimer adapts one named timer.Manager entry to the Timer interface
// used by the receive buffer and the handshake coordinator.
type sessionTimer struct {
	timers *timer.Manager[timerName]
	name   timerName
}

func (t sessionTimer) Reset(d time.Duration) {
	_, _ = t.timers.Schedule(t.name, d)
}

func (t sessionTimer) Stop() {
	t.timers.Cancel(t.name)
}
