package transport

import (
	"context"
	"net"
	"time"

	"github.com/consolelink/consolelink-go/pkg/log"
)

const (
	// DefaultConnectTimeout bounds a dial when the context has no deadline.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultPort is the console's MIDI-over-TCP port.
	DefaultPort = 51325
)

// DialerConfig configures a TCPDialer.
type DialerConfig struct {
	// ConnectTimeout is the dial timeout (default: 10s).
	ConnectTimeout time.Duration

	// WriteTimeout bounds each write (0 = no timeout).
	WriteTimeout time.Duration

	// Logger captures reads and writes of dialed connections.
	Logger log.Logger
}

// TCPDialer opens console connections over TCP.
type TCPDialer struct {
	config DialerConfig
}

// NewDialer creates a TCP dialer.
func NewDialer(config DialerConfig) *TCPDialer {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	return &TCPDialer{config: config}
}

// Dial connects to address. The connection ID tags captured frames.
// Failures are returned as *OpError.
func (d *TCPDialer) Dial(ctx context.Context, address, connID string) (Connection, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	nc, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, Wrap("dial", address, err)
	}
	if tcp, ok := nc.(*net.TCPConn); ok {
		// MIDI messages are a few bytes each; do not hold them back.
		_ = tcp.SetNoDelay(true)
	}

	c := NewConn(nc, d.config.WriteTimeout)
	c.SetLogger(d.config.Logger, connID)
	return c, nil
}
