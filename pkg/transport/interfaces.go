package transport

import (
	"context"
	"io"
	"net"
)

// Connection is a live console connection.
// Implemented by Conn.
type Connection interface {
	io.WriteCloser

	// RemoteAddr returns the console address.
	RemoteAddr() net.Addr

	// ReadLoop reads until failure and hands every chunk to fn.
	ReadLoop(fn func([]byte)) error
}

// Dialer opens console connections.
// Implemented by TCPDialer.
type Dialer interface {
	// Dial connects to address; connID tags captured frames.
	Dial(ctx context.Context, address, connID string) (Connection, error)
}

// Compile-time interface satisfaction checks.
var (
	_ Connection = (*Conn)(nil)
	_ Dialer     = (*TCPDialer)(nil)
)
