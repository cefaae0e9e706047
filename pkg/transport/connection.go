package transport

import (
	"net"
	"sync"
	"time"

	"github.com/consolelink/consolelink-go/pkg/log"
)

// ReadBufferSize is the size of a single socket read.
const ReadBufferSize = 4096

// Conn is a console connection.
type Conn struct {
	conn         net.Conn
	writeTimeout time.Duration
	remote       string

	logger log.Logger
	connID string

	closeOnce sync.Once
	closeCh   chan struct{}
	writeMu   sync.Mutex
}

// NewConn wraps an established network connection.
func NewConn(nc net.Conn, writeTimeout time.Duration) *Conn {
	c := &Conn{
		conn:         nc,
		writeTimeout: writeTimeout,
		logger:       log.NoopLogger{},
		closeCh:      make(chan struct{}),
	}
	if addr := nc.RemoteAddr(); addr != nil {
		c.remote = addr.String()
	}
	return c
}

// SetLogger captures every read and write with the given connection ID.
func (c *Conn) SetLogger(logger log.Logger, connID string) {
	c.logger = log.OrNoop(logger)
	c.connID = connID
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the console address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Write sends raw bytes to the console in a single write.
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return 0, Wrap("write", c.remote, ErrConnectionClosed)
	default:
	}

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	n, err := c.conn.Write(p)
	if err != nil {
		return n, Wrap("write", c.remote, err)
	}
	c.capture(log.DirectionOut, p)
	return n, nil
}

// ReadLoop reads until the connection fails or is closed and calls fn with
// each chunk. fn owns the slice it receives. The returned error is always
// non-nil and wrapped in *OpError.
func (c *Conn) ReadLoop(fn func([]byte)) error {
	buf := make([]byte, ReadBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			c.capture(log.DirectionIn, chunk)
			fn(chunk)
		}
		if err != nil {
			select {
			case <-c.closeCh:
				return Wrap("read", c.remote, ErrConnectionClosed)
			default:
			}
			return Wrap("read", c.remote, err)
		}
	}
}

// Close closes the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) capture(dir log.Direction, p []byte) {
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.remote,
		Frame:        log.NewFrameEvent(p),
	})
}
