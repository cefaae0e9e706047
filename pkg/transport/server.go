package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/consolelink/consolelink-go/pkg/log"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on (e.g., ":51325" or "127.0.0.1:0").
	Address string

	// Logger captures reads and writes of accepted connections. Directions
	// are from the server's side: IN is what the host sent.
	Logger log.Logger

	// OnConnect is called when a host connects.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called when a connection is closed.
	OnDisconnect func(conn *ServerConn)

	// OnData is called with each chunk read from a host.
	OnData func(conn *ServerConn, data []byte)

	// OnError is called when accepting fails.
	OnError func(err error)
}

// Server accepts MIDI-over-TCP connections the way a console does. It backs
// console emulators and loopback tests.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	accepted atomic.Int64
	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates a server. Call Start to listen.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.cancel()
		return Wrap("listen", s.config.Address, err)
	}
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and every connection, then waits for the
// connection goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()

	err := s.listener.Close()
	s.DropAll()
	s.wg.Wait()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Accepted returns the number of connections accepted since Start.
func (s *Server) Accepted() int {
	return int(s.accepted.Load())
}

// Broadcast writes data to every open connection.
func (s *Server) Broadcast(data []byte) error {
	return s.BroadcastExcept(data, nil)
}

// BroadcastExcept writes data to every open connection other than skip.
func (s *Server) BroadcastExcept(data []byte, skip *ServerConn) error {
	s.connsMu.RLock()
	conns := make([]*ServerConn, 0, len(s.conns))
	for c := range s.conns {
		if c != skip {
			conns = append(conns, c)
		}
	}
	s.connsMu.RUnlock()

	var errs []error
	for _, c := range conns {
		if err := c.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DropAll closes every open connection, as a console reboot would.
func (s *Server) DropAll() {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		nc, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() && s.config.OnError != nil {
				s.config.OnError(fmt.Errorf("accept error: %w", err))
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		s.accepted.Add(1)
		s.wg.Add(1)
		go s.handleConnection(nc)
	}
}

func (s *Server) handleConnection(nc net.Conn) {
	defer s.wg.Done()

	if tcp, ok := nc.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	connID := uuid.New().String()
	conn := NewConn(nc, 0)
	conn.SetLogger(s.config.Logger, connID)

	sconn := &ServerConn{conn: conn, connID: connID}

	s.logState(sconn, "", "CONNECTED")

	s.connsMu.Lock()
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	// Cancelling the start context drops the host.
	go func() {
		select {
		case <-s.ctx.Done():
			_ = sconn.Close()
		case <-conn.closeCh:
		}
	}()

	_ = conn.ReadLoop(func(p []byte) {
		if s.config.OnData != nil {
			s.config.OnData(sconn, p)
		}
	})
	_ = sconn.Close()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()

	s.logState(sconn, "CONNECTED", "DISCONNECTED")

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

func (s *Server) logState(c *ServerConn, oldState, newState string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   c.conn.remote,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
		},
	})
}

// ServerConn is one host connected to a Server.
type ServerConn struct {
	conn   *Conn
	connID string
}

// RemoteAddr returns the host address.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ConnID returns the connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// Send writes raw bytes to the host.
func (c *ServerConn) Send(data []byte) error {
	_, err := c.conn.Write(data)
	return err
}

// Close closes the connection. It is safe to call more than once.
func (c *ServerConn) Close() error {
	err := c.conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
