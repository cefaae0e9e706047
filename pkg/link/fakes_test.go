package link

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/consolelink/consolelink-go/pkg/codec"
	"github.com/consolelink/consolelink-go/pkg/config"
	"github.com/consolelink/consolelink-go/pkg/connection"
	"github.com/consolelink/consolelink-go/pkg/console"
	"github.com/consolelink/consolelink-go/pkg/log"
	"github.com/consolelink/consolelink-go/pkg/transport"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeConn is an in-memory console connection.
type fakeConn struct {
	mu       sync.Mutex
	written  []byte
	writes   [][]byte
	writeErr error
	onWrite  func(c *fakeConn, p []byte)

	in      chan []byte
	readErr chan error
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:      make(chan []byte, 64),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	err := c.writeErr
	if err == nil {
		c.written = append(c.written, p...)
		c.writes = append(c.writes, append([]byte(nil), p...))
	}
	fn := c.onWrite
	c.mu.Unlock()

	if err != nil {
		return 0, transport.Wrap("write", "fake", err)
	}
	if fn != nil {
		fn(c, p)
	}
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: transport.DefaultPort}
}

func (c *fakeConn) ReadLoop(fn func([]byte)) error {
	for {
		select {
		case p := <-c.in:
			fn(p)
		case err := <-c.readErr:
			return transport.Wrap("read", "fake", err)
		case <-c.closed:
			return transport.Wrap("read", "fake", transport.ErrConnectionClosed)
		}
	}
}

// feed delivers bytes as if the console sent them.
func (c *fakeConn) feed(p ...byte) {
	select {
	case c.in <- p:
	case <-c.closed:
	}
}

func (c *fakeConn) fail(err error) {
	c.readErr <- err
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.written...)
}

func (c *fakeConn) lastWrite() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil
	}
	return c.writes[len(c.writes)-1]
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// fakeDialer hands out fakeConns. Queued errors are returned by the next
// dials in order.
type fakeDialer struct {
	mu      sync.Mutex
	dials   int
	errs    []error
	conns   []*fakeConn
	prepare func(n int, c *fakeConn)
}

func (d *fakeDialer) Dial(_ context.Context, address, _ string) (transport.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		if err != nil {
			return nil, transport.Wrap("dial", address, err)
		}
	}
	c := newFakeConn()
	if d.prepare != nil {
		d.prepare(d.dials, c)
	}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// recorder collects notifications.
type recorder struct {
	mu        sync.Mutex
	errors    []string
	successes []string
	messages  []any
}

func (r *recorder) attach(s *Session) {
	s.OnError(func(_, text string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errors = append(r.errors, text)
	})
	s.OnSuccess(func(_, text string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.successes = append(r.successes, text)
	})
	s.OnMessage(func(_ string, payload any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.messages = append(r.messages, payload)
	})
}

func (r *recorder) errs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func (r *recorder) oks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...)
}

// states returns individual codec.State messages for function.
func (r *recorder) states(function string) []codec.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []codec.State
	for _, m := range r.messages {
		if st, ok := m.(codec.State); ok && st.Function == function {
			out = append(out, st)
		}
	}
	return out
}

func (r *recorder) snapshots() [][]codec.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]codec.State
	for _, m := range r.messages {
		if snap, ok := m.([]codec.State); ok {
			out = append(out, snap)
		}
	}
	return out
}

func (r *recorder) connEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.messages {
		if ev, ok := m.(ConnectionEvent); ok {
			out = append(out, ev.Payload)
		}
	}
	return out
}

func (r *recorder) hasError(text string) bool {
	for _, e := range r.errs() {
		if e == text {
			return true
		}
	}
	return false
}

func (r *recorder) hasOK(text string) bool {
	for _, e := range r.oks() {
		if e == text {
			return true
		}
	}
	return false
}

// captureLog collects capture events.
type captureLog struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLog) Log(ev log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureLog) all() []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]log.Event(nil), c.events...)
}

func testTiming() config.Timing {
	return config.Timing{
		Debounce:          20 * time.Millisecond,
		SyncQuiet:         30 * time.Millisecond,
		KeepaliveInterval: time.Hour,
		PongTimeout:       time.Hour,
		MaxMissedPongs:    1,
		ReconnectDelay:    time.Hour,
		RestartDelay:      40 * time.Millisecond,
		ConnectTimeout:    time.Second,
	}
}

type sessionOption func(*Config)

func withTiming(fn func(*config.Timing)) sessionOption {
	return func(c *Config) { fn(&c.Timing) }
}

func withCapture(l log.Logger) sessionOption {
	return func(c *Config) { c.Capture = l }
}

func newTestSession(t *testing.T, dialer transport.Dialer, opts ...sessionOption) (*Session, *recorder) {
	t.Helper()

	con, err := console.New("ahm16")
	require.NoError(t, err)

	cfg := Config{
		Address: "console.test:51325",
		Channel: 0,
		Console: con,
		Timing:  testTiming(),
		Dialer:  dialer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s, err := NewSession(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	rec := &recorder{}
	rec.attach(s)
	return s, rec
}

// connectAndSettle connects and waits for the handshake snapshot.
func connectAndSettle(t *testing.T, s *Session, rec *recorder) {
	t.Helper()
	s.Connect()
	require.Eventually(t, func() bool { return s.State() == connection.StateConnected }, waitFor, tick)
	require.Eventually(t, func() bool { return len(rec.snapshots()) == 1 }, waitFor, tick)
}

func sceneOf(t *testing.T, st codec.State) (int, bool) {
	t.Helper()
	v, ok := st.Get("currentScene")
	if !ok {
		return 0, false
	}
	n, isInt := v.(int)
	require.True(t, isInt, "currentScene is %T", v)
	return n, true
}

func snapshotScene(t *testing.T, s *Session) (int, bool) {
	t.Helper()
	for _, st := range s.Snapshot() {
		if st.Function == "sceneRecall" {
			return sceneOf(t, st)
		}
	}
	t.Fatal("no sceneRecall state in snapshot")
	return 0, false
}

func hasPrefix(b, prefix []byte) bool {
	return bytes.HasPrefix(b, prefix)
}
