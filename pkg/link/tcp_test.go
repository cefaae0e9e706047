package link

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consolelink/consolelink-go/pkg/codec"
	"github.com/consolelink/consolelink-go/pkg/connection"
	"github.com/consolelink/consolelink-go/pkg/console"
	"github.com/consolelink/consolelink-go/pkg/log"
	"github.com/consolelink/consolelink-go/pkg/transport"
)

// loopbackConsole is a transport.Server that records what the session sends.
type loopbackConsole struct {
	*transport.Server

	mu       sync.Mutex
	received bytes.Buffer
}

func newLoopbackConsole(t *testing.T) *loopbackConsole {
	t.Helper()
	c := &loopbackConsole{}
	c.Server = transport.NewServer(transport.ServerConfig{
		Address: "127.0.0.1:0",
		OnData: func(_ *transport.ServerConn, p []byte) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.received.Write(p)
		},
	})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop() })
	return c
}

func (c *loopbackConsole) addr() string {
	return c.Addr().String()
}

func (c *loopbackConsole) got(p []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Contains(c.received.Bytes(), p)
}

func (c *loopbackConsole) send(t *testing.T, p ...byte) {
	t.Helper()
	require.NoError(t, c.Broadcast(p))
}

func TestSessionOverTCP(t *testing.T) {
	server := newLoopbackConsole(t)
	capture := &captureLog{}

	con, err := console.New("ahm16")
	require.NoError(t, err)

	timing := testTiming()
	timing.ReconnectDelay = 50 * time.Millisecond

	s, err := NewSession(Config{
		Address: server.addr(),
		Channel: 0,
		Console: con,
		Timing:  timing,
		Capture: capture,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	rec := &recorder{}
	rec.attach(s)
	connectAndSettle(t, s, rec)

	// The handshake queried the console.
	require.Eventually(t, func() bool { return server.got(pingBytes) }, waitFor, tick)

	// Console-side scene change.
	server.send(t, 0xB0, 0x00, 0x00, 0xC0, 0x29)
	require.Eventually(t, func() bool { return len(rec.states("sceneRecall")) == 1 }, waitFor, tick)
	scene, _ := sceneOf(t, rec.states("sceneRecall")[0])
	assert.Equal(t, 42, scene)

	// Host-side command.
	s.SendCommand(codec.NewCommand("sceneRecall", "scene", 129))
	require.Eventually(t, func() bool {
		return server.got([]byte{0xB0, 0x00, 0x01, 0xC0, 0x00})
	}, waitFor, tick)

	// The console drops the link; the session reconnects.
	server.DropAll()
	require.Eventually(t, func() bool { return server.Accepted() == 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return s.State() == connection.StateConnected }, waitFor, tick)

	// Transport frames were captured in both directions.
	var in, out int
	for _, ev := range capture.all() {
		if ev.Frame == nil {
			continue
		}
		if ev.Direction == log.DirectionIn {
			in++
		} else {
			out++
		}
	}
	assert.NotZero(t, in)
	assert.NotZero(t, out)
}
