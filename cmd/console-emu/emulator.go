package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/consolelink/consolelink-go/pkg/ahm"
	"github.com/consolelink/consolelink-go/pkg/codec"
	"github.com/consolelink/consolelink-go/pkg/console"
	"github.com/consolelink/consolelink-go/pkg/log"
	"github.com/consolelink/consolelink-go/pkg/transport"
)

// emulatorConfig configures an emulator.
type emulatorConfig struct {
	Address string
	Model   string
	Channel codec.Channel
	Logger  *slog.Logger
	Capture log.Logger
}

// emulator answers hosts the way an AHM console does: set commands change
// its state and are mirrored to the other hosts, get queries are answered
// from that state.
type emulator struct {
	server  *transport.Server
	channel codec.Channel
	layout  ahm.Layout
	logger  *slog.Logger

	mu       sync.Mutex
	registry *codec.Registry
	mute     *ahm.MuteControl
	fader    *ahm.FaderLevel
}

func newEmulator(cfg emulatorConfig) (*emulator, error) {
	con, err := console.New(cfg.Model)
	if err != nil {
		return nil, err
	}
	mute, ok := codecAs[*ahm.MuteControl](con.Registry, ahm.FunctionMuteControl)
	if !ok {
		return nil, fmt.Errorf("console %s has no mute control", con.Model.Name)
	}
	fader, ok := codecAs[*ahm.FaderLevel](con.Registry, ahm.FunctionFaderLevel)
	if !ok {
		return nil, fmt.Errorf("console %s has no fader level", con.Model.Name)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &emulator{
		channel:  cfg.Channel,
		layout:   con.Model.Layout.AHM(),
		logger:   logger.With("console", con.Model.Name),
		registry: con.Registry,
		mute:     mute,
		fader:    fader,
	}
	e.server = transport.NewServer(transport.ServerConfig{
		Address: cfg.Address,
		Logger:  cfg.Capture,
		OnConnect: func(c *transport.ServerConn) {
			e.logger.Info("host connected", "remote", c.RemoteAddr(), "conn_id", c.ConnID())
		},
		OnDisconnect: func(c *transport.ServerConn) {
			e.logger.Info("host disconnected", "remote", c.RemoteAddr(), "conn_id", c.ConnID())
		},
		OnData:  e.handle,
		OnError: func(err error) { e.logger.Warn("accept failed", "error", err) },
	})
	return e, nil
}

func codecAs[T codec.Codec](r *codec.Registry, name string) (T, bool) {
	var zero T
	c, ok := r.Get(name)
	if !ok {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}

// Start begins listening.
func (e *emulator) Start(ctx context.Context) error {
	return e.server.Start(ctx)
}

// Stop drops every host and stops listening.
func (e *emulator) Stop() error {
	return e.server.Stop()
}

// Addr returns the listen address.
func (e *emulator) Addr() net.Addr {
	return e.server.Addr()
}

// State returns the console state as the hosts would see it after a sync.
func (e *emulator) State() []codec.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.SnapshotAll()
}

// handle applies the set commands in data before answering its queries, so
// a query sent after a set sees the new value.
func (e *emulator) handle(c *transport.ServerConn, data []byte) {
	e.mu.Lock()
	updates := e.registry.DispatchIncoming(e.channel, data, false)
	var reply []byte
	for _, q := range ahm.ParseQueries(e.channel, data, e.layout) {
		reply = append(reply, q.Reply(e.channel, e.mute, e.fader)...)
	}
	e.mu.Unlock()

	for _, u := range updates {
		e.logger.Info("state changed", "function", u.State.Function, "conn_id", c.ConnID())
	}
	if len(reply) > 0 {
		if err := c.Send(reply); err != nil {
			e.logger.Warn("reply failed", "conn_id", c.ConnID(), "error", err)
		}
	}
	if len(updates) > 0 {
		if err := e.server.BroadcastExcept(data, c); err != nil {
			e.logger.Warn("mirroring change failed", "error", err)
		}
	}
}
