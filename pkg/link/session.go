package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/consolelink/consolelink-go/pkg/codec"
	"github.com/consolelink/consolelink-go/pkg/config"
	"github.com/consolelink/consolelink-go/pkg/connection"
	"github.com/consolelink/consolelink-go/pkg/console"
	"github.com/consolelink/consolelink-go/pkg/handshake"
	"github.com/consolelink/consolelink-go/pkg/log"
	"github.com/consolelink/consolelink-go/pkg/notify"
	"github.com/consolelink/consolelink-go/pkg/timer"
	"github.com/consolelink/consolelink-go/pkg/transport"
)

// Notification texts.
const (
	MsgNotConnected    = "not connected"
	MsgNoFunctionFound = "No Function Found"
	MsgSent            = "sent"
)

// ErrSessionClosed is returned by calls on a closed session.
var ErrSessionClosed = errors.New("session closed")

// Config configures a Session.
type Config struct {
	// Name is the sender name on every notification.
	Name string

	// Address is the console host:port.
	Address string

	// Channel is the zero-based MIDI base channel.
	Channel codec.Channel

	// Console supplies the codec registry and the keepalive probe.
	Console *console.Console

	Timing config.Timing

	// Dialer opens connections (default: a TCPDialer built from Timing).
	Dialer transport.Dialer

	// Logger receives operational logs (default: discard).
	Logger *slog.Logger

	// Capture receives protocol capture events (default: none).
	Capture log.Logger
}

// ConfigFrom builds a session config from a validated file configuration.
func ConfigFrom(cfg config.Config) (Config, error) {
	ch, err := cfg.Channel()
	if err != nil {
		return Config{}, err
	}
	con, err := console.New(cfg.Console)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Name:    con.Model.Name,
		Address: cfg.Addr(),
		Channel: ch,
		Console: con,
		Timing:  cfg.Timing,
	}, nil
}

// Session is the link to one console.
type Session struct {
	name    string
	address string
	channel codec.Channel
	console *console.Console
	timing  config.Timing
	dialer  transport.Dialer
	logger  *slog.Logger
	capture log.Logger

	// Loop-owned state.
	conn       *connection.Manager
	timers     *timer.Manager[timerName]
	buffer     *ReceiveBuffer
	sync       *handshake.Coordinator
	keepalive  *transport.KeepAlive
	transport  transport.Connection
	connID     string
	gen        uint64
	cancelDial context.CancelFunc

	notifier *notify.Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	events    chan any
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session and starts its event loop. The session is
// idle until Connect is called.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Console == nil {
		return nil, fmt.Errorf("link: console is required")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("link: address is required")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Console.Model.Name
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Timing.ConnectTimeout <= 0 {
		cfg.Timing.ConnectTimeout = transport.DefaultConnectTimeout
	}
	if cfg.Timing.RestartDelay <= 0 {
		cfg.Timing.RestartDelay = connection.DefaultRestartDelay
	}
	capture := log.OrNoop(cfg.Capture)
	if cfg.Dialer == nil {
		cfg.Dialer = transport.NewDialer(transport.DialerConfig{
			ConnectTimeout: cfg.Timing.ConnectTimeout,
			WriteTimeout:   cfg.Timing.WriteTimeout,
			Logger:         capture,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		name:     cfg.Name,
		address:  cfg.Address,
		channel:  cfg.Channel,
		console:  cfg.Console,
		timing:   cfg.Timing,
		dialer:   cfg.Dialer,
		logger:   cfg.Logger.With("console", cfg.Name, "addr", cfg.Address),
		capture:  capture,
		conn:     connection.NewManager(connection.NewBackoff(cfg.Timing.ReconnectDelay)),
		notifier: notify.NewDispatcher(cfg.Logger),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan any, 64),
		done:     make(chan struct{}),
	}

	s.timers = timer.NewManager(func(e timer.Expiry[timerName]) {
		s.post(timerEvent{expiry: e})
	})
	s.buffer = NewReceiveBuffer(sessionTimer{s.timers, timerDebounce}, cfg.Timing.Debounce)
	s.sync = handshake.NewCoordinator(cfg.Console.Registry, sessionTimer{s.timers, timerSync}, cfg.Timing.SyncQuiet)
	s.sync.OnStateChange(s.syncStateChanged)
	s.keepalive = transport.NewKeepAlive(transport.KeepAliveConfig{
		PingInterval:   cfg.Timing.KeepaliveInterval,
		PongTimeout:    cfg.Timing.PongTimeout,
		MaxMissedPongs: cfg.Timing.MaxMissedPongs,
	})
	s.conn.OnStateChange(s.connStateChanged)

	s.notifier.Start()
	go s.loop()
	return s, nil
}

// Name returns the notification sender name.
func (s *Session) Name() string { return s.name }

// OnError registers a callback for error notifications.
func (s *Session) OnError(fn notify.TextFunc) { s.notifier.OnError(fn) }

// OnSuccess registers a callback for success notifications.
func (s *Session) OnSuccess(fn notify.TextFunc) { s.notifier.OnSuccess(fn) }

// OnMessage registers a callback for message notifications: codec.State
// updates and replies, the []codec.State snapshot after the handshake and
// ConnectionEvent values.
func (s *Session) OnMessage(fn notify.MessageFunc) { s.notifier.OnMessage(fn) }

// State returns the connection state.
func (s *Session) State() connection.State {
	return s.conn.State()
}

// Connect starts connecting unless the session is already connecting or
// connected.
func (s *Session) Connect() { s.post(connectEvent{}) }

// Disconnect closes the connection and cancels every pending timer,
// including a scheduled reconnect. Cached state is kept.
func (s *Session) Disconnect() { s.post(disconnectEvent{}) }

// Restart disconnects, clears every cache and connects again after the
// restart delay. A second Restart before the delay elapsed replaces the
// pending connect.
func (s *Session) Restart() { s.post(restartEvent{}) }

// SendCommand encodes cmd and writes it to the console. Outcomes are
// reported through the notification channels.
func (s *Session) SendCommand(cmd codec.Command) { s.post(commandEvent{cmd: cmd}) }

// Snapshot returns every cached feature state in registry order. It
// returns nil once the session is closed.
func (s *Session) Snapshot() []codec.State {
	reply := make(chan []codec.State, 1)
	if !s.post(snapshotEvent{reply: reply}) {
		return nil
	}
	select {
	case states := <-reply:
		return states
	case <-s.done:
		return nil
	}
}

// Status returns a point-in-time view of the session.
func (s *Session) Status() (Status, error) {
	reply := make(chan Status, 1)
	if !s.post(statusEvent{reply: reply}) {
		return Status{}, ErrSessionClosed
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return Status{}, ErrSessionClosed
	}
}

// Close disconnects, stops the event loop and delivers the notifications
// already queued. It must not be called from a notification callback.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.post(closeEvent{})
		<-s.done
		s.notifier.Stop()
	})
	return nil
}

// post hands an event to the loop. It reports false once the loop exited.
func (s *Session) post(ev any) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) loop() {
	defer close(s.done)

	for ev := range s.events {
		if _, ok := ev.(closeEvent); ok {
			s.shutdown()
			s.drain()
			return
		}
		s.handle(ev)
	}
}

// drain closes connections delivered by dials that finished during shutdown.
func (s *Session) drain() {
	for {
		select {
		case ev := <-s.events:
			if d, ok := ev.(dialEvent); ok && d.conn != nil {
				_ = d.conn.Close()
			}
		default:
			return
		}
	}
}

func (s *Session) handle(ev any) {
	switch ev := ev.(type) {
	case connectEvent:
		s.connect()
	case disconnectEvent:
		s.disconnect()
	case restartEvent:
		s.restart()
	case commandEvent:
		s.sendCommand(ev.cmd)
	case snapshotEvent:
		ev.reply <- s.console.Registry.SnapshotAll()
	case statusEvent:
		ev.reply <- s.status()
	case dialEvent:
		s.handleDial(ev)
	case dataEvent:
		s.handleData(ev)
	case readErrorEvent:
		if ev.gen == s.gen {
			s.handleError(ev.err)
		}
	case timerEvent:
		if s.timers.Claim(ev.expiry) {
			s.handleTimer(ev.expiry.Name)
		}
	}
}

func (s *Session) status() Status {
	return Status{
		State:             s.conn.State(),
		Sync:              s.sync.State(),
		Address:           s.address,
		Console:           s.console.Model.Name,
		ConnectionID:      s.connID,
		BufferedBytes:     s.buffer.Len(),
		PendingTimers:     s.timers.Count(),
		ReconnectAttempts: s.conn.BackoffAttempts(),
		KeepAlive:         s.keepalive.Stats(),
	}
}

func (s *Session) connect() {
	if !s.conn.CanConnect() {
		return
	}
	s.timers.Cancel(timerReconnect)
	s.timers.Cancel(timerRestart)
	s.conn.DisarmReconnect()
	s.teardown()

	s.connID = uuid.NewString()
	s.conn.Transition(connection.StateConnecting)

	gen, connID := s.gen, s.connID
	ctx, cancel := context.WithTimeout(s.ctx, s.timing.ConnectTimeout)
	s.cancelDial = cancel

	s.logger.Debug("dialing", "conn_id", connID)
	go func() {
		conn, err := s.dialer.Dial(ctx, s.address, connID)
		if !s.post(dialEvent{gen: gen, connID: connID, conn: conn, err: err}) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (s *Session) handleDial(ev dialEvent) {
	if ev.gen != s.gen || s.conn.State() != connection.StateConnecting {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	if ev.err != nil {
		s.handleError(ev.err)
		return
	}

	s.transport = ev.conn
	s.keepalive.Reset()
	go s.readLoop(ev.gen, ev.conn)

	if err := s.sync.Begin(s.transport, s.channel); err != nil {
		s.handleError(err)
		return
	}
	s.conn.Transition(connection.StateConnected)
}

func (s *Session) readLoop(gen uint64, conn transport.Connection) {
	err := conn.ReadLoop(func(p []byte) {
		s.post(dataEvent{gen: gen, data: p})
	})
	s.post(readErrorEvent{gen: gen, err: err})
}

func (s *Session) handleData(ev dataEvent) {
	if ev.gen != s.gen || s.transport == nil {
		return
	}
	if s.keepalive.Traffic() {
		s.timers.Cancel(timerPong)
		s.captureControl(log.ControlPong, 0)
	}
	s.buffer.Append(ev.data)
	s.sync.Touch()
}

func (s *Session) handleTimer(name timerName) {
	switch name {
	case timerDebounce:
		s.decode()
	case timerSync:
		s.syncTick()
	case timerPing:
		s.ping()
	case timerPong:
		s.pongTimeout()
	case timerReconnect:
		if s.conn.ReconnectFired() {
			s.logger.Info("reconnecting", "attempt", s.conn.BackoffAttempts())
			s.connect()
		}
	case timerRestart:
		s.connect()
	}
}

func (s *Session) decode() {
	data := s.buffer.Flush()
	if len(data) == 0 {
		return
	}
	for _, u := range s.console.Registry.DispatchIncoming(s.channel, data, s.sync.Syncing()) {
		s.captureCodec(log.CodecOpDecode, u.State.Function, u.Kind.String(), "", u.State.Values)
		if u.Kind == codec.UpdateNotify {
			s.notifier.Message(s.name, u.State)
		}
	}
}

func (s *Session) syncTick() {
	if s.transport == nil {
		return
	}
	snapshot, settled, err := s.sync.Tick(s.transport, s.channel)
	if err != nil {
		s.handleError(err)
		return
	}
	if settled {
		s.notifier.Message(s.name, snapshot)
	}
}

func (s *Session) ping() {
	if !s.conn.IsConnected() || s.transport == nil {
		return
	}
	if err := s.console.Ping(s.transport, s.channel); err != nil {
		s.handleError(err)
		return
	}
	s.keepalive.PingSent()
	s.captureControl(log.ControlPing, 0)

	cfg := s.keepalive.Config()
	_, _ = s.timers.Schedule(timerPong, cfg.PongTimeout)
	_, _ = s.timers.Schedule(timerPing, cfg.PingInterval)
}

func (s *Session) pongTimeout() {
	missed, dead := s.keepalive.PongTimeout()
	s.captureControl(log.ControlPongTimeout, missed)
	if !dead {
		s.logger.Warn("keepalive probe unanswered", "missed", missed)
		return
	}
	s.logger.Warn("keepalive failed, link lost", "missed", missed)
	s.notifier.Error(s.name, "keepalive timeout")
	s.linkLost()
}

func (s *Session) sendCommand(cmd codec.Command) {
	if !s.conn.IsConnected() || s.transport == nil {
		s.notifier.Error(s.name, MsgNotConnected)
		return
	}

	res, err := s.console.Registry.DispatchOutgoing(cmd, s.channel)
	if err != nil {
		s.captureCodec(log.CodecOpEncode, cmd.Function(), res.Kind.String(), err.Error(), cmd)
		s.notifier.Error(s.name, MsgNoFunctionFound)
		return
	}
	s.captureCodec(log.CodecOpEncode, cmd.Function(), res.Kind.String(), res.Reason, cmd)

	switch res.Kind {
	case codec.KindInvalid:
		s.notifier.Error(s.name, res.Reason)
		return
	case codec.KindBytes:
		if _, err := s.transport.Write(res.Payload); err != nil {
			s.handleError(err)
			return
		}
		s.notifier.Success(s.name, MsgSent)
	}
	if res.Reply != nil {
		s.notifier.Message(s.name, *res.Reply)
	}
}

// handleError reacts to a socket error according to its severity.
func (s *Session) handleError(err error) {
	sev := transport.SeverityOf(err)
	if sev == transport.SeverityBenign && s.conn.State() == connection.StateConnecting {
		// A reset before the link is up is a failed attempt.
		sev = transport.SeverityTransient
	}
	s.captureError(err, sev)

	switch sev {
	case transport.SeverityBenign:
		s.logger.Debug("ignoring socket error", "error", err)
	case transport.SeverityFatal:
		s.logger.Error("fatal socket error", "error", err)
		s.notifier.Error(s.name, err.Error())
		s.timers.Cancel(timerReconnect)
		s.conn.DisarmReconnect()
		s.teardown()
		s.conn.Transition(connection.StateDisconnected)
	default:
		s.logger.Warn("link lost", "error", err)
		s.notifier.Error(s.name, err.Error())
		s.linkLost()
	}
}

func (s *Session) linkLost() {
	s.teardown()
	if delay, arm := s.conn.LinkLost(); arm {
		_, _ = s.timers.Schedule(timerReconnect, delay)
	}
}

func (s *Session) disconnect() {
	s.timers.Cancel(timerReconnect)
	s.timers.Cancel(timerRestart)
	s.conn.DisarmReconnect()
	s.teardown()
	s.conn.Transition(connection.StateDisconnected)
}

func (s *Session) restart() {
	s.logger.Info("restart requested")
	s.disconnect()
	s.console.Registry.ResetAll()
	_, _ = s.timers.Schedule(timerRestart, s.timing.RestartDelay)
}

// teardown drops the current connection attempt: the transport is closed,
// events from it become stale, and the buffer, handshake and keepalive are
// reset. Reconnect and restart timers are left alone.
func (s *Session) teardown() {
	s.gen++
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	if s.transport != nil {
		_ = s.transport.Close()
		s.transport = nil
	}
	s.buffer.Discard()
	s.sync.Reset()
	s.keepalive.Reset()
	s.timers.Cancel(timerPing)
	s.timers.Cancel(timerPong)
}

func (s *Session) shutdown() {
	s.timers.CancelAll()
	s.conn.DisarmReconnect()
	s.teardown()
	s.conn.Close()
	s.cancel()
}

func (s *Session) connStateChanged(oldState, newState connection.State) {
	s.logger.Info("connection state changed", "from", oldState.String(), "to", newState.String())
	s.captureState(log.StateEntityConnection, oldState.String(), newState.String())

	if newState == connection.StateConnected {
		_, _ = s.timers.Schedule(timerPing, s.keepalive.Config().PingInterval)
	}

	topic := newState.Topic()
	if newState == connection.StateClosed && oldState == connection.StateDisconnected {
		return
	}
	s.notifier.Success(s.name, topic)
	if newState != connection.StateConnecting {
		s.notifier.Message(s.name, ConnectionEvent{Topic: TopicConnectionState, Payload: topic})
	}
}

func (s *Session) syncStateChanged(oldState, newState handshake.State) {
	s.logger.Debug("sync state changed", "from", oldState.String(), "to", newState.String())
	s.captureState(log.StateEntitySync, oldState.String(), newState.String())
}
