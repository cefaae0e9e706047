package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/consolelink/consolelink-go/pkg/codec"
	"github.com/consolelink/consolelink-go/pkg/connection"
	"github.com/consolelink/consolelink-go/pkg/console"
	"github.com/consolelink/consolelink-go/pkg/transport"
)

// Default timings.
const (
	DefaultDebounce       = 100 * time.Millisecond
	DefaultSyncQuiet      = 3000 * time.Millisecond
	DefaultMIDIChannel    = 1
	DefaultLogLevel       = "info"
	DefaultConsoleAddress = "192.168.1.70"
)

// Timing groups every delay the link engine uses.
type Timing struct {
	// Debounce is the receive buffer quiet period before a decode pass.
	Debounce time.Duration

	// SyncQuiet is the handshake quiet period between work-list ticks.
	SyncQuiet time.Duration

	// KeepaliveInterval is the time between pings while connected.
	KeepaliveInterval time.Duration

	// PongTimeout is how long to wait for inbound bytes after a ping.
	PongTimeout time.Duration

	// MaxMissedPongs is the number of consecutive unanswered pings that
	// mark the link as lost.
	MaxMissedPongs int

	// ReconnectDelay is the fixed delay before each reconnect attempt.
	ReconnectDelay time.Duration

	// RestartDelay is the delay between Restart and the fresh connect.
	RestartDelay time.Duration

	// ConnectTimeout bounds a single dial.
	ConnectTimeout time.Duration

	// WriteTimeout bounds a single socket write. Zero disables it.
	WriteTimeout time.Duration
}

// Config is the complete link configuration.
type Config struct {
	// Console is the model name, e.g. "ahm64".
	Console string

	// Address is the console host name or IP.
	Address string

	// Port is the console TCP port. Zero selects the model default.
	Port int

	// MIDIChannel is the 1-based MIDI base channel (1..16).
	MIDIChannel int

	Timing Timing

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// CaptureFile, when set, receives a CBOR protocol capture.
	CaptureFile string
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Console:     console.DefaultModel,
		Address:     DefaultConsoleAddress,
		MIDIChannel: DefaultMIDIChannel,
		Timing: Timing{
			Debounce:          DefaultDebounce,
			SyncQuiet:         DefaultSyncQuiet,
			KeepaliveInterval: transport.DefaultPingInterval,
			PongTimeout:       transport.DefaultPongTimeout,
			MaxMissedPongs:    transport.DefaultMaxMissedPongs,
			ReconnectDelay:    connection.DefaultReconnectDelay,
			RestartDelay:      connection.DefaultRestartDelay,
			ConnectTimeout:    transport.DefaultConnectTimeout,
		},
		LogLevel: DefaultLogLevel,
	}
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s=%v: %s", e.Field, e.Value, e.Message)
}

func invalid(field string, value any, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the configuration and returns the first problem found
// as a *ValidationError.
func (c Config) Validate() error {
	if _, err := console.LoadModel(c.Console); err != nil {
		return invalid("console", c.Console, "unknown model (available: %s)", availableModels())
	}
	if strings.TrimSpace(c.Address) == "" {
		return invalid("address", c.Address, "address is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return invalid("port", c.Port, "out of range 0-65535")
	}
	if _, err := codec.ChannelFromUser(c.MIDIChannel); err != nil {
		return invalid("midi_channel", c.MIDIChannel, "out of range 1-16")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", c.LogLevel, "%v", err)
	}
	return c.Timing.validate()
}

func (t Timing) validate() error {
	positive := []struct {
		field string
		value time.Duration
	}{
		{"timing.debounce", t.Debounce},
		{"timing.sync_quiet", t.SyncQuiet},
		{"timing.keepalive_interval", t.KeepaliveInterval},
		{"timing.pong_timeout", t.PongTimeout},
		{"timing.reconnect_delay", t.ReconnectDelay},
		{"timing.restart_delay", t.RestartDelay},
		{"timing.connect_timeout", t.ConnectTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return invalid(p.field, p.value, "must be positive")
		}
	}
	if t.WriteTimeout < 0 {
		return invalid("timing.write_timeout", t.WriteTimeout, "must not be negative")
	}
	if t.MaxMissedPongs < 1 {
		return invalid("timing.max_missed_pongs", t.MaxMissedPongs, "must be at least 1")
	}
	return nil
}

// Channel returns the zero-based MIDI channel.
func (c Config) Channel() (codec.Channel, error) {
	return codec.ChannelFromUser(c.MIDIChannel)
}

// ResolvedPort returns Port, or the model's default port when Port is zero.
func (c Config) ResolvedPort() int {
	if c.Port != 0 {
		return c.Port
	}
	if m, err := console.LoadModel(c.Console); err == nil && m.Port != 0 {
		return m.Port
	}
	return transport.DefaultPort
}

// Addr returns the dial address host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.ResolvedPort()))
}

// SlogLevel returns the parsed log level, falling back to info.
func (c Config) SlogLevel() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel parses debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

func availableModels() string {
	names, err := console.Models()
	if err != nil {
		return "?"
	}
	return strings.Join(names, ", ")
}
