package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for a config file extension other than
// .yaml, .yml or .toml.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// fileConfig mirrors Config for decoding. Pointer fields stay nil when the
// key is absent so only keys present in the file override the defaults.
type fileConfig struct {
	Console     *string    `yaml:"console" toml:"console"`
	Address     *string    `yaml:"address" toml:"address"`
	Port        *int       `yaml:"port" toml:"port"`
	MIDIChannel *int       `yaml:"midi_channel" toml:"midi_channel"`
	LogLevel    *string    `yaml:"log_level" toml:"log_level"`
	CaptureFile *string    `yaml:"capture_file" toml:"capture_file"`
	Timing      fileTiming `yaml:"timing" toml:"timing"`
}

type fileTiming struct {
	Debounce          *string `yaml:"debounce" toml:"debounce"`
	SyncQuiet         *string `yaml:"sync_quiet" toml:"sync_quiet"`
	KeepaliveInterval *string `yaml:"keepalive_interval" toml:"keepalive_interval"`
	PongTimeout       *string `yaml:"pong_timeout" toml:"pong_timeout"`
	MaxMissedPongs    *int    `yaml:"max_missed_pongs" toml:"max_missed_pongs"`
	ReconnectDelay    *string `yaml:"reconnect_delay" toml:"reconnect_delay"`
	RestartDelay      *string `yaml:"restart_delay" toml:"restart_delay"`
	ConnectTimeout    *string `yaml:"connect_timeout" toml:"connect_timeout"`
	WriteTimeout      *string `yaml:"write_timeout" toml:"write_timeout"`
}

// Load reads a YAML or TOML file (chosen by extension) over the defaults.
// The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	var raw fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = decodeYAML(data)
	case ".toml":
		raw, err = decodeTOML(data)
	default:
		return cfg, fmt.Errorf("load config: %w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := raw.apply(&cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(data []byte) (fileConfig, error) {
	var raw fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return raw, err
	}
	return raw, nil
}

func decodeTOML(data []byte) (fileConfig, error) {
	var raw fileConfig
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return raw, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return raw, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return raw, nil
}

func (f fileConfig) apply(cfg *Config) error {
	setString(&cfg.Console, f.Console)
	setString(&cfg.Address, f.Address)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.CaptureFile, f.CaptureFile)
	if f.Port != nil {
		cfg.Port = *f.Port
	}
	if f.MIDIChannel != nil {
		cfg.MIDIChannel = *f.MIDIChannel
	}
	if f.Timing.MaxMissedPongs != nil {
		cfg.Timing.MaxMissedPongs = *f.Timing.MaxMissedPongs
	}

	durations := []struct {
		field string
		src   *string
		dst   *time.Duration
	}{
		{"timing.debounce", f.Timing.Debounce, &cfg.Timing.Debounce},
		{"timing.sync_quiet", f.Timing.SyncQuiet, &cfg.Timing.SyncQuiet},
		{"timing.keepalive_interval", f.Timing.KeepaliveInterval, &cfg.Timing.KeepaliveInterval},
		{"timing.pong_timeout", f.Timing.PongTimeout, &cfg.Timing.PongTimeout},
		{"timing.reconnect_delay", f.Timing.ReconnectDelay, &cfg.Timing.ReconnectDelay},
		{"timing.restart_delay", f.Timing.RestartDelay, &cfg.Timing.RestartDelay},
		{"timing.connect_timeout", f.Timing.ConnectTimeout, &cfg.Timing.ConnectTimeout},
		{"timing.write_timeout", f.Timing.WriteTimeout, &cfg.Timing.WriteTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(*d.src))
		if err != nil {
			return invalid(d.field, *d.src, "invalid duration")
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Environment variables read by LoadFromEnv.
const (
	EnvConsole     = "CONSOLELINK_CONSOLE"
	EnvAddress     = "CONSOLELINK_ADDRESS"
	EnvPort        = "CONSOLELINK_PORT"
	EnvMIDIChannel = "CONSOLELINK_MIDI_CHANNEL"
	EnvLogLevel    = "CONSOLELINK_LOG_LEVEL"
	EnvCaptureFile = "CONSOLELINK_CAPTURE_FILE"
)

// LoadFromEnv overlays environment variables onto cfg. Only non-empty
// variables override. Malformed numbers are reported as *ValidationError.
func LoadFromEnv(cfg *Config) error {
	return LoadFromLookup(cfg, os.LookupEnv)
}

// LoadFromLookup is LoadFromEnv with a custom variable source.
func LoadFromLookup(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get(EnvConsole); v != "" {
		cfg.Console = v
	}
	if v := get(EnvAddress); v != "" {
		cfg.Address = v
	}
	if v := get(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := get(EnvCaptureFile); v != "" {
		cfg.CaptureFile = v
	}
	if v := get(EnvPort); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid("port", v, "not a number (%s)", EnvPort)
		}
		cfg.Port = n
	}
	if v := get(EnvMIDIChannel); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid("midi_channel", v, "not a number (%s)", EnvMIDIChannel)
		}
		cfg.MIDIChannel = n
	}
	return nil
}
