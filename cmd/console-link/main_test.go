package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/consolelink/consolelink-go/pkg/codec"
	"github.com/consolelink/consolelink-go/pkg/config"
	"github.com/consolelink/consolelink-go/pkg/notify"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestParseArgsDefaults(t *testing.T) {
	cfg, opts, err := parseArgs(nil, noEnv, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.False(t, opts.jsonMode)
}

func TestParseArgsFlags(t *testing.T) {
	cfg, opts, err := parseArgs([]string{
		"--console", "ahm16",
		"-a", "10.0.0.5",
		"-p", "5000",
		"-m", "3",
		"--log-level", "debug",
		"--capture", "out.cbor",
		"--json",
	}, noEnv, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "ahm16", cfg.Console)
	assert.Equal(t, "10.0.0.5", cfg.Address)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, 3, cfg.MIDIChannel)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "out.cbor", cfg.CaptureFile)
	assert.True(t, opts.jsonMode)
}

func TestParseArgsLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.yaml")
	require.NoError(t, os.WriteFile(path, []byte("console: ahm32\naddress: file.host\nmidi_channel: 5\n"), 0o600))

	env := envOf(map[string]string{
		config.EnvAddress:     "env.host",
		config.EnvMIDIChannel: "7",
	})

	cfg, _, err := parseArgs([]string{"-c", path, "-m", "9"}, env, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "ahm32", cfg.Console, "file beats default")
	assert.Equal(t, "env.host", cfg.Address, "env beats file")
	assert.Equal(t, 9, cfg.MIDIChannel, "flag beats env")
}

func TestParseArgsUnchangedFlagKeepsEnv(t *testing.T) {
	env := envOf(map[string]string{config.EnvLogLevel: "warn"})

	cfg, _, err := parseArgs(nil, env, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestParseArgsValidation(t *testing.T) {
	_, _, err := parseArgs([]string{"-m", "17"}, noEnv, &bytes.Buffer{})
	require.Error(t, err)

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "midi_channel", verr.Field)

	_, _, err = parseArgs([]string{"--console", "ahm99"}, noEnv, &bytes.Buffer{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "console", verr.Field)
}

func TestParseArgsBadFlag(t *testing.T) {
	_, _, err := parseArgs([]string{"--nope"}, noEnv, &bytes.Buffer{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, flag.ErrHelp)
}

func TestParseArgsHelp(t *testing.T) {
	var usage bytes.Buffer
	_, opts, err := parseArgs([]string{"--help"}, noEnv, &usage)
	require.NoError(t, err)
	assert.True(t, opts.showHelp)
	assert.Contains(t, usage.String(), "--midi-channel")
}

func TestPrintModels(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printModels(&out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ahm16"))
	assert.Contains(t, lines[2], "inputs=64")
}

func TestOpenCaptureNoop(t *testing.T) {
	cfg := config.Default()
	capture, closeFn, err := openCapture(cfg, nil)
	require.NoError(t, err)
	defer closeFn()
	assert.NotNil(t, capture)
}

// mockEngine records what the JSON-lines loop asks of the session.
type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Connect()    { m.Called() }
func (m *mockEngine) Disconnect() { m.Called() }
func (m *mockEngine) Restart()    { m.Called() }

func (m *mockEngine) SendCommand(cmd codec.Command) { m.Called(cmd) }

func (m *mockEngine) Snapshot() []codec.State {
	args := m.Called()
	if s := args.Get(0); s != nil {
		return s.([]codec.State)
	}
	return nil
}

func fixedWriter(buf *bytes.Buffer) *lineWriter {
	lw := newLineWriter(buf)
	lw.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return lw
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestRunJSONLinesCommands(t *testing.T) {
	e := &mockEngine{}
	e.On("SendCommand", mock.MatchedBy(func(cmd codec.Command) bool {
		n, err := cmd.Int("scene")
		return cmd.Function() == "sceneRecall" && err == nil && n == 3
	})).Once()
	e.On("SendCommand", mock.MatchedBy(func(cmd codec.Command) bool {
		return cmd.Function() == "muteControl"
	})).Once()

	in := strings.NewReader(`{"function":"sceneRecall","scene":3}

{"function":"muteControl","channel":1,"mute":true}
`)
	var buf bytes.Buffer
	require.NoError(t, runJSONLines(in, e, fixedWriter(&buf)))

	e.AssertExpectations(t)
	assert.Empty(t, buf.String())
}

func TestRunJSONLinesControl(t *testing.T) {
	e := &mockEngine{}
	e.On("Connect").Once()
	e.On("Disconnect").Once()
	e.On("Restart").Once()
	e.On("Snapshot").Return([]codec.State{codec.NewState("sceneRecall").Set("currentScene", 4)}).Once()

	in := strings.NewReader(strings.Join([]string{
		`{"control":"connect"}`,
		`{"control":"DISCONNECT"}`,
		`{"control":"restart"}`,
		`{"control":"snapshot"}`,
	}, "\n"))

	var buf bytes.Buffer
	require.NoError(t, runJSONLines(in, e, fixedWriter(&buf)))
	e.AssertExpectations(t)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "message", lines[0]["channel"])
	assert.Equal(t, senderCLI, lines[0]["sender"])
	assert.Equal(t, []any{map[string]any{"function": "sceneRecall", "currentScene": float64(4)}}, lines[0]["payload"])
}

func TestRunJSONLinesRejectsBadInput(t *testing.T) {
	e := &mockEngine{}

	in := strings.NewReader("not json\n42\nnull\n{\"control\":\"reboot\"}\n")
	var buf bytes.Buffer
	require.NoError(t, runJSONLines(in, e, fixedWriter(&buf)))

	e.AssertNotCalled(t, "SendCommand", mock.Anything)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.Equal(t, "error", l["channel"])
		assert.Equal(t, senderCLI, l["sender"])
	}
	assert.Contains(t, lines[0]["text"], "invalid JSON")
	assert.Equal(t, "invalid command: expected a JSON object", lines[2]["text"])
	assert.Equal(t, `unknown control "reboot"`, lines[3]["text"])
}

// fakeNotifier captures the callbacks registered by lineWriter.attach.
type fakeNotifier struct {
	onError   notify.TextFunc
	onSuccess notify.TextFunc
	onMessage notify.MessageFunc
}

func (f *fakeNotifier) OnError(fn notify.TextFunc)      { f.onError = fn }
func (f *fakeNotifier) OnSuccess(fn notify.TextFunc)    { f.onSuccess = fn }
func (f *fakeNotifier) OnMessage(fn notify.MessageFunc) { f.onMessage = fn }

func TestLineWriterNotifications(t *testing.T) {
	var buf bytes.Buffer
	lw := fixedWriter(&buf)
	n := &fakeNotifier{}
	lw.attach(n)

	n.onSuccess("ahm16", "connected")
	n.onError("ahm16", "not connected")
	n.onMessage("ahm16", map[string]string{"topic": "connectionState", "payload": "connected"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, map[string]any{
		"channel": "success",
		"sender":  "ahm16",
		"text":    "connected",
		"time":    "2026-01-02T03:04:05Z",
	}, lines[0])
	assert.Equal(t, "error", lines[1]["channel"])
	assert.Equal(t, "not connected", lines[1]["text"])
	assert.Equal(t, "message", lines[2]["channel"])
	assert.Equal(t, map[string]any{"topic": "connectionState", "payload": "connected"}, lines[2]["payload"])
}
