package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/consolelink/consolelink-go/pkg/codec"
	"github.com/consolelink/consolelink-go/pkg/notify"
)

// senderCLI marks lines produced by console-link itself.
const senderCLI = "console-link"

// maxLineSize bounds a single JSON input line.
const maxLineSize = 64 * 1024

// engine is the part of a session the JSON-lines mode drives.
type engine interface {
	Connect()
	Disconnect()
	Restart()
	SendCommand(cmd codec.Command)
	Snapshot() []codec.State
}

// notifier is the part of a session that delivers notifications.
type notifier interface {
	OnError(fn notify.TextFunc)
	OnSuccess(fn notify.TextFunc)
	OnMessage(fn notify.MessageFunc)
}

// outputLine is one JSON line on stdout.
type outputLine struct {
	Channel string    `json:"channel"`
	Sender  string    `json:"sender"`
	Text    string    `json:"text,omitempty"`
	Payload any       `json:"payload,omitempty"`
	Time    time.Time `json:"time"`
}

// lineWriter serializes notifications as JSON lines.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{enc: json.NewEncoder(w), now: time.Now}
}

func (lw *lineWriter) attach(n notifier) {
	n.OnError(func(sender, text string) {
		lw.write(outputLine{Channel: notify.ChannelError.String(), Sender: sender, Text: text})
	})
	n.OnSuccess(func(sender, text string) {
		lw.write(outputLine{Channel: notify.ChannelSuccess.String(), Sender: sender, Text: text})
	})
	n.OnMessage(func(sender string, payload any) {
		lw.write(outputLine{Channel: notify.ChannelMessage.String(), Sender: sender, Payload: payload})
	})
}

func (lw *lineWriter) write(line outputLine) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	line.Time = lw.now()
	_ = lw.enc.Encode(line)
}

func (lw *lineWriter) errorf(format string, args ...any) {
	lw.write(outputLine{
		Channel: notify.ChannelError.String(),
		Sender:  senderCLI,
		Text:    fmt.Sprintf(format, args...),
	})
}

// controlLine is an input line that drives the link instead of the console.
type controlLine struct {
	Control string `json:"control"`
}

// runJSONLines reads one JSON object per line until EOF. Objects with a
// "control" key drive the link ("connect", "disconnect", "restart",
// "snapshot"); everything else is a console command.
func runJSONLines(in io.Reader, e engine, out *lineWriter) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ctl controlLine
		if err := json.Unmarshal(line, &ctl); err != nil {
			out.errorf("invalid JSON: %v", err)
			continue
		}
		if ctl.Control != "" {
			handleControl(strings.ToLower(ctl.Control), e, out)
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var cmd codec.Command
		if err := dec.Decode(&cmd); err != nil || cmd == nil {
			out.errorf("invalid command: expected a JSON object")
			continue
		}
		e.SendCommand(cmd)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}
	return nil
}

func handleControl(control string, e engine, out *lineWriter) {
	switch control {
	case "connect":
		e.Connect()
	case "disconnect":
		e.Disconnect()
	case "restart":
		e.Restart()
	case "snapshot":
		out.write(outputLine{
			Channel: notify.ChannelMessage.String(),
			Sender:  senderCLI,
			Payload: e.Snapshot(),
		})
	default:
		out.errorf("unknown control %q", control)
	}
}
