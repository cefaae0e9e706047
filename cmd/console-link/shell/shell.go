// Package shell provides the interactive command line for console-link.
package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/consolelink/consolelink-go/pkg/console"
	"github.com/consolelink/consolelink-go/pkg/link"
)

// Shell handles interactive mode for console-link.
type Shell struct {
	rl        *readline.Instance
	session   *link.Session
	closeOnce sync.Once

	errColor  *color.Color
	okColor   *color.Color
	msgColor  *color.Color
	dimColor  *color.Color
	headColor *color.Color
}

// New creates the readline instance. Call Attach before Run.
func New() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "console> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		rl:        rl,
		errColor:  color.New(color.FgRed),
		okColor:   color.New(color.FgGreen),
		msgColor:  color.New(color.FgCyan),
		dimColor:  color.New(color.Faint),
		headColor: color.New(color.Bold),
	}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (sh *Shell) Stdout() io.Writer {
	return sh.rl.Stdout()
}

// Stderr returns a writer that coordinates with the readline prompt. Use it
// for log output.
func (sh *Shell) Stderr() io.Writer {
	return sh.rl.Stderr()
}

// Attach binds the shell to a session and prints its notifications.
func (sh *Shell) Attach(s *link.Session) {
	sh.session = s
	sh.rl.SetPrompt(s.Name() + "> ")

	s.OnError(func(sender, text string) {
		sh.print(sh.errColor, "error", sender, text)
	})
	s.OnSuccess(func(sender, text string) {
		sh.print(sh.okColor, "ok", sender, text)
	})
	s.OnMessage(func(sender string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			sh.print(sh.errColor, "error", sender, err.Error())
			return
		}
		sh.print(sh.msgColor, "msg", sender, string(data))
	})
}

// Close releases the terminal.
func (sh *Shell) Close() {
	sh.closeOnce.Do(func() { _ = sh.rl.Close() })
}

// Run starts the interactive command loop. It calls cancel when the user
// quits.
func (sh *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer sh.Close()

	sh.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := sh.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(sh.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		word := strings.ToLower(strings.Fields(input)[0])
		switch word {
		case "help", "?":
			sh.printHelp()

		case "connect":
			sh.session.Connect()

		case "disconnect":
			sh.session.Disconnect()

		case "restart":
			sh.session.Restart()

		case "state":
			sh.cmdState()

		case "status":
			sh.cmdStatus()

		case "models":
			sh.cmdModels()

		case "quit", "exit", "q":
			fmt.Fprintln(sh.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			cmd, err := ParseCommand(input)
			if err != nil {
				if errors.Is(err, ErrUnknownCommand) {
					sh.errColor.Fprintf(sh.rl.Stdout(), "Unknown command: %s (type 'help')\n", word)
					continue
				}
				sh.errColor.Fprintln(sh.rl.Stdout(), err)
				continue
			}
			sh.session.SendCommand(cmd)
		}
	}
}

func (sh *Shell) print(c *color.Color, label, sender, text string) {
	w := sh.rl.Stdout()
	sh.dimColor.Fprintf(w, "%s ", time.Now().Format("15:04:05.000"))
	c.Fprintf(w, "%-5s", label)
	fmt.Fprintf(w, " [%s] %s\n", sender, text)
}

func (sh *Shell) cmdState() {
	states := sh.session.Snapshot()
	if len(states) == 0 {
		fmt.Fprintln(sh.rl.Stdout(), "No state cached.")
		return
	}
	w := sh.rl.Stdout()
	for _, st := range states {
		sh.headColor.Fprintln(w, st.Function)
		keys := make([]string, 0, len(st.Values))
		for k := range st.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			data, _ := json.Marshal(st.Values[k])
			fmt.Fprintf(w, "  %-14s %s\n", k, data)
		}
	}
}

func (sh *Shell) cmdStatus() {
	st, err := sh.session.Status()
	if err != nil {
		sh.errColor.Fprintln(sh.rl.Stdout(), err)
		return
	}
	w := sh.rl.Stdout()
	fmt.Fprintf(w, "Console:     %s at %s\n", st.Console, st.Address)
	fmt.Fprintf(w, "State:       %s\n", stateColor(st.State.String()).Sprint(st.State))
	fmt.Fprintf(w, "Sync:        %s\n", st.Sync)
	if st.ConnectionID != "" {
		fmt.Fprintf(w, "Connection:  %s\n", st.ConnectionID)
	}
	fmt.Fprintf(w, "Buffered:    %d bytes\n", st.BufferedBytes)
	fmt.Fprintf(w, "Timers:      %d pending\n", st.PendingTimers)
	fmt.Fprintf(w, "Reconnects:  %d\n", st.ReconnectAttempts)
	if !st.KeepAlive.LastPongTime.IsZero() {
		fmt.Fprintf(w, "Last pong:   %s (%s)\n",
			st.KeepAlive.LastPongTime.Format(time.TimeOnly), st.KeepAlive.LastLatency)
	}
}

func (sh *Shell) cmdModels() {
	names, err := console.Models()
	if err != nil {
		sh.errColor.Fprintln(sh.rl.Stdout(), err)
		return
	}
	w := sh.rl.Stdout()
	for _, name := range names {
		m, err := console.LoadModel(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %-8s %s\n", m.Name, m.Description)
	}
}

func stateColor(state string) *color.Color {
	switch state {
	case "CONNECTED":
		return color.New(color.FgGreen)
	case "DISCONNECTED", "CLOSED":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}

func (sh *Shell) printHelp() {
	w := sh.rl.Stdout()
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  connect                              - Open the link")
	fmt.Fprintln(w, "  disconnect                           - Close the link, keep cached state")
	fmt.Fprintln(w, "  restart                              - Disconnect, clear state, reconnect")
	fmt.Fprintln(w, "  scene [n]                            - Recall scene n (1-500), or show current")
	fmt.Fprintln(w, "  mute <type> <ch> [on|off]            - Mute an input, zone or control group")
	fmt.Fprintln(w, "  fader <type> <ch> [level]            - Set a fader level (0-127)")
	fmt.Fprintln(w, "  sendmute <type> <ch> <zone> [on|off] - Mute a send into a zone")
	fmt.Fprintln(w, "  sendlevel <type> <ch> <zone> [level] - Set a send level into a zone")
	fmt.Fprintln(w, "  send <json>                          - Send a raw command object")
	fmt.Fprintln(w, "  state                                - Show cached console state")
	fmt.Fprintln(w, "  status                               - Show link status")
	fmt.Fprintln(w, "  models                               - List console models")
	fmt.Fprintln(w, "  help                                 - Show this help")
	fmt.Fprintln(w, "  quit                                 - Exit")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Types: input, zone, cg")
	fmt.Fprintln(w, "")
}
