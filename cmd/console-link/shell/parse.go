package shell

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/consolelink/consolelink-go/pkg/ahm"
	"github.com/consolelink/consolelink-go/pkg/codec"
)

// ErrUnknownCommand is returned by ParseCommand for words that are not
// console commands.
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand turns one shell line into a console command.
//
//	scene [n]
//	mute <type> <ch> [on|off]
//	fader <type> <ch> [level]
//	sendmute <type> <ch> <zone> [on|off]
//	sendlevel <type> <ch> <zone> [level]
//	send <json>
//
// Omitting the trailing value asks for the cached state. Values are passed
// through unvalidated; range and type checks belong to the codecs.
func ParseCommand(line string) (codec.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrUnknownCommand
	}
	word, args := strings.ToLower(fields[0]), fields[1:]

	switch word {
	case "scene", "s":
		cmd := codec.NewCommand(ahm.FunctionSceneRecall)
		if len(args) > 1 {
			return nil, usage("scene [n]")
		}
		if len(args) == 1 {
			cmd["scene"] = value(args[0])
		}
		return cmd, nil

	case "mute", "m":
		return channelCommand(ahm.FunctionMuteControl, "mute", args, "mute <type> <ch> [on|off]")

	case "fader", "f":
		return channelCommand(ahm.FunctionFaderLevel, "level", args, "fader <type> <ch> [level]")

	case "sendmute":
		return sendCommand(ahm.FunctionZoneSendMuteControl, "mute", args, "sendmute <type> <ch> <zone> [on|off]")

	case "sendlevel":
		return sendCommand(ahm.FunctionZoneSendFaderLevel, "level", args, "sendlevel <type> <ch> <zone> [level]")

	case "send":
		raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		return decodeJSON(raw)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, word)
	}
}

func channelCommand(function, valueKey string, args []string, syntax string) (codec.Command, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, usage(syntax)
	}
	cmd := codec.NewCommand(function, "channelType", args[0], "channel", value(args[1]))
	if len(args) == 3 {
		cmd[valueKey] = value(args[2])
	}
	return cmd, nil
}

func sendCommand(function, valueKey string, args []string, syntax string) (codec.Command, error) {
	if len(args) < 3 || len(args) > 4 {
		return nil, usage(syntax)
	}
	cmd := codec.NewCommand(function,
		"channelType", args[0],
		"channel", value(args[1]),
		"zone", value(args[2]))
	if len(args) == 4 {
		cmd[valueKey] = value(args[3])
	}
	return cmd, nil
}

// decodeJSON reads a raw command object. Numbers stay json.Number so the
// codecs see integers as integers.
func decodeJSON(raw string) (codec.Command, error) {
	if raw == "" {
		return nil, usage("send <json>")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var cmd codec.Command
	if err := dec.Decode(&cmd); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if cmd == nil {
		return nil, errors.New("invalid JSON: expected an object")
	}
	return cmd, nil
}

// value passes integers as int and everything else as text.
func value(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func usage(syntax string) error {
	return fmt.Errorf("usage: %s", syntax)
}
