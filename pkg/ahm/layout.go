package ahm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

// ChannelType selects which bank of console channels a command addresses.
type ChannelType uint8

const (
	// Input addresses input channels (MIDI channel N).
	Input ChannelType = iota

	// Zone addresses zone outputs (MIDI channel N+1).
	Zone

	// ControlGroup addresses control groups (MIDI channel N+2).
	ControlGroup

	numChannelTypes = 3
)

// String returns the command field spelling of the channel type.
func (t ChannelType) String() string {
	switch t {
	case Input:
		return "input"
	case Zone:
		return "zone"
	case ControlGroup:
		return "controlGroup"
	default:
		return "unknown"
	}
}

// plural returns the snapshot key for the channel type.
func (t ChannelType) plural() string {
	switch t {
	case Input:
		return "inputs"
	case Zone:
		return "zones"
	case ControlGroup:
		return "controlGroups"
	default:
		return "unknown"
	}
}

// MIDIChannel returns the MIDI channel carrying this type for a base channel.
func (t ChannelType) MIDIChannel(base codec.Channel) codec.Channel {
	return base.Offset(uint8(t))
}

// ParseChannelType parses a channelType command field.
func ParseChannelType(s string) (ChannelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "input", "inputs", "in":
		return Input, nil
	case "zone", "zones":
		return Zone, nil
	case "controlgroup", "controlgroups", "control group", "cg":
		return ControlGroup, nil
	default:
		return 0, fmt.Errorf("unknown channelType %q", s)
	}
}

// Layout is the number of channels of each type on a console model.
type Layout struct {
	Inputs        int
	Zones         int
	ControlGroups int
}

// LayoutAHM64 is the channel layout of the AHM-64.
var LayoutAHM64 = Layout{Inputs: 64, Zones: 64, ControlGroups: 32}

// Count returns the number of channels of the given type.
func (l Layout) Count(t ChannelType) int {
	switch t {
	case Input:
		return l.Inputs
	case Zone:
		return l.Zones
	case ControlGroup:
		return l.ControlGroups
	default:
		return 0
	}
}

// typeOf maps a received MIDI channel back to the channel type it carries.
func (l Layout) typeOf(base, ch codec.Channel) (ChannelType, bool) {
	for t := Input; t < numChannelTypes; t++ {
		if t.MIDIChannel(base) == ch && l.Count(t) > 0 {
			return t, true
		}
	}
	return 0, false
}

// parseTarget reads channelType (default input) and channel from a command.
// The returned reason is empty when the target is valid.
func parseTarget(cmd codec.Command, l Layout, allowed ...ChannelType) (ChannelType, int, string) {
	t := Input
	if cmd.Has("channelType") {
		s, _ := cmd.Text("channelType")
		parsed, err := ParseChannelType(s)
		if err != nil {
			return 0, 0, err.Error()
		}
		t = parsed
	}
	if len(allowed) > 0 && !containsType(allowed, t) {
		return 0, 0, fmt.Sprintf("channelType %s not supported", t)
	}

	if !cmd.Has("channel") {
		return 0, 0, "channel is required"
	}
	ch, err := cmd.Int("channel")
	if err != nil {
		return 0, 0, "channel must be a number"
	}
	if n := l.Count(t); ch < 1 || ch > n {
		return 0, 0, fmt.Sprintf("channel out of range (1–%d)", n)
	}
	return t, ch, ""
}

func containsType(list []ChannelType, t ChannelType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

// channelCache holds one value per (type, 1-based channel).
type channelCache[V comparable] struct {
	values [numChannelTypes]map[int]V
}

func newChannelCache[V comparable]() channelCache[V] {
	var c channelCache[V]
	c.reset()
	return c
}

// set stores v and reports whether the cached value changed.
func (c *channelCache[V]) set(t ChannelType, ch int, v V) bool {
	old, ok := c.values[t][ch]
	c.values[t][ch] = v
	return !ok || old != v
}

func (c *channelCache[V]) get(t ChannelType, ch int) (V, bool) {
	v, ok := c.values[t][ch]
	return v, ok
}

func (c *channelCache[V]) reset() {
	for i := range c.values {
		c.values[i] = make(map[int]V)
	}
}

// fill adds one snapshot key per channel type, keyed by channel number.
func (c *channelCache[V]) fill(s codec.State, l Layout) codec.State {
	for t := Input; t < numChannelTypes; t++ {
		if l.Count(t) == 0 {
			continue
		}
		out := make(map[string]V, len(c.values[t]))
		for ch, v := range c.values[t] {
			out[strconv.Itoa(ch)] = v
		}
		s = s.Set(t.plural(), out)
	}
	return s
}
