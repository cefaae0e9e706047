package ahm

import (
	"cmp"
	"slices"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

// Zone send function names.
const (
	FunctionZoneSendMuteControl = "zoneSendMuteControl"
	FunctionZoneSendFaderLevel  = "zoneSendFaderLevel"

	sendBodyLength = 5
)

// sendKey identifies one send: source channel into destination zone.
type sendKey struct {
	source  ChannelType
	channel int
	zone    int
}

// sendTable is the cache and wire logic shared by the two zone send codecs.
// value fields are named by valueKey ("mute" or "level").
type sendTable[V any] struct {
	codec.NoInitialRequest

	name     string
	opcode   byte
	valueKey string
	layout   Layout
	values   map[sendKey]V

	parse  func(cmd codec.Command) (V, codec.Result, bool)
	toWire func(V) byte
	toVal  func(byte) V
}

func (s *sendTable[V]) Name() string { return s.name }

func (s *sendTable[V]) get(source ChannelType, channel, zone int) (V, bool) {
	v, ok := s.values[sendKey{source, channel, zone}]
	return v, ok
}

// Encode handles {function, channelType, channel, zone, <valueKey>}.
func (s *sendTable[V]) Encode(cmd codec.Command, ch codec.Channel) codec.Result {
	if cmd.Function() != s.name {
		return codec.NotMine()
	}
	if !cmd.Has(s.valueKey) {
		return codec.NoOp(s.Snapshot().Ptr())
	}

	source, channel, reason := parseTarget(cmd, s.layout, Input, Zone)
	if reason != "" {
		return codec.Invalid(reason)
	}
	if !cmd.Has("zone") {
		return codec.Invalid("zone is required")
	}
	zone, err := cmd.Int("zone")
	if err != nil {
		return codec.Invalid("zone must be a number")
	}
	if zone < 1 || zone > s.layout.Zones {
		return codec.Invalidf("zone out of range (1–%d)", s.layout.Zones)
	}
	v, res, ok := s.parse(cmd)
	if !ok {
		return res
	}

	s.values[sendKey{source, channel, zone}] = v
	frame := sysEx(source.MIDIChannel(ch), s.opcode,
		byte(channel-1), byte(Zone.MIDIChannel(ch)), byte(zone-1), s.toWire(v))
	return codec.Bytes(frame, s.Snapshot().Ptr())
}

// Decode applies every send frame with this table's opcode.
func (s *sendTable[V]) Decode(ch codec.Channel, buf []byte, syncing bool) codec.Update {
	matched := false
	scanSysEx(buf, func(n codec.Channel, body []byte) {
		if len(body) != sendBodyLength || body[0] != s.opcode {
			return
		}
		source, ok := s.layout.typeOf(ch, n)
		if !ok || source == ControlGroup {
			return
		}
		channel, sndN, zone, value := body[1], body[2], body[3], body[4]
		if codec.Channel(sndN) != Zone.MIDIChannel(ch) {
			return
		}
		if int(channel) >= s.layout.Count(source) || int(zone) >= s.layout.Zones || !dataByte(value) {
			return
		}
		s.values[sendKey{source, int(channel) + 1, int(zone) + 1}] = s.toVal(value)
		matched = true
	})
	if !matched {
		return codec.NoUpdate()
	}
	return codec.Changed(s.Snapshot(), syncing)
}

// Snapshot returns {function, sends: [{channelType, channel, zone, <valueKey>}, ...]}
// sorted by source, channel and zone.
func (s *sendTable[V]) Snapshot() codec.State {
	keys := make([]sendKey, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b sendKey) int {
		return cmp.Or(
			cmp.Compare(a.source, b.source),
			cmp.Compare(a.channel, b.channel),
			cmp.Compare(a.zone, b.zone),
		)
	})

	sends := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		sends = append(sends, map[string]any{
			"channelType": k.source.String(),
			"channel":     k.channel,
			"zone":        k.zone,
			s.valueKey:    s.values[k],
		})
	}
	return codec.NewState(s.name).Set("sends", sends)
}

func (s *sendTable[V]) Reset() {
	s.values = make(map[sendKey]V)
}

// ZoneSendMuteControl mutes the send of an input or zone into a zone.
type ZoneSendMuteControl struct {
	*sendTable[bool]
}

// NewZoneSendMuteControl creates a zone send mute codec.
func NewZoneSendMuteControl(layout Layout) *ZoneSendMuteControl {
	return &ZoneSendMuteControl{&sendTable[bool]{
		name:     FunctionZoneSendMuteControl,
		opcode:   opSendMute,
		valueKey: "mute",
		layout:   layout,
		values:   make(map[sendKey]bool),
		parse: func(cmd codec.Command) (bool, codec.Result, bool) {
			mute, err := cmd.Bool("mute")
			if err != nil {
				return false, codec.Invalid("mute must be a boolean"), false
			}
			return mute, codec.Result{}, true
		},
		toWire: func(mute bool) byte {
			if mute {
				return velocityMuteOn
			}
			return velocityMuteOff
		},
		toVal: func(b byte) bool { return b >= velocityMuteMid },
	}}
}

// Muted returns the cached mute state of a send.
func (z *ZoneSendMuteControl) Muted(source ChannelType, channel, zone int) (bool, bool) {
	return z.get(source, channel, zone)
}

// ZoneSendFaderLevel sets the level of an input or zone send into a zone.
type ZoneSendFaderLevel struct {
	*sendTable[int]
}

// NewZoneSendFaderLevel creates a zone send level codec.
func NewZoneSendFaderLevel(layout Layout) *ZoneSendFaderLevel {
	return &ZoneSendFaderLevel{&sendTable[int]{
		name:     FunctionZoneSendFaderLevel,
		opcode:   opSendLevel,
		valueKey: "level",
		layout:   layout,
		values:   make(map[sendKey]int),
		parse:    parseLevel,
		toWire:   func(level int) byte { return byte(level) },
		toVal:    func(b byte) int { return int(b) },
	}}
}

// Level returns the cached level of a send.
func (z *ZoneSendFaderLevel) Level(source ChannelType, channel, zone int) (int, bool) {
	return z.get(source, channel, zone)
}
