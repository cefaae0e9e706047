package ahm

import (
	"bytes"
	"io"

	"gitlab.com/gomidi/midi/v2"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

// Fader level constants.
const (
	FunctionFaderLevel = "faderLevel"

	// MaxLevel is +10 dB; 0x6B is 0 dB and 0 is -inf.
	MaxLevel = 0x7F

	ctrlNRPNMSB   = 0x63
	ctrlNRPNLSB   = 0x62
	ctrlDataEntry = 0x06
	nrpnLength    = 9
)

// FaderLevel sets channel fader levels with an NRPN sequence.
type FaderLevel struct {
	layout Layout
	levels channelCache[int]
}

// NewFaderLevel creates a fader level codec for a console layout.
func NewFaderLevel(layout Layout) *FaderLevel {
	return &FaderLevel{layout: layout, levels: newChannelCache[int]()}
}

// Name returns "faderLevel".
func (f *FaderLevel) Name() string { return FunctionFaderLevel }

// Level returns the cached level of a channel.
func (f *FaderLevel) Level(t ChannelType, channel int) (int, bool) {
	return f.levels.get(t, channel)
}

// Encode handles {function: faderLevel, channelType, channel, level}.
// Without a level field the cache is returned.
func (f *FaderLevel) Encode(cmd codec.Command, ch codec.Channel) codec.Result {
	if cmd.Function() != FunctionFaderLevel {
		return codec.NotMine()
	}
	if !cmd.Has("level") {
		return codec.NoOp(f.Snapshot().Ptr())
	}

	t, channel, reason := parseTarget(cmd, f.layout)
	if reason != "" {
		return codec.Invalid(reason)
	}
	level, res, ok := parseLevel(cmd)
	if !ok {
		return res
	}

	f.levels.set(t, channel, level)
	return codec.Bytes(encodeFader(t.MIDIChannel(ch), channel, level), f.Snapshot().Ptr())
}

// parseLevel validates the level field shared by fader and send level codecs.
func parseLevel(cmd codec.Command) (int, codec.Result, bool) {
	level, err := cmd.Int("level")
	if err != nil {
		return 0, codec.Invalid("level must be a number"), false
	}
	if level < 0 || level > MaxLevel {
		return 0, codec.Invalidf("level out of range (0–%d)", MaxLevel), false
	}
	return level, codec.Result{}, true
}

func encodeFader(n codec.Channel, channel, level int) []byte {
	c := uint8(n)
	msg := midi.ControlChange(c, ctrlNRPNMSB, uint8(channel-1))
	msg = append(msg, midi.ControlChange(c, ctrlNRPNLSB, paramFaderNRPN)...)
	msg = append(msg, midi.ControlChange(c, ctrlDataEntry, uint8(level))...)
	return []byte(msg)
}

// Decode looks for the three-message NRPN fader sequence anywhere in buf.
func (f *FaderLevel) Decode(ch codec.Channel, buf []byte, syncing bool) codec.Update {
	changed := false
	for i := 0; i+nrpnLength <= len(buf); i++ {
		c, key, ok := controlChange(buf, i, ctrlNRPNMSB)
		if !ok {
			continue
		}
		if c2, param, ok := controlChange(buf, i+3, ctrlNRPNLSB); !ok || c2 != c || param != paramFaderNRPN {
			continue
		}
		c3, level, ok := controlChange(buf, i+6, ctrlDataEntry)
		if !ok || c3 != c {
			continue
		}
		t, ok := f.layout.typeOf(ch, c)
		if !ok || int(key) >= f.layout.Count(t) {
			continue
		}
		if f.levels.set(t, int(key)+1, int(level)) {
			changed = true
		}
	}
	if !changed {
		return codec.NoUpdate()
	}
	return codec.Changed(f.Snapshot(), syncing)
}

// controlChange parses a CC at buf[i:] and checks its controller number.
func controlChange(buf []byte, i int, want uint8) (codec.Channel, uint8, bool) {
	var c, ctrl, val uint8
	if !midi.Message(buf[i:i+3]).GetControlChange(&c, &ctrl, &val) {
		return 0, 0, false
	}
	if ctrl != want || !dataByte(val) {
		return 0, 0, false
	}
	return codec.Channel(c), val, true
}

// RequestInitial asks the console for the fader level of every channel.
func (f *FaderLevel) RequestInitial(w io.Writer, ch codec.Channel) error {
	var req bytes.Buffer
	for t := Input; t < numChannelTypes; t++ {
		for i := 0; i < f.layout.Count(t); i++ {
			req.Write(sysEx(t.MIDIChannel(ch), opGet, opGetLevel, paramFaderNRPN, byte(i)))
		}
	}
	if req.Len() == 0 {
		return nil
	}
	_, err := w.Write(req.Bytes())
	return err
}

// Snapshot returns {function: faderLevel, inputs: {...}, zones: {...}, controlGroups: {...}}.
func (f *FaderLevel) Snapshot() codec.State {
	return f.levels.fill(codec.NewState(FunctionFaderLevel), f.layout)
}

// Reset forgets all levels.
func (f *FaderLevel) Reset() {
	f.levels.reset()
}
