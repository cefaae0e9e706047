package ahm

import (
	"bytes"
	"io"

	"gitlab.com/gomidi/midi/v2"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

// Mute control constants.
const (
	FunctionMuteControl = "muteControl"

	velocityMuteOn  = 0x7F
	velocityMuteOff = 0x3F
	velocityMuteMid = 0x40
)

// MuteControl switches channel mutes with Note On messages.
type MuteControl struct {
	layout Layout
	muted  channelCache[bool]
}

// NewMuteControl creates a mute codec for a console layout.
func NewMuteControl(layout Layout) *MuteControl {
	return &MuteControl{layout: layout, muted: newChannelCache[bool]()}
}

// Name returns "muteControl".
func (m *MuteControl) Name() string { return FunctionMuteControl }

// Muted returns the cached mute state of a channel.
func (m *MuteControl) Muted(t ChannelType, channel int) (bool, bool) {
	return m.muted.get(t, channel)
}

// Encode handles {function: muteControl, channelType, channel, mute}.
// Without a mute field the cache is returned.
func (m *MuteControl) Encode(cmd codec.Command, ch codec.Channel) codec.Result {
	if cmd.Function() != FunctionMuteControl {
		return codec.NotMine()
	}
	if !cmd.Has("mute") {
		return codec.NoOp(m.Snapshot().Ptr())
	}

	t, channel, reason := parseTarget(cmd, m.layout)
	if reason != "" {
		return codec.Invalid(reason)
	}
	mute, err := cmd.Bool("mute")
	if err != nil {
		return codec.Invalid("mute must be a boolean")
	}

	m.muted.set(t, channel, mute)
	return codec.Bytes(encodeMute(t.MIDIChannel(ch), channel, mute), m.Snapshot().Ptr())
}

func encodeMute(n codec.Channel, channel int, mute bool) []byte {
	vel := uint8(velocityMuteOff)
	if mute {
		vel = velocityMuteOn
	}
	key := uint8(channel - 1)
	msg := midi.NoteOn(uint8(n), key, vel)
	msg = append(msg, midi.NoteOn(uint8(n), key, 0)...)
	return []byte(msg)
}

// Decode applies every Note On with a non-zero velocity on the input, zone or
// control group channel. The trailing velocity-zero Note On is ignored.
// Replies that repeat the cached state, such as keepalive answers, are not
// updates.
func (m *MuteControl) Decode(ch codec.Channel, buf []byte, syncing bool) codec.Update {
	changed := false
	for i := 0; i+3 <= len(buf); i++ {
		var c, key, vel uint8
		if !midi.Message(buf[i:i+3]).GetNoteOn(&c, &key, &vel) {
			continue
		}
		if !dataByte(key) || !dataByte(vel) || vel == 0 {
			continue
		}
		t, ok := m.layout.typeOf(ch, codec.Channel(c))
		if !ok || int(key) >= m.layout.Count(t) {
			continue
		}
		if m.muted.set(t, int(key)+1, vel >= velocityMuteMid) {
			changed = true
		}
	}
	if !changed {
		return codec.NoUpdate()
	}
	return codec.Changed(m.Snapshot(), syncing)
}

// RequestInitial asks the console for the mute state of every channel.
func (m *MuteControl) RequestInitial(w io.Writer, ch codec.Channel) error {
	var req bytes.Buffer
	for t := Input; t < numChannelTypes; t++ {
		for i := 0; i < m.layout.Count(t); i++ {
			req.Write(sysEx(t.MIDIChannel(ch), opGet, opGetMute, byte(i)))
		}
	}
	if req.Len() == 0 {
		return nil
	}
	_, err := w.Write(req.Bytes())
	return err
}

// Snapshot returns {function: muteControl, inputs: {...}, zones: {...}, controlGroups: {...}}.
func (m *MuteControl) Snapshot() codec.State {
	return m.muted.fill(codec.NewState(FunctionMuteControl), m.layout)
}

// Reset forgets all mute states.
func (m *MuteControl) Reset() {
	m.muted.reset()
}
