package ahm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

func TestFaderLevelEncode(t *testing.T) {
	f := NewFaderLevel(testLayout)

	res := f.Encode(codec.NewCommand(FunctionFaderLevel, "channel", 2, "level", 0x6B), 0)
	require.Equal(t, codec.KindBytes, res.Kind)
	assert.Equal(t, []byte{0xB0, 0x63, 0x01, 0xB0, 0x62, 0x17, 0xB0, 0x06, 0x6B}, res.Payload)

	level, ok := f.Level(Input, 2)
	assert.True(t, ok)
	assert.Equal(t, 0x6B, level)
}

func TestFaderLevelValidation(t *testing.T) {
	f := NewFaderLevel(testLayout)

	res := f.Encode(codec.NewCommand(FunctionFaderLevel, "channel", 1, "level", 128), 0)
	assert.Equal(t, codec.KindInvalid, res.Kind)
	assert.Equal(t, "level out of range (0–127)", res.Reason)

	res = f.Encode(codec.NewCommand(FunctionFaderLevel, "channel", 1, "level", "loud"), 0)
	assert.Equal(t, codec.KindInvalid, res.Kind)
	assert.Equal(t, "level must be a number", res.Reason)

	_, ok := f.Level(Input, 1)
	assert.False(t, ok)
}

func TestFaderLevelDecode(t *testing.T) {
	f := NewFaderLevel(testLayout)

	// zone 2 level on base channel 3 (zones on channel 4), preceded by noise
	buf := []byte{0x00, 0xB4, 0x63, 0x01, 0xB4, 0x62, 0x17, 0xB4, 0x06, 0x40}
	u := f.Decode(3, buf, false)
	require.Equal(t, codec.UpdateNotify, u.Kind)

	level, ok := f.Level(Zone, 2)
	assert.True(t, ok)
	assert.Equal(t, 0x40, level)
	assert.Equal(t, map[string]int{"2": 0x40}, u.State.Values["zones"])
}

func TestFaderLevelDecodeUnchangedIsNoUpdate(t *testing.T) {
	f := NewFaderLevel(testLayout)
	buf := []byte{0xB0, 0x63, 0x00, 0xB0, 0x62, 0x17, 0xB0, 0x06, 0x6B}

	require.Equal(t, codec.UpdateNotify, f.Decode(0, buf, false).Kind)
	assert.Equal(t, codec.UpdateNone, f.Decode(0, buf, false).Kind)

	buf[8] = 0x6C
	assert.Equal(t, codec.UpdateNotify, f.Decode(0, buf, false).Kind)
}

func TestFaderLevelDecodeRejectsMixedChannels(t *testing.T) {
	f := NewFaderLevel(testLayout)
	buf := []byte{0xB0, 0x63, 0x01, 0xB1, 0x62, 0x17, 0xB0, 0x06, 0x40}
	assert.Equal(t, codec.UpdateNone, f.Decode(0, buf, false).Kind)
}

func TestFaderLevelRoundTrip(t *testing.T) {
	enc := NewFaderLevel(LayoutAHM64)
	dec := NewFaderLevel(LayoutAHM64)

	res := enc.Encode(codec.NewCommand(FunctionFaderLevel, "channelType", "controlGroup", "channel", 32, "level", 0), 7)
	require.Equal(t, codec.KindBytes, res.Kind)

	u := dec.Decode(7, res.Payload, true)
	assert.Equal(t, codec.UpdateSilent, u.Kind)
	level, ok := dec.Level(ControlGroup, 32)
	assert.True(t, ok)
	assert.Equal(t, 0, level)
}

func TestFaderLevelRequestInitial(t *testing.T) {
	f := NewFaderLevel(Layout{Inputs: 1})
	var buf bytes.Buffer
	require.NoError(t, f.RequestInitial(&buf, 0))
	assert.Equal(t, []byte{0xF0, 0x00, 0x00, 0x1A, 0x50, 0x12, 0x01, 0x00, 0x00, 0x01, 0x0B, 0x17, 0x00, 0xF7}, buf.Bytes())
}
