package ahm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

func TestZoneSendMuteEncode(t *testing.T) {
	z := NewZoneSendMuteControl(testLayout)

	res := z.Encode(codec.NewCommand(FunctionZoneSendMuteControl, "channel", 3, "zone", 2, "mute", true), 0)
	require.Equal(t, codec.KindBytes, res.Kind)
	assert.Equal(t, []byte{0xF0, 0x00, 0x00, 0x1A, 0x50, 0x12, 0x01, 0x00, 0x00, 0x03, 0x02, 0x01, 0x01, 0x7F, 0xF7}, res.Payload)

	muted, ok := z.Muted(Input, 3, 2)
	assert.True(t, ok)
	assert.True(t, muted)

	sends := res.Reply.Values["sends"].([]map[string]any)
	require.Len(t, sends, 1)
	assert.Equal(t, map[string]any{"channelType": "input", "channel": 3, "zone": 2, "mute": true}, sends[0])
}

func TestZoneSendValidation(t *testing.T) {
	tests := []struct {
		name   string
		cmd    codec.Command
		reason string
	}{
		{"control group source", codec.NewCommand(FunctionZoneSendMuteControl, "channelType", "cg", "channel", 1, "zone", 1, "mute", true), "channelType controlGroup not supported"},
		{"missing zone", codec.NewCommand(FunctionZoneSendMuteControl, "channel", 1, "mute", true), "zone is required"},
		{"zone range", codec.NewCommand(FunctionZoneSendMuteControl, "channel", 1, "zone", 3, "mute", true), "zone out of range (1–2)"},
		{"zone word", codec.NewCommand(FunctionZoneSendMuteControl, "channel", 1, "zone", "a", "mute", true), "zone must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := NewZoneSendMuteControl(testLayout)
			res := z.Encode(tt.cmd, 0)
			assert.Equal(t, codec.KindInvalid, res.Kind)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestZoneSendLevelRoundTrip(t *testing.T) {
	enc := NewZoneSendFaderLevel(testLayout)
	dec := NewZoneSendFaderLevel(testLayout)

	res := enc.Encode(codec.NewCommand(FunctionZoneSendFaderLevel, "channelType", "zone", "channel", 1, "zone", 2, "level", 99), 6)
	require.Equal(t, codec.KindBytes, res.Kind)

	// surround the frame with unrelated traffic
	buf := append([]byte{0x96, 0x00, 0x7F}, res.Payload...)
	buf = append(buf, 0xB6, 0x00, 0x01)

	u := dec.Decode(6, buf, false)
	require.Equal(t, codec.UpdateNotify, u.Kind)
	level, ok := dec.Level(Zone, 1, 2)
	assert.True(t, ok)
	assert.Equal(t, 99, level)
}

func TestZoneSendDecodeIgnoresOtherOpcode(t *testing.T) {
	mute := NewZoneSendMuteControl(testLayout)
	level := NewZoneSendFaderLevel(testLayout)

	res := level.Encode(codec.NewCommand(FunctionZoneSendFaderLevel, "channel", 1, "zone", 1, "level", 10), 0)
	require.Equal(t, codec.KindBytes, res.Kind)

	assert.Equal(t, codec.UpdateNone, mute.Decode(0, res.Payload, false).Kind)
}

func TestZoneSendDeclinesInitialRequest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewZoneSendMuteControl(testLayout).RequestInitial(&buf, 0))
	require.NoError(t, NewZoneSendFaderLevel(testLayout).RequestInitial(&buf, 0))
	assert.Zero(t, buf.Len())
}

func TestZoneSendSnapshotSortedAndReset(t *testing.T) {
	z := NewZoneSendFaderLevel(testLayout)
	z.Encode(codec.NewCommand(FunctionZoneSendFaderLevel, "channelType", "zone", "channel", 1, "zone", 1, "level", 1), 0)
	z.Encode(codec.NewCommand(FunctionZoneSendFaderLevel, "channel", 2, "zone", 2, "level", 2), 0)
	z.Encode(codec.NewCommand(FunctionZoneSendFaderLevel, "channel", 2, "zone", 1, "level", 3), 0)

	sends := z.Snapshot().Values["sends"].([]map[string]any)
	require.Len(t, sends, 3)
	assert.Equal(t, 3, sends[0]["level"])
	assert.Equal(t, 2, sends[1]["level"])
	assert.Equal(t, "zone", sends[2]["channelType"])

	z.Reset()
	assert.Empty(t, z.Snapshot().Values["sends"])
}
