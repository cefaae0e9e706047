package ahm

import (
	"io"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

// Ping writes a mute query for input 1. The console answers with a Note On,
// so any inbound traffic after a ping acknowledges it.
func Ping(w io.Writer, ch codec.Channel) error {
	_, err := w.Write(sysEx(Input.MIDIChannel(ch), opGet, opGetMute, 0x00))
	return err
}

// NewCodecs returns a fresh codec set for an AHM console in dispatch order.
func NewCodecs(layout Layout) []codec.Codec {
	return []codec.Codec{
		NewMuteControl(layout),
		NewFaderLevel(layout),
		NewZoneSendMuteControl(layout),
		NewZoneSendFaderLevel(layout),
		NewSceneRecall(),
	}
}
