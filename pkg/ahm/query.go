package ahm

import (
	"github.com/consolelink/consolelink-go/pkg/codec"
)

// Query is a state request a host sends to the console: get mute or get
// fader level of one channel.
type Query struct {
	Function string
	Type     ChannelType
	Channel  int
}

// ParseQueries returns the get-mute and get-level requests in buf addressed
// to a console on base channel ch, in arrival order. Requests for channels
// outside the layout are dropped.
func ParseQueries(ch codec.Channel, buf []byte, l Layout) []Query {
	var out []Query
	scanSysEx(buf, func(n codec.Channel, body []byte) {
		t, ok := l.typeOf(ch, n)
		if !ok || len(body) < 3 || body[0] != opGet {
			return
		}

		var q Query
		switch {
		case body[1] == opGetMute && len(body) == 3:
			q = Query{Function: FunctionMuteControl, Type: t, Channel: int(body[2]) + 1}
		case body[1] == opGetLevel && len(body) == 4 && body[2] == paramFaderNRPN:
			q = Query{Function: FunctionFaderLevel, Type: t, Channel: int(body[3]) + 1}
		default:
			return
		}
		if q.Channel > l.Count(t) {
			return
		}
		out = append(out, q)
	})
	return out
}

// Reply encodes the console's answer to q from the caches of m and f. A
// channel with nothing cached answers unmuted at level 0.
func (q Query) Reply(ch codec.Channel, m *MuteControl, f *FaderLevel) []byte {
	n := q.Type.MIDIChannel(ch)
	switch q.Function {
	case FunctionMuteControl:
		muted, _ := m.Muted(q.Type, q.Channel)
		return encodeMute(n, q.Channel, muted)
	case FunctionFaderLevel:
		level, _ := f.Level(q.Type, q.Channel)
		return encodeFader(n, q.Channel, level)
	default:
		return nil
	}
}
