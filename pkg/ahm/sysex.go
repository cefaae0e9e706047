package ahm

import (
	"bytes"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

// SysEx framing.
const (
	sysExStart byte = 0xF0
	sysExEnd   byte = 0xF7
)

// sysExHeader is the AHM "all call" SysEx header, including the F0 start byte.
var sysExHeader = []byte{sysExStart, 0x00, 0x00, 0x1A, 0x50, 0x12, 0x01, 0x00}

// SysEx opcodes.
const (
	opGet          byte = 0x01
	opSendMute     byte = 0x03
	opGetMute      byte = 0x09
	opGetLevel     byte = 0x0B
	opSendLevel    byte = 0x0D
	paramFaderNRPN byte = 0x17
)

// sysEx builds F0 <hdr> 0N body... F7.
func sysEx(n codec.Channel, body ...byte) []byte {
	frame := make([]byte, 0, len(sysExHeader)+len(body)+2)
	frame = append(frame, sysExHeader...)
	frame = append(frame, byte(n))
	frame = append(frame, body...)
	return append(frame, sysExEnd)
}

// scanSysEx calls fn for every complete AHM SysEx frame in buf with the 0N
// channel byte and the body between it and F7.
func scanSysEx(buf []byte, fn func(n codec.Channel, body []byte)) {
	for i := 0; i+len(sysExHeader) < len(buf); i++ {
		if !bytes.HasPrefix(buf[i:], sysExHeader) {
			continue
		}
		start := i + len(sysExHeader)
		end := bytes.IndexByte(buf[start:], sysExEnd)
		if end < 0 {
			return
		}
		if n := buf[start]; n < 0x10 {
			fn(codec.Channel(n), buf[start+1:start+end])
		}
		i = start + end
	}
}

// dataByte reports whether b is a 7-bit MIDI data byte.
func dataByte(b byte) bool {
	return b < 0x80
}
