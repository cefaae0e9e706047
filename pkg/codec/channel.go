package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidChannel is returned for a user MIDI channel outside 1..16.
var ErrInvalidChannel = errors.New("midi channel out of range (1-16)")

// Channel is a zero-based MIDI channel (0..15), the low nibble of a
// channel-voice status byte.
type Channel uint8

// ChannelFromUser converts a 1-based user channel into a Channel.
func ChannelFromUser(n int) (Channel, error) {
	if n < 1 || n > 16 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChannel, n)
	}
	return Channel(n - 1), nil
}

// Offset returns the channel k positions above c, wrapping at 16.
func (c Channel) Offset(k uint8) Channel {
	return Channel((uint8(c) + k) & 0x0F)
}

// User returns the 1-based channel number.
func (c Channel) User() int {
	return int(c) + 1
}

// String returns the channel as shown to users ("ch 1".."ch 16").
func (c Channel) String() string {
	return fmt.Sprintf("ch %d", c.User())
}
