package codec

import "io"

// Codec encodes and decodes one console feature and owns its cached state.
// Codecs are not safe for concurrent use; the owning session serializes calls.
type Codec interface {
	// Name returns the command function name handled by this codec.
	Name() string

	// Encode turns a command into wire bytes or a tagged non-transmitting result.
	Encode(cmd Command, ch Channel) Result

	// Decode scans the whole buffer for this feature's wire pattern.
	Decode(ch Channel, buf []byte, syncing bool) Update

	// Snapshot returns the cached state.
	Snapshot() State

	// Reset clears the cache to its unset baseline.
	Reset()

	// RequestInitial writes the handshake query for this feature, if any.
	RequestInitial(w io.Writer, ch Channel) error
}

// NoInitialRequest is embedded by codecs for features the console cannot be
// queried for.
type NoInitialRequest struct{}

// RequestInitial does nothing.
func (NoInitialRequest) RequestInitial(io.Writer, Channel) error { return nil }
