package log

import (
	"strings"
	"time"
)

// MaxFrameDataSize limits the raw bytes stored per frame event.
const MaxFrameDataSize = 512

// Event represents a protocol event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies one connection attempt (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates data flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the console address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Console is the console model name.
	Console string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Codec       *CodecEvent       `cbor:"11,keyasint,omitempty"` // Codec layer
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session layer
	Control     *ControlEvent     `cbor:"13,keyasint,omitempty"` // Keepalive
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates data from the console.
	DirectionIn Direction = 0
	// DirectionOut indicates data to the console.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection parses a direction name (case-insensitive).
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return DirectionIn, true
	case "OUT":
		return DirectionOut, true
	default:
		return 0, false
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the socket layer (raw MIDI bytes).
	LayerTransport Layer = 0
	// LayerCodec is the feature codec layer (commands and updates).
	LayerCodec Layer = 1
	// LayerSession is the connection and sync layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerCodec:
		return "CODEC"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// ParseLayer parses a layer name (case-insensitive).
func ParseLayer(s string) (Layer, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRANSPORT":
		return LayerTransport, true
	case "CODEC":
		return LayerCodec, true
	case "SESSION":
		return LayerSession, true
	default:
		return 0, false
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates console traffic or a codec command/update.
	CategoryMessage Category = 0
	// CategoryControl indicates keepalive traffic.
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MESSAGE":
		return CategoryMessage, true
	case "CONTROL":
		return CategoryControl, true
	case "STATE":
		return CategoryState, true
	case "ERROR":
		return CategoryError, true
	default:
		return 0, false
	}
}

// FrameEvent captures raw bytes at the transport layer. Inbound frames are
// socket reads, so a MIDI message may be split across two of them.
type FrameEvent struct {
	// Size is the number of bytes read or written.
	Size int `cbor:"1,keyasint"`

	// Data is the raw bytes (may be truncated for large reads).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewFrameEvent copies data into a frame event, truncating at MaxFrameDataSize.
func NewFrameEvent(data []byte) *FrameEvent {
	fe := &FrameEvent{Size: len(data)}
	if len(data) > MaxFrameDataSize {
		data = data[:MaxFrameDataSize]
		fe.Truncated = true
	}
	fe.Data = append([]byte(nil), data...)
	return fe
}

// CodecEvent captures a command handled or an update produced by a codec.
type CodecEvent struct {
	// Function is the codec name ("sceneRecall", "muteControl", ...).
	Function string `cbor:"1,keyasint"`

	// Op distinguishes encode from decode.
	Op CodecOp `cbor:"2,keyasint"`

	// Result is the encode result kind or the update kind.
	Result string `cbor:"3,keyasint"`

	// Reason explains an invalid command.
	Reason string `cbor:"4,keyasint,omitempty"`

	// Values is the command or the updated state.
	Values map[string]any `cbor:"5,keyasint,omitempty"`
}

// CodecOp distinguishes encode from decode.
type CodecOp uint8

const (
	// CodecOpEncode indicates an outgoing command.
	CodecOpEncode CodecOp = 0
	// CodecOpDecode indicates an update decoded from console traffic.
	CodecOpDecode CodecOp = 1
)

// String returns the codec operation name.
func (o CodecOp) String() string {
	switch o {
	case CodecOpEncode:
		return "ENCODE"
	case CodecOpDecode:
		return "DECODE"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures connection and sync lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntitySync indicates a handshake state change.
	StateEntitySync StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySync:
		return "SYNC"
	default:
		return "UNKNOWN"
	}
}

// ControlEvent captures keepalive activity.
type ControlEvent struct {
	// Type of control event.
	Type ControlType `cbor:"1,keyasint"`

	// Missed is the number of consecutive unanswered pings.
	Missed int `cbor:"2,keyasint,omitempty"`
}

// ControlType indicates the type of control event.
type ControlType uint8

const (
	// ControlPing indicates a keepalive probe was written.
	ControlPing ControlType = 0
	// ControlPong indicates traffic arrived after a probe.
	ControlPong ControlType = 1
	// ControlPongTimeout indicates a probe went unanswered.
	ControlPongTimeout ControlType = 2
)

// String returns the control type name.
func (c ControlType) String() string {
	switch c {
	case ControlPing:
		return "PING"
	case ControlPong:
		return "PONG"
	case ControlPongTimeout:
		return "PONG_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Severity is the socket error class ("fatal", "transient", "benign").
	Severity string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
