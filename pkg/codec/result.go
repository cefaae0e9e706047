package codec

import "fmt"

// Kind tags the outcome of Codec.Encode.
type Kind uint8

const (
	// KindNotMine means the command's function belongs to another codec.
	KindNotMine Kind = iota

	// KindInvalid means the function matched but a field is invalid.
	KindInvalid

	// KindBytes means Payload must be written to the console.
	KindBytes

	// KindNoOp means nothing needs to be transmitted.
	KindNoOp
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNotMine:
		return "NOT_MINE"
	case KindInvalid:
		return "INVALID"
	case KindBytes:
		return "BYTES"
	case KindNoOp:
		return "NOOP"
	default:
		return "UNKNOWN"
	}
}

// Result is the tagged outcome of encoding one command.
type Result struct {
	Kind Kind

	// Reason describes the invalid field (KindInvalid only).
	Reason string

	// Payload holds the wire bytes (KindBytes only).
	Payload []byte

	// Reply, when set, is delivered to the host on the message channel:
	// the cache for queries, the new cache for accepted set commands.
	Reply *State
}

// NotMine returns a KindNotMine result.
func NotMine() Result {
	return Result{Kind: KindNotMine}
}

// Invalid returns a KindInvalid result with the given reason.
func Invalid(reason string) Result {
	return Result{Kind: KindInvalid, Reason: reason}
}

// Invalidf returns a KindInvalid result with a formatted reason.
func Invalidf(format string, args ...any) Result {
	return Invalid(fmt.Sprintf(format, args...))
}

// Bytes returns a KindBytes result.
func Bytes(payload []byte, reply *State) Result {
	return Result{Kind: KindBytes, Payload: payload, Reply: reply}
}

// NoOp returns a KindNoOp result.
func NoOp(reply *State) Result {
	return Result{Kind: KindNoOp, Reply: reply}
}

// String returns a short description for logs.
func (r Result) String() string {
	switch r.Kind {
	case KindInvalid:
		return fmt.Sprintf("INVALID(%s)", r.Reason)
	case KindBytes:
		return fmt.Sprintf("BYTES(% X)", r.Payload)
	default:
		return r.Kind.String()
	}
}
