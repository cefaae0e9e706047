package transport

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrConnectionClosed is returned for operations on a closed Conn.
var ErrConnectionClosed = errors.New("connection closed")

// Severity tells the session how to react to a socket error.
type Severity uint8

const (
	// SeverityTransient errors schedule a reconnect.
	SeverityTransient Severity = iota

	// SeverityFatal errors stop the link without reconnecting.
	SeverityFatal

	// SeverityBenign errors are ignored.
	SeverityBenign
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityTransient:
		return "transient"
	case SeverityFatal:
		return "fatal"
	case SeverityBenign:
		return "benign"
	default:
		return "unknown"
	}
}

// OpError is a socket failure with its operation, address and severity.
type OpError struct {
	Op       string // "dial", "read", "write"
	Addr     string
	Err      error
	Severity Severity
}

func (e *OpError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Severity != SeverityTransient {
		s += " (" + e.Severity.String() + ")"
	}
	return s
}

func (e *OpError) Unwrap() error { return e.Err }

// Wrap creates an OpError, classifying err.
func Wrap(op, addr string, err error) *OpError {
	return &OpError{Op: op, Addr: addr, Err: err, Severity: Classify(err)}
}

// SeverityOf returns the severity carried by an OpError in err's chain, or
// classifies err directly.
func SeverityOf(err error) Severity {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Severity
	}
	return Classify(err)
}

// Classify inspects standard library errors. A peer close (io.EOF) and
// unreachable hosts are transient.
func Classify(err error) Severity {
	switch {
	case err == nil:
		return SeverityBenign
	case errors.Is(err, syscall.EADDRINUSE):
		return SeverityFatal
	case errors.Is(err, syscall.ECONNRESET):
		return SeverityBenign
	case errors.Is(err, net.ErrClosed), errors.Is(err, ErrConnectionClosed):
		return SeverityBenign
	default:
		return SeverityTransient
	}
}
