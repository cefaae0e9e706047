package log

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects capture events. Zero-valued fields select everything.
type Filter struct {
	ConnectionID string
	Direction    *Direction
	Layer        *Layer
	Category     *Category

	// TimeStart and TimeEnd bound the half-open window [TimeStart, TimeEnd).
	TimeStart *time.Time
	TimeEnd   *time.Time

	// Function selects codec events of one feature. Events without a codec
	// payload never match a non-empty Function.
	Function string
}

// Matches reports whether event passes every criterion of f.
func (f *Filter) Matches(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID:
	case f.Direction != nil && event.Direction != *f.Direction:
	case f.Layer != nil && event.Layer != *f.Layer:
	case f.Category != nil && event.Category != *f.Category:
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
	case f.Function != "" && event.Codec.function() != f.Function:
	default:
		return true
	}
	return false
}

func (c *CodecEvent) function() string {
	if c == nil {
		return ""
	}
	return c.Function
}

// Reader streams capture events from a CBOR event sequence, skipping those
// the filter rejects.
type Reader struct {
	dec     *cbor.Decoder
	closer  io.Closer
	filter  Filter
	scanned int
}

// NewReader opens a capture file and reads every event in it.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a capture file and reads the events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	r := NewStreamReader(f, filter)
	r.closer = f
	return r, nil
}

// NewStreamReader reads events matching filter from r. Close does not
// close r.
func NewStreamReader(r io.Reader, filter Filter) *Reader {
	return &Reader{dec: NewDecoder(r), filter: filter}
}

// Next returns the next matching event, or io.EOF at the end of the stream.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, fmt.Errorf("decode event %d: %w", r.scanned+1, err)
		}
		r.scanned++
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Events iterates over the remaining matching events. A decode error is
// yielded once and ends the iteration.
func (r *Reader) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			event, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// Scanned returns the number of events decoded so far, matching or not.
func (r *Reader) Scanned() int {
	return r.scanned
}

// Close releases the capture file, if the reader opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
