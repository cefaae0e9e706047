package codec

import (
	"errors"
	"fmt"
	"io"
)

// Registry errors.
var (
	ErrNoFunction     = errors.New("no function found")
	ErrDuplicateCodec = errors.New("duplicate codec")
	ErrUnknownCodec   = errors.New("unknown codec")
)

// Registry is an ordered collection of codecs for one console.
type Registry struct {
	codecs []Codec
	byName map[string]int
}

// NewRegistry creates a registry with the given codecs in order.
// It panics on duplicate names; use Register to handle the error.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{byName: make(map[string]int, len(codecs))}
	for _, c := range codecs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends a codec. Names must be unique.
func (r *Registry) Register(c Codec) error {
	if _, exists := r.byName[c.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCodec, c.Name())
	}
	r.byName[c.Name()] = len(r.codecs)
	r.codecs = append(r.codecs, c)
	return nil
}

// Len returns the number of codecs.
func (r *Registry) Len() int {
	return len(r.codecs)
}

// Names returns codec names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.codecs))
	for i, c := range r.codecs {
		names[i] = c.Name()
	}
	return names
}

// Get returns the codec with the given name.
func (r *Registry) Get(name string) (Codec, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.codecs[i], true
}

// DispatchOutgoing offers the command to each codec in order and returns the
// first result that is not KindNotMine. ErrNoFunction is returned when no
// codec claims the command.
func (r *Registry) DispatchOutgoing(cmd Command, ch Channel) (Result, error) {
	for _, c := range r.codecs {
		res := c.Encode(cmd, ch)
		if res.Kind != KindNotMine {
			return res, nil
		}
	}
	return NotMine(), fmt.Errorf("%w: %q", ErrNoFunction, cmd.Function())
}

// DispatchIncoming lets every codec decode the buffer and collects the
// updates that changed a cache. Several codecs may match independent byte
// ranges of the same buffer.
func (r *Registry) DispatchIncoming(ch Channel, buf []byte, syncing bool) []Update {
	var updates []Update
	for _, c := range r.codecs {
		u := c.Decode(ch, buf, syncing)
		if u.Kind != UpdateNone {
			updates = append(updates, u)
		}
	}
	return updates
}

// RequestInitial asks one codec for its handshake query.
func (r *Registry) RequestInitial(name string, w io.Writer, ch Channel) error {
	c, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	return c.RequestInitial(w, ch)
}

// ResetAll clears every codec cache.
func (r *Registry) ResetAll() {
	for _, c := range r.codecs {
		c.Reset()
	}
}

// SnapshotAll returns every codec's state in registration order.
func (r *Registry) SnapshotAll() []State {
	states := make([]State, len(r.codecs))
	for i, c := range r.codecs {
		states[i] = c.Snapshot()
	}
	return states
}
