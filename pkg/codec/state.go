package codec

import (
	"encoding/json"
	"maps"
)

// State is the cached last-known state of one feature.
// It marshals to a flat JSON object: {"function": "sceneRecall", "currentScene": 12}.
type State struct {
	Function string
	Values   map[string]any
}

// NewState creates an empty state for a feature.
func NewState(function string) State {
	return State{Function: function, Values: make(map[string]any)}
}

// Set stores a value and returns the state for chaining.
func (s State) Set(key string, value any) State {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = value
	return s
}

// Get returns a value by key.
func (s State) Get(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// Ptr returns a pointer to a copy of s, for use as a Result reply.
func (s State) Ptr() *State {
	return &s
}

// MarshalJSON flattens the state into one object keyed by field name.
func (s State) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Values)+1)
	maps.Copy(out, s.Values)
	out[FunctionKey] = s.Function
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fn, _ := raw[FunctionKey].(string)
	delete(raw, FunctionKey)
	s.Function = fn
	s.Values = raw
	return nil
}

// UpdateKind tags the outcome of Codec.Decode.
type UpdateKind uint8

const (
	// UpdateNone means nothing in the buffer matched.
	UpdateNone UpdateKind = iota

	// UpdateSilent means the cache changed but nothing is announced
	// (the session is still handshaking).
	UpdateSilent

	// UpdateNotify means the cache changed and State must be announced.
	UpdateNotify
)

// String returns the update kind name.
func (k UpdateKind) String() string {
	switch k {
	case UpdateNone:
		return "NONE"
	case UpdateSilent:
		return "SILENT"
	case UpdateNotify:
		return "NOTIFY"
	default:
		return "UNKNOWN"
	}
}

// Update is the outcome of decoding the receive buffer for one feature.
type Update struct {
	Kind  UpdateKind
	State State
}

// NoUpdate returns an UpdateNone result.
func NoUpdate() Update {
	return Update{Kind: UpdateNone}
}

// Changed returns the update for a cache change: silent while syncing,
// otherwise a notification carrying the full state.
func Changed(state State, syncing bool) Update {
	if syncing {
		return Update{Kind: UpdateSilent, State: state}
	}
	return Update{Kind: UpdateNotify, State: state}
}
