// Package codec defines the contract between the console link engine and the
// per-feature packet codecs.
//
// A Codec owns one controllable aspect of a console (scene recall, fader
// level, mute, ...). It encodes structured commands into MIDI wire bytes,
// decodes the accumulated receive buffer back into cached state, and reports
// that cache as a State record.
//
// # Tagged Results
//
// Encode never returns a bare value. It returns a Result whose Kind says what
// happened:
//
//	KindNotMine  the command's function belongs to another codec
//	KindInvalid  the function matched but a field is invalid (Reason is set)
//	KindBytes    Payload must be written to the console
//	KindNoOp     nothing to transmit (queries answered from the cache)
//
// Decode returns an Update whose Kind is UpdateNone, UpdateSilent (cache
// changed during the sync handshake, nothing to announce) or UpdateNotify.
//
// # Registry
//
// A Registry is an ordered set of codecs for one console model. Order is the
// dispatch priority for outgoing commands and the population order of the
// sync work-list. Each session owns its own Registry; registries are never
// shared.
package codec
