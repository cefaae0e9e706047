package link

import (
	"time"

	"github.com/consolelink/consolelink-go/pkg/log"
	"github.com/consolelink/consolelink-go/pkg/transport"
)

func (s *Session) event(layer log.Layer, category log.Category) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Layer:        layer,
		Category:     category,
		RemoteAddr:   s.address,
		Console:      s.name,
	}
}

func (s *Session) captureCodec(op log.CodecOp, function, result, reason string, values map[string]any) {
	ev := s.event(log.LayerCodec, log.CategoryMessage)
	if op == log.CodecOpEncode {
		ev.Direction = log.DirectionOut
	}
	ev.Codec = &log.CodecEvent{
		Function: function,
		Op:       op,
		Result:   result,
		Reason:   reason,
		Values:   values,
	}
	s.capture.Log(ev)
}

func (s *Session) captureState(entity log.StateEntity, oldState, newState string) {
	ev := s.event(log.LayerSession, log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		Entity:   entity,
		OldState: oldState,
		NewState: newState,
	}
	s.capture.Log(ev)
}

func (s *Session) captureControl(typ log.ControlType, missed int) {
	ev := s.event(log.LayerSession, log.CategoryControl)
	if typ == log.ControlPing {
		ev.Direction = log.DirectionOut
	}
	ev.Control = &log.ControlEvent{Type: typ, Missed: missed}
	s.capture.Log(ev)
}

func (s *Session) captureError(err error, sev transport.Severity) {
	ev := s.event(log.LayerTransport, log.CategoryError)
	ev.Error = &log.ErrorEventData{
		Layer:    log.LayerTransport,
		Message:  err.Error(),
		Severity: sev.String(),
	}
	s.capture.Log(ev)
}
