package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456789, time.UTC)
	original := Event{
		Timestamp:    ts,
		ConnectionID: "abc12345-def6-7890-abcd-ef1234567890",
		Direction:    DirectionOut,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
		RemoteAddr:   "192.168.1.70:51325",
		Console:      "ahm64",
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.ConnectionID != original.ConnectionID {
		t.Errorf("ConnectionID: got %q, want %q", decoded.ConnectionID, original.ConnectionID)
	}
	if decoded.Direction != original.Direction {
		t.Errorf("Direction: got %v, want %v", decoded.Direction, original.Direction)
	}
	if decoded.RemoteAddr != original.RemoteAddr {
		t.Errorf("RemoteAddr: got %q, want %q", decoded.RemoteAddr, original.RemoteAddr)
	}
	if decoded.Console != original.Console {
		t.Errorf("Console: got %q, want %q", decoded.Console, original.Console)
	}
}

func TestFrameEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
		Frame:        NewFrameEvent([]byte{0x90, 0x00, 0x7F, 0x90, 0x00, 0x00}),
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Frame == nil {
		t.Fatal("Frame is nil")
	}
	if decoded.Frame.Size != 6 {
		t.Errorf("Frame.Size = %d, want 6", decoded.Frame.Size)
	}
	if !bytes.Equal(decoded.Frame.Data, original.Frame.Data) {
		t.Errorf("Frame.Data = % X, want % X", decoded.Frame.Data, original.Frame.Data)
	}
}

func TestCodecEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		Layer:     LayerCodec,
		Category:  CategoryMessage,
		Codec: &CodecEvent{
			Function: "muteControl",
			Op:       CodecOpDecode,
			Result:   "NOTIFY",
			Values: map[string]any{
				"inputs": map[string]any{"3": true},
			},
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Codec == nil {
		t.Fatal("Codec is nil")
	}
	if decoded.Codec.Function != "muteControl" || decoded.Codec.Op != CodecOpDecode || decoded.Codec.Result != "NOTIFY" {
		t.Errorf("Codec = %+v", decoded.Codec)
	}
	inputs, ok := decoded.Codec.Values["inputs"].(map[string]any)
	if !ok {
		t.Fatalf("Values[inputs] has type %T, want map[string]any", decoded.Codec.Values["inputs"])
	}
	if inputs["3"] != true {
		t.Errorf("inputs[3] = %v, want true", inputs["3"])
	}
}

func TestStateChangeEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		Layer:     LayerSession,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityConnection,
			OldState: "CONNECTED",
			NewState: "AWAITING_RECONNECT",
			Reason:   "pong timeout",
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.StateChange == nil {
		t.Fatal("StateChange is nil")
	}
	if *decoded.StateChange != *original.StateChange {
		t.Errorf("StateChange = %+v, want %+v", decoded.StateChange, original.StateChange)
	}
}

func TestControlAndErrorEventCBORRoundTrip(t *testing.T) {
	events := []Event{
		{Category: CategoryControl, Control: &ControlEvent{Type: ControlPongTimeout, Missed: 1}},
		{Category: CategoryError, Error: &ErrorEventData{Layer: LayerTransport, Message: "connection refused", Severity: "transient", Context: "dial"}},
	}

	for _, original := range events {
		data, err := EncodeEvent(original)
		if err != nil {
			t.Fatalf("EncodeEvent failed: %v", err)
		}
		decoded, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("DecodeEvent failed: %v", err)
		}
		if original.Control != nil && (decoded.Control == nil || *decoded.Control != *original.Control) {
			t.Errorf("Control = %+v, want %+v", decoded.Control, original.Control)
		}
		if original.Error != nil && (decoded.Error == nil || *decoded.Error != *original.Error) {
			t.Errorf("Error = %+v, want %+v", decoded.Error, original.Error)
		}
	}
}

func TestEventCBORUsesIntegerKeys(t *testing.T) {
	data, err := EncodeEvent(Event{ConnectionID: "c", Console: "ahm16"})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	var raw map[any]any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for k := range raw {
		if _, ok := k.(uint64); !ok {
			t.Errorf("key %v has type %T, want uint64", k, k)
		}
	}
}

func TestReadAll(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, l := range []Layer{LayerTransport, LayerCodec, LayerTransport} {
		if err := enc.Encode(Event{Layer: l}); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	transport := LayerTransport
	events, err := ReadAll(&buf, Filter{Layer: &transport})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}
