package commands

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/consolelink/consolelink-go/pkg/log"
)

func readAllEvents(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}
	return events
}

func TestFilterByConnectionID(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-1"},
		{Timestamp: ts, ConnectionID: "conn-2"},
		{Timestamp: ts, ConnectionID: "conn-1"},
	}

	path := createTestLogFile(t, events)
	output := filepath.Join(t.TempDir(), "filtered.cbor")

	var buf bytes.Buffer
	if err := RunFilter(path, FilterOptions{Output: output, ConnID: "conn-1"}, &buf); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readAllEvents(t, output)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	for _, e := range got {
		if e.ConnectionID != "conn-1" {
			t.Errorf("unexpected connection %s", e.ConnectionID)
		}
	}
	if !strings.Contains(buf.String(), "Filtered 2 of 3 events to") {
		t.Errorf("unexpected summary: %s", buf.String())
	}
}

func TestFilterByTimeRange(t *testing.T) {
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base},
		{Timestamp: base.Add(time.Minute)},
		{Timestamp: base.Add(2 * time.Minute)},
		{Timestamp: base.Add(3 * time.Minute)},
	}

	path := createTestLogFile(t, events)
	output := filepath.Join(t.TempDir(), "filtered.cbor")

	opts := FilterOptions{
		Output:    output,
		TimeStart: base.Add(time.Minute).Format(time.RFC3339),
		TimeEnd:   base.Add(3 * time.Minute).Format(time.RFC3339),
	}
	if err := RunFilter(path, opts, io.Discard); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readAllEvents(t, output)
	if len(got) != 2 {
		t.Fatalf("expected 2 events in [start, end), got %d", len(got))
	}
	if !got[0].Timestamp.Equal(base.Add(time.Minute)) {
		t.Errorf("unexpected first event at %s", got[0].Timestamp)
	}
}

func TestFilterCommandByLayerAndFunction(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerTransport, Frame: log.NewFrameEvent([]byte{0x90, 0x00, 0x7F})},
		{Timestamp: ts, Layer: log.LayerCodec, Codec: &log.CodecEvent{Function: "muteControl"}},
		{Timestamp: ts, Layer: log.LayerCodec, Codec: &log.CodecEvent{Function: "sceneRecall"}},
	}

	path := createTestLogFile(t, events)
	output := filepath.Join(t.TempDir(), "filtered.cbor")

	opts := FilterOptions{Output: output, Layer: "codec", Function: "muteControl"}
	if err := RunFilter(path, opts, io.Discard); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readAllEvents(t, output)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Codec == nil || got[0].Codec.Function != "muteControl" {
		t.Errorf("unexpected event %+v", got[0])
	}
}

func TestFilterRejectsBadOptions(t *testing.T) {
	path := createTestLogFile(t, []log.Event{{Timestamp: time.Now()}})
	output := filepath.Join(t.TempDir(), "filtered.cbor")

	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"bad layer", FilterOptions{Output: output, Layer: "wire"}},
		{"bad direction", FilterOptions{Output: output, Direction: "up"}},
		{"bad category", FilterOptions{Output: output, Category: "snapshot"}},
		{"bad start", FilterOptions{Output: output, TimeStart: "yesterday"}},
		{"bad end", FilterOptions{Output: output, TimeEnd: "tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := RunFilter(path, tt.opts, io.Discard); err == nil {
				t.Error("expected error")
			}
		})
	}
}
