package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/consolelink/consolelink-go/pkg/log"
)

func TestStatsCountsByLayer(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerTransport, Category: log.CategoryMessage},
		{Timestamp: ts, Layer: log.LayerTransport, Category: log.CategoryMessage},
		{Timestamp: ts, Layer: log.LayerCodec, Category: log.CategoryMessage},
		{Timestamp: ts, Layer: log.LayerSession, Category: log.CategoryState},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "TRANSPORT:   2") {
		t.Errorf("expected 2 TRANSPORT events, got: %s", output)
	}
	if !strings.Contains(output, "CODEC:") {
		t.Error("expected CODEC layer in output")
	}
	if !strings.Contains(output, "SESSION:") {
		t.Error("expected SESSION layer in output")
	}
}

func TestStatsCountsByCategory(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryMessage},
		{Timestamp: ts, Category: log.CategoryControl},
		{Timestamp: ts, Category: log.CategoryState},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "test"}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{"MESSAGE:", "CONTROL:", "STATE:", "ERROR:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output", want)
		}
	}
}

func TestStatsCountsConnections(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-aaa-1111", Console: "ahm16", RemoteAddr: "10.0.0.5:51325"},
		{Timestamp: ts.Add(time.Second), ConnectionID: "conn-aaa-1111"},
		{Timestamp: ts.Add(2 * time.Second), ConnectionID: "conn-bbb-2222"},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Connections: 2") {
		t.Errorf("expected 2 connections, got: %s", output)
	}
	if !strings.Contains(output, "[conn-aaa] 2 events, duration 1s") {
		t.Errorf("expected first connection summary, got: %s", output)
	}
	if !strings.Contains(output, "Console: ahm16 10.0.0.5:51325") {
		t.Errorf("expected console info, got: %s", output)
	}
	// Sorted by first seen.
	if strings.Index(output, "conn-aaa") > strings.Index(output, "conn-bbb") {
		t.Errorf("expected connections in order of appearance, got: %s", output)
	}
}

func TestStatsFunctionsBytesAndKeepalive(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "c1", Direction: log.DirectionOut, Layer: log.LayerTransport,
			Frame: log.NewFrameEvent([]byte{0xB0, 0x00, 0x00, 0xC0, 0x0B})},
		{Timestamp: ts, ConnectionID: "c1", Direction: log.DirectionIn, Layer: log.LayerTransport,
			Frame: log.NewFrameEvent([]byte{0x90, 0x00, 0x7F})},
		{Timestamp: ts, ConnectionID: "c1", Layer: log.LayerCodec,
			Codec: &log.CodecEvent{Function: "sceneRecall", Result: "BYTES"}},
		{Timestamp: ts, ConnectionID: "c1", Layer: log.LayerCodec,
			Codec: &log.CodecEvent{Function: "sceneRecall", Result: "CHANGED"}},
		{Timestamp: ts, ConnectionID: "c1", Layer: log.LayerCodec,
			Codec: &log.CodecEvent{Function: "muteControl", Result: "CHANGED"}},
		{Timestamp: ts, ConnectionID: "c1", Category: log.CategoryControl,
			Control: &log.ControlEvent{Type: log.ControlPing}},
		{Timestamp: ts, ConnectionID: "c1", Category: log.CategoryControl,
			Control: &log.ControlEvent{Type: log.ControlPong}},
		{Timestamp: ts, ConnectionID: "c1", Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityConnection, NewState: "CONNECTED"}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"OUT:", "(5 bytes)", "(3 bytes)",
		"sceneRecall:", "muteControl:",
		"Keepalive: 1 pings, 1 pongs",
		"Last state: CONNECTED",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output: %s", want, output)
		}
	}
}

func TestStatsTotalEvents(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := make([]log.Event, 10)
	for i := range events {
		events[i] = log.Event{Timestamp: ts.Add(time.Duration(i) * time.Second)}
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Total Events: 10") {
		t.Errorf("expected 10 total events, got: %s", buf.String())
	}
}

func TestStatsTimeRange(t *testing.T) {
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: start},
		{Timestamp: start.Add(90 * time.Second)},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "2026-01-28T10:00:00Z to 2026-01-28T10:01:30Z") {
		t.Errorf("expected time range, got: %s", output)
	}
	if !strings.Contains(output, "Duration:   1m30s") {
		t.Errorf("expected duration, got: %s", output)
	}
}

func TestStatsErrorCount(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "refused", Severity: "transient"}},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "reset", Severity: "transient"}},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "in use", Severity: "fatal"}},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "other"}},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{"Errors: 4", "transient:   2", "fatal:       1", "unclassified: 1"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output: %s", want, output)
		}
	}
}
