// Package commands implements the console-log CLI commands.
package commands

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"gitlab.com/gomidi/midi/v2"

	"github.com/consolelink/consolelink-go/pkg/log"
)

var (
	inColor    = color.New(color.FgCyan)
	outColor   = color.New(color.FgGreen)
	errorColor = color.New(color.FgRed)
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
	Function  string
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{
		Layer:     f.Layer,
		Direction: f.Direction,
		Category:  f.Category,
		Function:  f.Function,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Codec != nil:
		typeLabel = event.Codec.Op.String() + " " + event.Codec.Function
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Control != nil:
		typeLabel = event.Control.Type.String()
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	layerStr := event.Layer.String()
	if event.Category == log.CategoryControl {
		layerStr = "CTRL"
	}

	dir := directionColor(event).Sprintf("%-3s", event.Direction.String())
	fmt.Fprintf(w, "%s [conn:%s] %s %s %s\n", ts, connID, dir, layerStr, typeLabel)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Codec != nil:
		formatCodecDetails(w, event.Codec)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Control != nil:
		if event.Control.Missed > 0 {
			fmt.Fprintf(w, "  Missed: %d\n", event.Control.Missed)
		}
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func directionColor(event log.Event) *color.Color {
	switch {
	case event.Category == log.CategoryError:
		return errorColor
	case event.Direction == log.DirectionOut:
		return outColor
	default:
		return inColor
	}
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatFrameDetails writes the raw bytes and the MIDI messages they hold.
func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) == 0 {
		return
	}
	fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
	if frame.Truncated {
		fmt.Fprintf(w, " (truncated)")
	}
	fmt.Fprintln(w)

	msgs, rest := splitMIDI(frame.Data)
	for _, m := range msgs {
		fmt.Fprintf(w, "  MIDI: %s\n", m.String())
	}
	if len(rest) > 0 {
		fmt.Fprintf(w, "  Partial: %s\n", hex.EncodeToString(rest))
	}
}

// splitMIDI cuts a byte stream into complete MIDI messages. Bytes that do
// not form a complete message (a read that split one) are returned as rest.
func splitMIDI(data []byte) (msgs []midi.Message, rest []byte) {
	i := 0
	for i < len(data) {
		n := midiLen(data[i:])
		if n == 0 {
			return msgs, data[i:]
		}
		msgs = append(msgs, midi.Message(data[i:i+n]))
		i += n
	}
	return msgs, nil
}

// midiLen returns the length of the message at the start of b, or 0 if b
// does not start with a complete message.
func midiLen(b []byte) int {
	status := b[0]
	var n int
	switch {
	case status < 0x80:
		return 0
	case status == 0xF0:
		for i := 1; i < len(b); i++ {
			if b[i] == 0xF7 {
				return i + 1
			}
		}
		return 0
	case status >= 0xF8:
		n = 1
	case status&0xF0 == 0xC0, status&0xF0 == 0xD0:
		n = 2
	default:
		n = 3
	}
	if len(b) < n {
		return 0
	}
	return n
}

// formatCodecDetails writes codec-specific details.
func formatCodecDetails(w io.Writer, ce *log.CodecEvent) {
	fmt.Fprintf(w, "  Result: %s\n", ce.Result)
	if ce.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", ce.Reason)
	}
	if len(ce.Values) == 0 {
		return
	}
	keys := make([]string, 0, len(ce.Values))
	for k := range ce.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data, err := json.Marshal(ce.Values[k])
		if err != nil {
			data = []byte(fmt.Sprint(ce.Values[k]))
		}
		fmt.Fprintf(w, "  %s: %s\n", k, data)
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", errorColor.Sprint(err.Message))
	if err.Severity != "" {
		fmt.Fprintf(w, "  Severity: %s\n", err.Severity)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// filterEvents returns events matching the filter criteria.
func filterEvents(events []log.Event, filter ViewFilter) []log.Event {
	lf := filter.logFilter()
	var result []log.Event
	for _, e := range events {
		if lf.Matches(e) {
			result = append(result, e)
		}
	}
	return result
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	l, ok := log.ParseLayer(s)
	if !ok {
		return 0, fmt.Errorf("invalid layer: %s (must be transport, codec, or session)", s)
	}
	return l, nil
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	d, ok := log.ParseDirection(s)
	if !ok {
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
	return d, nil
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	c, ok := log.ParseCategory(s)
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (must be message, control, state, or error)", s)
	}
	return c, nil
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.logFilter())
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
