package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/consolelink/consolelink-go/pkg/log"
)

// record is the export shape of one event: enum fields as names, frame data
// as hex.
type record struct {
	Timestamp    string         `json:"timestamp" yaml:"timestamp"`
	ConnectionID string         `json:"connectionId,omitempty" yaml:"connectionId,omitempty"`
	Direction    string         `json:"direction" yaml:"direction"`
	Layer        string         `json:"layer" yaml:"layer"`
	Category     string         `json:"category" yaml:"category"`
	RemoteAddr   string         `json:"remoteAddr,omitempty" yaml:"remoteAddr,omitempty"`
	Console      string         `json:"console,omitempty" yaml:"console,omitempty"`
	Type         string         `json:"type" yaml:"type"`
	Size         int            `json:"size,omitempty" yaml:"size,omitempty"`
	Data         string         `json:"data,omitempty" yaml:"data,omitempty"`
	Function     string         `json:"function,omitempty" yaml:"function,omitempty"`
	Result       string         `json:"result,omitempty" yaml:"result,omitempty"`
	Reason       string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Values       map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
	Entity       string         `json:"entity,omitempty" yaml:"entity,omitempty"`
	OldState     string         `json:"oldState,omitempty" yaml:"oldState,omitempty"`
	NewState     string         `json:"newState,omitempty" yaml:"newState,omitempty"`
	Message      string         `json:"message,omitempty" yaml:"message,omitempty"`
	Severity     string         `json:"severity,omitempty" yaml:"severity,omitempty"`
}

func toRecord(event log.Event) record {
	r := record{
		Timestamp:    event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		ConnectionID: event.ConnectionID,
		Direction:    event.Direction.String(),
		Layer:        event.Layer.String(),
		Category:     event.Category.String(),
		RemoteAddr:   event.RemoteAddr,
		Console:      event.Console,
		Type:         "unknown",
	}

	switch {
	case event.Frame != nil:
		r.Type = "frame"
		r.Size = event.Frame.Size
		r.Data = hex.EncodeToString(event.Frame.Data)
	case event.Codec != nil:
		r.Type = "codec"
		r.Function = event.Codec.Function
		r.Result = event.Codec.Result
		r.Reason = event.Codec.Reason
		r.Values = event.Codec.Values
	case event.StateChange != nil:
		r.Type = "state"
		r.Entity = event.StateChange.Entity.String()
		r.OldState = event.StateChange.OldState
		r.NewState = event.StateChange.NewState
		r.Reason = event.StateChange.Reason
	case event.Control != nil:
		r.Type = event.Control.Type.String()
	case event.Error != nil:
		r.Type = "error"
		r.Message = event.Error.Message
		r.Severity = event.Error.Severity
	}
	return r
}

// RunExport exports the capture file to the specified format. An empty
// output writes to stdout.
func RunExport(path, format, output string) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return Export(path, format, w)
}

// Export writes the capture file to w in the specified format.
func Export(path, format string, w io.Writer) error {
	var write func(*log.Reader, io.Writer) error
	switch format {
	case "jsonl":
		write = exportJSONL
	case "csv":
		write = exportCSV
	case "yaml":
		write = exportYAML
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv, yaml)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	return write(reader, w)
}

func eachEvent(reader *log.Reader, fn func(log.Event) error) error {
	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
	return nil
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	return eachEvent(reader, func(event log.Event) error {
		if err := encoder.Encode(toRecord(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
}

// exportYAML writes one YAML document per event.
func exportYAML(reader *log.Reader, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	err := eachEvent(reader, func(event log.Event) error {
		if err := encoder.Encode(toRecord(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return encoder.Close()
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "connection_id", "direction", "layer", "category", "type", "function", "size", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return eachEvent(reader, func(event log.Event) error {
		r := toRecord(event)

		size := ""
		if event.Frame != nil {
			size = strconv.Itoa(r.Size)
		}
		detail := r.Data
		switch {
		case event.Codec != nil:
			detail = r.Result
		case event.StateChange != nil:
			detail = r.NewState
		case event.Error != nil:
			detail = r.Message
		}

		row := []string{
			r.Timestamp,
			r.ConnectionID,
			r.Direction,
			r.Layer,
			r.Category,
			r.Type,
			r.Function,
			size,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
}
