package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/consolelink/consolelink-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output    string
	ConnID    string
	Function  string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

func (opts FilterOptions) filter() (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: opts.ConnID,
		Function:     opts.Function,
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if opts.Layer != "" {
		l, err := ParseLayerFlag(opts.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}

	if opts.Direction != "" {
		d, err := ParseDirectionFlag(opts.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}

	if opts.Category != "" {
		c, err := ParseCategoryFlag(opts.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	return filter, nil
}

// RunFilter filters the capture file and writes matching events to a new
// capture file. A summary line goes to w.
func RunFilter(path string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output capture: %w", err)
	}
	defer logger.Close()

	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
	}
	if err := logger.Err(); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	fmt.Fprintf(w, "Filtered %d of %d events to %s\n", logger.Count(), reader.Scanned(), opts.Output)
	return nil
}
