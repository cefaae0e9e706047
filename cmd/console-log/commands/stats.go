package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/consolelink/consolelink-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	EventsByFunction  map[string]int
	BytesByDirection  map[log.Direction]int
	Connections       map[string]*ConnectionStats
	Errors            int
	ErrorsBySeverity  map[string]int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection attempt.
type ConnectionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	RemoteAddr string
	Console    string
	Pings      int
	Pongs      int
	LastState  string
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		EventsByFunction:  make(map[string]int),
		BytesByDirection:  make(map[log.Direction]int),
		Connections:       make(map[string]*ConnectionStats),
		ErrorsBySeverity:  make(map[string]int),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	conn, ok := s.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if event.RemoteAddr != "" && conn.RemoteAddr == "" {
		conn.RemoteAddr = event.RemoteAddr
	}
	if event.Console != "" && conn.Console == "" {
		conn.Console = event.Console
	}

	switch {
	case event.Frame != nil:
		s.BytesByDirection[event.Direction] += event.Frame.Size
	case event.Codec != nil:
		s.EventsByFunction[event.Codec.Function]++
	case event.Control != nil:
		switch event.Control.Type {
		case log.ControlPing:
			conn.Pings++
		case log.ControlPong:
			conn.Pongs++
		}
	case event.StateChange != nil:
		if event.StateChange.Entity == log.StateEntityConnection {
			conn.LastState = event.StateChange.NewState
		}
	case event.Error != nil:
		s.Errors++
		sev := event.Error.Severity
		if sev == "" {
			sev = "unclassified"
		}
		s.ErrorsBySeverity[sev]++
	}
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Console Link Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerCodec, log.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d (%d bytes)\n", dir.String()+":", count, stats.BytesByDirection[dir])
		}
	}
	fmt.Fprintln(w)

	if len(stats.EventsByFunction) > 0 {
		fmt.Fprintln(w, "Codec Events by Function:")
		names := make([]string, 0, len(stats.EventsByFunction))
		for name := range stats.EventsByFunction {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-22s %d\n", name+":", stats.EventsByFunction[name])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			shortID := shortenConnID(c.id)
			if shortID == "" {
				shortID = "-"
			}
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortID, c.stats.Events, duration)
			if c.stats.Console != "" || c.stats.RemoteAddr != "" {
				fmt.Fprintf(w, "           Console: %s %s\n", c.stats.Console, c.stats.RemoteAddr)
			}
			if c.stats.Pings > 0 {
				fmt.Fprintf(w, "           Keepalive: %d pings, %d pongs\n", c.stats.Pings, c.stats.Pongs)
			}
			if c.stats.LastState != "" {
				fmt.Fprintf(w, "           Last state: %s\n", c.stats.LastState)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
		sevs := make([]string, 0, len(stats.ErrorsBySeverity))
		for sev := range stats.ErrorsBySeverity {
			sevs = append(sevs, sev)
		}
		sort.Strings(sevs)
		for _, sev := range sevs {
			fmt.Fprintf(w, "  %-12s %d\n", sev+":", stats.ErrorsBySeverity[sev])
		}
	}
}
