// Package log provides protocol capture for console links.
//
// This package defines the Logger interface and Event types for capturing
// what happens on a link at three layers: raw MIDI bytes on the socket
// (transport), commands and updates handled by feature codecs (codec), and
// session lifecycle (session). It is separate from operational logging
// (slog): a capture is a complete machine-readable trace for debugging a
// console installation.
//
// # Basic Usage
//
//	// During development: print events through slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// In the field: write a capture file
//	logger, _ := log.NewFileLogger("/var/log/console-link/foyer.clog")
//
//	// Both
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fileLogger)
//
// # File Format
//
// Capture files are a sequence of CBOR-encoded events with integer keys.
// The console-log tool views and summarizes them.
package log
