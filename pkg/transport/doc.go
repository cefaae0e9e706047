// Package transport provides the TCP link to a console.
//
// The console speaks raw MIDI over TCP: there is no framing, no TLS and no
// handshake at this layer. A Conn is a byte pipe with a write deadline, a
// read loop and optional capture of every read and write.
//
// # Errors
//
// Socket errors are classified so the session knows how to react:
//
//	fatal      address in use          -> stop, no reconnect
//	benign     connection reset, local close -> ignore
//	transient  everything else         -> reconnect after the fixed delay
//
// # Keep-alive
//
// The console has no ping message. A keep-alive probe is any request that
// provokes a reply, and any inbound bytes after a probe count as its pong.
// KeepAlive only counts; the session schedules the probes.
package transport
