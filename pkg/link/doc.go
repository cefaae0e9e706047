// Package link runs the console link engine: one Session per console.
//
// A Session owns the transport connection, the receive buffer, the sync
// handshake, the keepalive and every timer. All of that state lives on a
// single event-loop goroutine. Socket reads, dial results, timer expiries
// and control calls (Connect, Disconnect, Restart, SendCommand) are posted
// to the loop as events, so control calls return immediately and never
// wait for the network.
//
// # Connection Lifecycle
//
//	DISCONNECTED --Connect--> CONNECTING --greeting ok--> CONNECTED
//	      ^                       |                           |
//	      |                  dial failed              link lost / keepalive
//	      |                       v                           |
//	      +--Disconnect--- AWAITING_RECONNECT <---------------+
//	                              |
//	                       reconnect delay
//	                              v
//	                          CONNECTING
//
// Only state changes produce notifications. A fatal socket error (address
// in use) ends in DISCONNECTED without a reconnect. A connection reset is
// ignored; a dead link is then found by the keepalive.
//
// # Inbound Path
//
// Bytes read from the socket are appended to the receive buffer, which is
// decoded in one pass once the console has been quiet for the debounce
// period. While the handshake runs, decoded updates refresh the caches
// silently; afterwards each update is delivered on the message channel.
//
// # Notifications
//
// Notifications are delivered in order on a separate goroutine, so
// callbacks may call back into the Session. Close must not be called from
// a callback.
package link
