// Package connection tracks the lifecycle of a console link.
//
// The Manager holds the connection state and the reconnect policy. It does
// not own a socket or a goroutine: the session event loop reports what
// happened and the Manager decides whether that is a state change and
// whether a reconnect must be scheduled.
//
// # States
//
//	DISCONNECTED -> CONNECTING -> CONNECTED
//	      ^             |             |
//	      |             v             v
//	      +------ AWAITING_RECONNECT <+
//
// CLOSED is terminal. Transitions are edge-triggered: entering the state the
// link is already in is ignored and produces no callback.
//
// # Reconnection Strategy
//
// Reconnects use a fixed delay (15 seconds by default) and repeat forever.
// While one reconnect is pending no second one is armed, so a burst of loss
// signals results in a single attempt.
package connection
