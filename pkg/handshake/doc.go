// Package handshake reconciles a session's codec caches with the console
// after a connection is established.
//
// # Sync Protocol
//
// On connect the coordinator asks every codec for its initial state and
// starts a quiet-period timer (default 3 s). Every inbound chunk restarts
// the timer. Each time the console stays quiet for the full period one
// feature is popped from the work-list and queried again. When the list is
// empty the coordinator settles and the session publishes one aggregated
// snapshot of all caches.
//
// State machine:
//
//	IDLE --Begin--> HANDSHAKING --Tick (list empty)--> SETTLED
//	  ^                  |                                |
//	  +------Reset-------+--------------Reset-------------+
//
// While HANDSHAKING decoded updates are applied to the caches silently.
// After SETTLED each update is announced on its own.
package handshake
