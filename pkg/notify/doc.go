// Package notify delivers session notifications to host callbacks.
//
// A session reports on three channels: error (validation failures, socket
// errors), success (connecting, connected, sent) and message (state
// updates, the settle snapshot, connection events). The Dispatcher queues
// notifications without blocking the caller and delivers them in order on
// its own goroutine, so callbacks may call back into the session. A
// panicking callback is recovered and logged; the remaining callbacks still
// run.
package notify
