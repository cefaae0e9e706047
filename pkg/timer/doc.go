// Package timer implements named one-shot timers for an event loop.
//
// # Replacement
//
// Scheduling a name that already has a pending timer stops and replaces it.
// There is never more than one pending timer per name.
//
// # Generations
//
// Every scheduled timer gets a fresh generation number. Expiries are handed
// to the owner's callback as an Expiry value, which is usually posted to an
// event loop. The loop calls Claim before acting: a timer that was cancelled
// or replaced after its goroutine already fired has a stale generation and
// Claim reports false.
//
// # Cancellation
//
// CancelAll stops every timer the manager owns, e.g. on disconnect.
package timer
