// Package flight implements the single-flight refresh state machine shared by every
// request of one client.
//
// # Components
//
//   - [Coordinator] — Idle/Refreshing state plus the ordered queue of waiters.
//   - [Waiter] — one-shot continuation of a caller waiting for a new access token.
//   - [Outcome] — what every waiter of one refresh cycle receives.
//
// # Architecture boundaries
//
// This package decides who performs a refresh and releases waiters; it never performs
// the refresh, touches the session store, or replays requests. The mutex is held only
// around state transitions, never across the refresh network call.
//
// # What this package must NOT do
//
//   - Import authclient, session, or refresh.
//   - Block while holding the coordinator lock.
package flight
