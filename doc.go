// Package authclient provides an authenticated HTTP client that attaches bearer
// credentials to outgoing requests and refreshes the session at most once under
// concurrent authentication failures.
//
// Client methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Request lifecycle
//
// [Client.Do] dispatches a [Request] with the current access token and classifies the
// outcome. A 401 on a request that has not been replayed yet parks the caller in the
// refresh queue. The first parked caller starts exactly one refresh call; the others
// wait for its outcome. On success the new session is persisted before any queued
// request is replayed, in enqueue order, with the new token. On failure the session
// is torn down and every queued caller receives [ErrSessionExpired].
//
// A replayed request that is rejected again is terminal: it is surfaced as
// [ErrSessionExpired] wrapping [ErrDoubleAuthFailure] and never re-enters the queue.
//
// Client, server and network errors are returned to the caller as a
// [*ClassifiedError] and reported to the notification sink. They never touch the
// refresh queue.
//
// # Architecture boundaries
//
// authclient is the public surface. Queue coordination (internal/flight) and
// notification buffering (internal/notify) are never exported. Session persistence
// lives in the session package, refresh exchange in the refresh package.
//
// # What this package must NOT do
//
//   - Render UI or navigate. Session teardown is observable through
//     [Client.Session] and a [KindSessionEnded] notification only.
//   - Interpret business payloads.
//   - Hold the coordinator lock across a network call.
package authclient
