// Package notify implements async delivery of user-facing notifications (error toasts
// and session-ended events) to a caller-supplied sink.
//
// # Components
//
//   - [Sink] — interface for notification consumers (channel, JSON writer, func, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics,
//     coalescing of repeated server and network errors, and a reserved slot for
//     session-ended events.
//   - [Notification] — structured record with kind, message, request identity, status.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which
// notifications to emit; the client's classifier and teardown do.
//
// # What this package must NOT do
//
//   - Rewrite notifications. Filtering is limited to coalescing repeats.
//   - Import authclient or any sibling internal package.
//   - Render UI.
package notify
