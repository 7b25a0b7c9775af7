// Package session holds the client-side authentication context and the stores that
// persist it between process restarts.
//
// # Model
//
// A [Session] carries the access token, the refresh token, and a derived [Status].
// The only valid authenticated value is one with a non-empty access token; the cleared
// value is [Anonymous].
//
// # Stores
//
//   - [MemoryStore] — process-local, default for tests and short-lived tools.
//   - [RedisStore] — shared by several processes of the same installation.
//   - [SQLiteStore] — on-device persistent key-value table.
//
// Persistent stores write the compact binary encoding produced by [Encode], optionally
// sealed with a [Sealer] so tokens never rest in plaintext.
//
// # Architecture boundaries
//
// This package owns persistence and encoding only. It does NOT decide when a session is
// refreshed or torn down; that belongs to the client's refresh coordinator.
//
// # What this package must NOT do
//
//   - Import authclient, refresh, or jwt (no upward imports).
//   - Perform network calls other than the ones a Redis client makes.
//   - Log token material.
package session
