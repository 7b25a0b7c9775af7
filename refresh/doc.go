// Package refresh exchanges a refresh token for a new token pair at the remote
// refresh endpoint.
//
// # Contract
//
// A [Refresher] performs exactly one network exchange per call and never retries on
// its own. Single-flight coordination, session persistence, and teardown on failure
// are the caller's responsibility.
//
// # What this package must NOT do
//
//   - Import authclient or session.
//   - Cache or persist tokens.
//   - Retry a failed exchange.
package refresh
