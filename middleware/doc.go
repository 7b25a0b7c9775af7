// Package middleware adapts an authclient.Client to standard net/http plumbing.
//
// # Adapters
//
//   - [Transport] — an http.RoundTripper that routes every request through
//     authclient.Client.Do, so an ordinary *http.Client gains bearer credentials,
//     single-flight refresh and replay.
//
// # Architecture boundaries
//
// This package translates between http.Request/http.Response and the authclient
// request descriptor. It does NOT implement refresh, classification or teardown;
// all decisions are delegated to the client.
//
// # What this package must NOT do
//
//   - Read or write the session store.
//   - Retry on its own.
//   - Stream request bodies (they are buffered so a replay can resend them).
package middleware
