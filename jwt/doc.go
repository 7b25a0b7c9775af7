// Package jwt inspects access tokens held by the client so it can refresh them
// shortly before they expire instead of waiting for a 401.
//
// The client never holds the server's signing keys: claims are read without signature
// verification and are used only for scheduling. Authorization decisions stay on the
// server.
package jwt
