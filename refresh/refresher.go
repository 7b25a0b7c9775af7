package refresh

import (
	"context"
	"errors"
)

var (
	// ErrRejected means the endpoint refused the refresh token (revoked, expired, reused).
	ErrRejected = errors.New("refresh token rejected")
	// ErrUnavailable means the endpoint could not be reached or failed server-side.
	ErrUnavailable = errors.New("refresh endpoint unavailable")
	// ErrMalformed means the endpoint answered without a usable access token.
	ErrMalformed = errors.New("malformed refresh response")
	// ErrEmptyToken is returned when asked to refresh without a refresh token.
	ErrEmptyToken = errors.New("empty refresh token")
)

// Pair is the credential pair returned by a successful refresh.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Refresher exchanges a refresh token for a new [Pair].
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Pair, error)
}

// Func adapts a function to the [Refresher] interface.
type Func func(ctx context.Context, refreshToken string) (Pair, error)

// Refresh calls f.
func (f Func) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	return f(ctx, refreshToken)
}
