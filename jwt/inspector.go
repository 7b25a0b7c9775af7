package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNotJWT is returned when the access token is not a parseable JWT (opaque tokens).
	ErrNotJWT = errors.New("access token is not a jwt")
	// ErrNoExpiry is returned when the token carries no exp claim.
	ErrNoExpiry = errors.New("access token has no expiry")
)

// Inspector reads expiry information from access tokens.
//
// Inspector instances are immutable and safe for concurrent use.
type Inspector struct {
	parser *jwt.Parser
	leeway time.Duration
}

// NewInspector creates an [Inspector]. leeway is subtracted from every expiry to
// absorb clock skew between device and server.
func NewInspector(leeway time.Duration) *Inspector {
	if leeway < 0 {
		leeway = 0
	}
	return &Inspector{
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
		leeway: leeway,
	}
}

// Expiry returns the effective expiry of token (exp minus leeway).
func (i *Inspector) Expiry(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return time.Time{}, ErrNotJWT
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := i.parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, ErrNotJWT
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time.Add(-i.leeway), nil
}

// ExpiresWithin reports whether token expires within window of now. Tokens whose
// expiry cannot be read are reported as not expiring; the server's 401 remains the
// authority for them.
func (i *Inspector) ExpiresWithin(token string, now time.Time, window time.Duration) bool {
	if i == nil || window <= 0 || token == "" {
		return false
	}
	exp, err := i.Expiry(token)
	if err != nil {
		return false
	}
	return !now.Add(window).Before(exp)
}
