package session

import "time"

// Status is the derived authentication state of a [Session].
type Status uint8

const (
	// StatusAnonymous means no credentials are held.
	StatusAnonymous Status = iota
	// StatusAuthenticated means an access token is held and not known to be invalid.
	StatusAuthenticated
	// StatusExpired means the server rejected the access token and no refresh has
	// replaced it yet.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session is the current authentication context of the client.
//
// Empty strings mean the token is absent.
type Session struct {
	AccessToken  string
	RefreshToken string
	Status       Status
	UpdatedAt    int64
}

// New returns an authenticated session holding the given tokens.
func New(accessToken, refreshToken string) Session {
	return Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Status:       StatusAuthenticated,
		UpdatedAt:    time.Now().Unix(),
	}
}

// Anonymous returns the cleared session.
func Anonymous() Session {
	return Session{Status: StatusAnonymous}
}

// Valid reports whether s satisfies the status invariant: authenticated iff an
// access token is present.
func (s Session) Valid() bool {
	switch s.Status {
	case StatusAuthenticated:
		return s.AccessToken != ""
	case StatusAnonymous:
		return s.AccessToken == "" && s.RefreshToken == ""
	case StatusExpired:
		return true
	default:
		return false
	}
}

// Cleared reports whether s holds no credentials at all.
func (s Session) Cleared() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.Status == StatusAnonymous
}

// Expired returns a copy of s marked as expired. The refresh token is kept so the
// refresh coordinator can still use it.
func (s Session) Expired() Session {
	if s.Status != StatusAuthenticated {
		return s
	}
	s.Status = StatusExpired
	s.UpdatedAt = time.Now().Unix()
	return s
}
