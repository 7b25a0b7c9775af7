package authclient

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Request describes an outgoing call. It is copied on entry to [Client.Do]; the
// caller's value is never modified.
type Request struct {
	Method string
	// URL is absolute, or relative to HTTPConfig.BaseURL.
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a completed call that classified as success.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// RequestID is the X-Request-ID sent with the final attempt.
	RequestID string
	// Replayed is true when the response came from a replay after a refresh.
	Replayed bool
}

// PendingRequest is a caller parked in the refresh queue. Values are immutable;
// withRetried returns a modified copy.
type PendingRequest struct {
	ID       string
	Original Request
	Retried  bool
}

func newPendingRequest(req Request) PendingRequest {
	return PendingRequest{
		ID:       uuid.NewString(),
		Original: req,
	}
}

func (p PendingRequest) withRetried() PendingRequest {
	p.Retried = true
	return p
}

// requestID is the X-Request-ID sent on every attempt: the caller's own header when
// present, the pending ID otherwise.
func (p PendingRequest) requestID() string {
	if id := p.Original.Header.Get(headerRequestID); id != "" {
		return id
	}
	return p.ID
}

func (r Request) clone() Request {
	out := Request{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header.Clone(),
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// normalize returns a validated copy of r with Method defaulted and URL resolved
// against base.
func (r Request) normalize(base *url.URL) (Request, error) {
	out := r.clone()

	out.Method = strings.ToUpper(strings.TrimSpace(out.Method))
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	if strings.ContainsAny(out.Method, " \t\r\n") {
		return Request{}, ErrInvalidRequest
	}

	if strings.TrimSpace(out.URL) == "" {
		return Request{}, ErrInvalidRequest
	}
	u, err := url.Parse(out.URL)
	if err != nil {
		return Request{}, ErrInvalidRequest
	}
	if !u.IsAbs() {
		if base == nil {
			return Request{}, ErrInvalidRequest
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Request{}, ErrInvalidRequest
	}
	out.URL = u.String()

	if out.Header == nil {
		out.Header = make(http.Header)
	}
	return out, nil
}
