package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxRefreshResponseBytes = 64 << 10

// HTTPRefresher posts the refresh token as JSON to a refresh endpoint:
//
//	POST <URL>  {"refresh_token": "..."}
//	200        {"access_token": "...", "refresh_token": "..."}
//
// camelCase field names (accessToken, refreshToken) are accepted as well. When the
// response carries no refresh token the endpoint does not rotate, and the token that
// was sent is returned again.
type HTTPRefresher struct {
	url    string
	client *http.Client
	header http.Header
}

// NewHTTPRefresher creates an [HTTPRefresher]. client may be nil to use
// http.DefaultClient. It must not be the coordinated client itself.
func NewHTTPRefresher(url string, client *http.Client) *HTTPRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRefresher{
		url:    url,
		client: client,
		header: make(http.Header),
	}
}

// WithHeader adds a static header (API key, app version) to every refresh call.
func (r *HTTPRefresher) WithHeader(key, value string) *HTTPRefresher {
	r.header.Add(key, value)
	return r
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken       string `json:"access_token"`
	RefreshToken      string `json:"refresh_token"`
	AccessTokenCamel  string `json:"accessToken"`
	RefreshTokenCamel string `json:"refreshToken"`
}

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Pair{}, ErrEmptyToken
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return Pair{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return Pair{}, fmt.Errorf("create refresh request: %w", err)
	}
	for k, values := range r.header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRefreshResponseBytes))
	if err != nil {
		return Pair{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return Pair{}, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	default:
		return Pair{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out refreshResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	pair := Pair{
		AccessToken:  firstNonEmpty(out.AccessToken, out.AccessTokenCamel),
		RefreshToken: firstNonEmpty(out.RefreshToken, out.RefreshTokenCamel),
	}
	if pair.AccessToken == "" {
		return Pair{}, fmt.Errorf("%w: missing access token", ErrMalformed)
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
