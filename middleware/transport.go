package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrEthical07/authclient"
)

// Doer is the part of authclient.Client used by [Transport].
type Doer interface {
	Do(ctx context.Context, req authclient.Request) (*authclient.Response, error)
}

// Transport is an http.RoundTripper backed by an authclient.Client.
//
// Responses the client classifies as client or server errors (and anonymous 401s)
// are returned as ordinary *http.Response values so callers keep their status
// handling. Network and session failures are returned as errors and match the
// authclient sentinels.
type Transport struct {
	doer           Doer
	maxRequestBody int64
}

// DefaultMaxRequestBody bounds the buffered request body.
const DefaultMaxRequestBody = 10 << 20

// NewTransport returns a Transport for doer.
func NewTransport(doer Doer) *Transport {
	return &Transport{
		doer:           doer,
		maxRequestBody: DefaultMaxRequestBody,
	}
}

// WithMaxRequestBody sets the largest request body the transport will buffer.
func (t *Transport) WithMaxRequestBody(n int64) *Transport {
	if n > 0 {
		t.maxRequestBody = n
	}
	return t
}

var errBodyTooLarge = errors.New("request body too large to buffer for replay")

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	if t == nil || t.doer == nil {
		return nil, authclient.ErrClientClosed
	}

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(io.LimitReader(r.Body, t.maxRequestBody+1))
		_ = r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		if int64(len(data)) > t.maxRequestBody {
			return nil, errBodyTooLarge
		}
		body = data
	}

	resp, err := t.doer.Do(r.Context(), authclient.Request{
		Method: r.Method,
		URL:    r.URL.String(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	if err != nil {
		var ce *authclient.ClassifiedError
		if errors.As(err, &ce) && ce.StatusCode != 0 {
			return newResponse(r, ce.StatusCode, nil, ce.Body), nil
		}
		return nil, err
	}
	return newResponse(r, resp.StatusCode, resp.Header, resp.Body), nil
}

func newResponse(r *http.Request, status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}
}
