package authclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
	headerUserAgent     = "User-Agent"
)

// dispatch sends one attempt of pending with accessToken as the bearer credential.
// It does not interpret the status code. A caller-supplied Authorization header is
// always replaced, or removed when accessToken is empty.
func (c *Client) dispatch(ctx context.Context, pending PendingRequest, accessToken string) (*Response, error) {
	req := pending.Original

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(http.Header)
	}
	httpReq.Header.Del(headerAuthorization)
	if accessToken != "" {
		httpReq.Header.Set(headerAuthorization, "Bearer "+accessToken)
	}
	requestID := pending.requestID()
	httpReq.Header.Set(headerRequestID, requestID)
	if httpReq.Header.Get(headerUserAgent) == "" && c.cfg.HTTP.UserAgent != "" {
		httpReq.Header.Set(headerUserAgent, c.cfg.HTTP.UserAgent)
	}

	start := time.Now()
	defer func() {
		c.metrics.Observe(MetricRequestLatency, time.Since(start))
	}()

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	limit := c.cfg.HTTP.MaxResponseBytes
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		if httpResp.StatusCode < http.StatusBadRequest {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, limit)
		}
		// Error bodies are only used for messages; keep the prefix.
		data = data[:limit]
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}
