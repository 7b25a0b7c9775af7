package authclient

import (
	"context"
	"fmt"
)

// replay re-dispatches a parked request with the token produced by the refresh
// cycle. The request is marked retried, so a second 401 is terminal.
func (c *Client) replay(ctx context.Context, pending PendingRequest, accessToken string) (*Response, error) {
	c.metrics.Inc(MetricReplay)
	resp, err := c.attempt(ctx, pending.withRetried(), accessToken)
	if resp != nil {
		resp.Replayed = true
	}
	return resp, err
}

// doubleAuthFailure handles a 401 on a replayed request. It never re-enters the
// queue. With RefreshConfig.TeardownOnDoubleFailure the session holding token is torn
// down; a session that has moved on since is left alone.
func (c *Client) doubleAuthFailure(ctx context.Context, pending PendingRequest, token string) error {
	c.metrics.Inc(MetricDoubleAuthFailure)
	c.logger.Warn("authclient: request rejected after refresh",
		"request_id", pending.requestID(),
		"method", pending.Original.Method,
		"url", pending.Original.URL,
	)

	if c.cfg.Refresh.TeardownOnDoubleFailure {
		c.teardownToken(ctx, token, ErrDoubleAuthFailure)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, ErrDoubleAuthFailure)
}
