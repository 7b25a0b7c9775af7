package authclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authclient/internal/flight"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
)

// awaitRefresh parks pending until the shared refresh cycle completes and returns the
// access token to replay with. sentToken is the token the rejected attempt carried.
//
// When the stored session already holds a different token the rejection is stale
// (another cycle, a login, or another process sharing the store renewed it) and that
// token is returned without queueing. Otherwise the first caller becomes the leader
// and starts the cycle. Leaving early through ctx removes the caller from the queue;
// the cycle itself keeps running for the others.
func (c *Client) awaitRefresh(ctx context.Context, pending PendingRequest, sentToken string) (string, error) {
	c.sessionMu.Lock()
	sess, err := c.store.Load(ctx)
	if err == nil && renewedSince(sess, sentToken) {
		c.sessionMu.Unlock()
		c.logger.Debug("authclient: rejection predates stored session",
			"request_id", pending.requestID(),
		)
		return sess.AccessToken, nil
	}
	// Enqueue under sessionMu: a cycle stores its session under the same lock before it
	// resolves, so a caller either sees the new token above or joins that cycle.
	w, leader := c.coord.Enqueue(pending.ID)
	c.sessionMu.Unlock()

	if leader {
		c.startRefresh(ctx, sentToken)
	} else {
		c.metrics.Inc(MetricRefreshJoined)
	}

	select {
	case o := <-w.Done():
		if o.Err != nil {
			return "", o.Err
		}
		return o.AccessToken, nil
	case <-ctx.Done():
		if c.coord.Cancel(w) {
			c.metrics.Inc(MetricQueueCanceled)
		}
		c.metrics.Inc(MetricRequestCanceled)
		return "", fmt.Errorf("%w: %w", ErrRequestCanceled, ctx.Err())
	}
}

// renewedSince reports whether sess is a usable session whose token is no longer
// sentToken.
func renewedSince(sess session.Session, sentToken string) bool {
	return sess.Status == session.StatusAuthenticated && sess.AccessToken != sentToken
}

// startRefresh runs one cycle in its own goroutine. The cycle is detached from the
// leader's cancellation and bounded by RefreshConfig.Timeout.
func (c *Client) startRefresh(ctx context.Context, sentToken string) {
	c.lifecycleMu.RLock()
	if c.closed.Load() {
		c.lifecycleMu.RUnlock()
		c.coord.Resolve(flight.Outcome{Err: ErrClientClosed})
		return
	}
	c.wg.Add(1)
	c.lifecycleMu.RUnlock()

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Refresh.Timeout)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.runRefreshCycle(rctx, sentToken)
	}()
}

func (c *Client) runRefreshCycle(ctx context.Context, sentToken string) {
	c.metrics.Inc(MetricRefreshStarted)
	c.logger.Debug("authclient: refresh started")

	start := time.Now()
	token, err := c.refreshSession(ctx, sentToken)
	elapsed := time.Since(start)
	c.metrics.Observe(MetricRefreshLatency, elapsed)

	if err != nil {
		c.metrics.Inc(MetricRefreshFailure)
	} else {
		c.metrics.Inc(MetricRefreshSuccess)
	}

	released := c.coord.Resolve(flight.Outcome{AccessToken: token, Err: err})

	if err != nil {
		c.logger.Warn("authclient: refresh failed",
			"error", err,
			"released", released,
			"elapsed", elapsed,
		)
		return
	}
	c.logger.Debug("authclient: refresh succeeded",
		"released", released,
		"elapsed", elapsed,
	)
}

// refreshSession performs the single refresh exchange of a cycle. On success the new
// session is stored before it returns, so every replay observes it. Any failure tears
// the session down and returns an error matching ErrSessionExpired. A session renewed
// by another writer since the leader's rejection is used as is.
func (c *Client) refreshSession(ctx context.Context, sentToken string) (string, error) {
	c.sessionMu.Lock()
	gen := c.generation.Load()
	sess, err := c.store.Load(ctx)
	if err == nil && renewedSince(sess, sentToken) {
		c.sessionMu.Unlock()
		c.logger.Debug("authclient: session renewed elsewhere, refresh skipped")
		return sess.AccessToken, nil
	}
	if err == nil && sess.Status == session.StatusAuthenticated {
		if saveErr := c.store.Save(ctx, sess.Expired()); saveErr != nil {
			c.logger.Debug("authclient: mark session expired failed", "error", saveErr)
		}
	}
	c.sessionMu.Unlock()

	if err != nil {
		c.teardown(ctx, gen, err)
		return "", sessionExpired(err)
	}
	if sess.RefreshToken == "" {
		c.teardown(ctx, gen, ErrNoRefreshCredential)
		return "", sessionExpired(ErrNoRefreshCredential)
	}

	pair, err := c.refresher.Refresh(ctx, sess.RefreshToken)
	if err == nil && pair.AccessToken == "" {
		err = refresh.ErrMalformed
	}
	if err == nil && pair.RefreshToken == "" {
		pair.RefreshToken = sess.RefreshToken
	}

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.generation.Load() != gen {
		return c.supersededLocked(ctx)
	}
	if err != nil {
		c.teardownLocked(ctx, err)
		return "", sessionExpired(err)
	}

	next := session.New(pair.AccessToken, pair.RefreshToken)
	if err := c.store.Save(context.WithoutCancel(ctx), next); err != nil {
		c.teardownLocked(ctx, err)
		return "", sessionExpired(err)
	}
	return next.AccessToken, nil
}

// supersededLocked resolves a cycle overtaken by a login or teardown: waiters get the
// token of whatever session is stored now.
func (c *Client) supersededLocked(ctx context.Context) (string, error) {
	c.logger.Debug("authclient: refresh superseded")

	sess, err := c.store.Load(context.WithoutCancel(ctx))
	if err != nil {
		return "", sessionExpired(err)
	}
	if sess.Status != session.StatusAuthenticated {
		return "", ErrSessionExpired
	}
	return sess.AccessToken, nil
}

func sessionExpired(reason error) error {
	if reason == nil || errors.Is(reason, ErrSessionExpired) {
		return reason
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, reason)
}
