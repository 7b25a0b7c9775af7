package authclient

import (
	"context"
	"time"

	"github.com/MrEthical07/authclient/internal/notify"
)

const sessionEndedMessage = "Your session has ended. Please sign in again."

// teardown clears the session if no login or teardown happened since gen was read.
func (c *Client) teardown(ctx context.Context, gen uint64, reason error) bool {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.generation.Load() != gen {
		return false
	}
	cleared, _ := c.teardownLocked(ctx, reason)
	return cleared
}

// teardownToken clears the session only while it still holds accessToken.
func (c *Client) teardownToken(ctx context.Context, accessToken string, reason error) bool {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	sess, err := c.store.Load(context.WithoutCancel(ctx))
	if err != nil || sess.AccessToken != accessToken {
		return false
	}
	cleared, _ := c.teardownLocked(ctx, reason)
	return cleared
}

// teardownLocked clears the session and announces it once. It reports whether a
// session was actually cleared; on an already cleared store it writes nothing,
// emits nothing and counts nothing. sessionMu must be held.
func (c *Client) teardownLocked(ctx context.Context, reason error) (bool, error) {
	ctx = context.WithoutCancel(ctx)

	c.generation.Add(1)

	sess, err := c.store.Load(ctx)
	if err == nil && sess.Cleared() {
		return false, nil
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("authclient: session clear failed", "error", err)
		return false, err
	}

	c.metrics.Inc(MetricSessionTeardown)
	c.logger.Info("authclient: session ended", "reason", reason)

	n := notify.Notification{
		Timestamp: time.Now(),
		Kind:      notify.KindSessionEnded,
		Message:   sessionEndedMessage,
	}
	if reason != nil {
		n.Error = reason.Error()
	}
	c.notifier.Emit(ctx, n)
	return true, nil
}
