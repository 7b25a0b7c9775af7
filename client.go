package authclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authclient/internal/flight"
	"github.com/MrEthical07/authclient/internal/notify"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
)

// Client sends authenticated requests and coordinates session refresh. Create one
// with [Builder.Build]; it is safe for concurrent use.
type Client struct {
	cfg       Config
	baseURL   *url.URL
	http      *http.Client
	store     session.Store
	refresher refresh.Refresher
	coord     *flight.Coordinator
	inspector *jwt.Inspector
	notifier  *notify.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	closers   []io.Closer

	// sessionMu serializes session writes. generation advances on every login and
	// teardown; a refresh cycle only writes while its generation is current.
	sessionMu  sync.Mutex
	generation atomic.Uint64

	lifecycleMu sync.RWMutex
	closed      atomic.Bool
	wg          sync.WaitGroup
}

// Do sends req with the current access token and returns the response of the
// first attempt that classifies as success.
//
// A 401 parks the call until the shared refresh completes, then replays it once
// with the new token. A request that waited for a refresh ahead of its first dispatch
// is not replayed again. Other failures return a [*ClassifiedError]. Session failures
// return an error matching [ErrSessionExpired]. When ctx ends first the error
// matches [ErrRequestCanceled].
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	norm, err := req.normalize(c.baseURL)
	if err != nil {
		return nil, err
	}
	pending := newPendingRequest(norm)

	sess, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	token := sess.AccessToken
	if c.needsRefresh(sess) {
		token, err = c.awaitRefresh(ctx, pending, sess.AccessToken)
		if err != nil {
			return nil, err
		}
		// The request already waited for one refresh; a 401 on it is terminal.
		pending = pending.withRetried()
	}

	return c.attempt(ctx, pending, token)
}

// needsRefresh reports whether a request should wait for a refresh before its first
// dispatch because the access token expires within the refresh-ahead window.
func (c *Client) needsRefresh(sess session.Session) bool {
	if c.inspector == nil || sess.RefreshToken == "" || sess.Status != session.StatusAuthenticated {
		return false
	}
	return c.inspector.ExpiresWithin(sess.AccessToken, time.Now(), c.cfg.Refresh.RefreshAhead)
}

// attempt dispatches pending once with token and routes the outcome.
func (c *Client) attempt(ctx context.Context, pending PendingRequest, token string) (*Response, error) {
	resp, err := c.dispatch(ctx, pending, token)
	if err != nil && ctx.Err() != nil {
		c.metrics.Inc(MetricRequestCanceled)
		return nil, fmt.Errorf("%w: %w", ErrRequestCanceled, ctx.Err())
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	switch class := Classify(status, err); class {
	case ClassSuccess:
		c.metrics.Inc(MetricRequestSuccess)
		return resp, nil

	case ClassAuthExpired:
		c.metrics.Inc(MetricAuthExpired)
		if token == "" {
			// Nothing to refresh: the caller hit a protected endpoint anonymously.
			return nil, newClassifiedError(class, pending.Original, pending.requestID(), resp, nil)
		}
		if pending.Retried {
			return nil, c.doubleAuthFailure(ctx, pending, token)
		}

		queued := pending.withRetried()
		next, err := c.awaitRefresh(ctx, queued, token)
		if err != nil {
			return nil, err
		}
		return c.replay(ctx, queued, next)

	default:
		ce := newClassifiedError(class, pending.Original, pending.requestID(), resp, err)
		c.report(ctx, ce)
		return nil, ce
	}
}

func (c *Client) report(ctx context.Context, ce *ClassifiedError) {
	switch ce.Class {
	case ClassClientError:
		c.metrics.Inc(MetricClientError)
	case ClassServerError:
		c.metrics.Inc(MetricServerError)
	case ClassNetworkError:
		c.metrics.Inc(MetricNetworkError)
	}

	c.logger.Debug("authclient: request failed",
		"class", ce.Class.String(),
		"status", ce.StatusCode,
		"method", ce.Method,
		"url", ce.URL,
		"request_id", ce.RequestID,
	)

	if n, ok := ce.notification(); ok {
		c.notifier.Emit(ctx, n)
	}
}

// StartSession stores the credentials obtained by a login. Any refresh in flight is
// superseded: it will not overwrite this session, and its waiters are released with
// the new access token.
func (c *Client) StartSession(ctx context.Context, pair refresh.Pair) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if pair.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrInvalidRequest)
	}

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	c.generation.Add(1)
	s := session.New(pair.AccessToken, pair.RefreshToken)
	return c.store.Save(ctx, s)
}

// Logout tears the session down. Calling it on a cleared session is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	_, err := c.teardownLocked(ctx, ErrLoggedOut)
	return err
}

// Session returns the stored session.
func (c *Client) Session(ctx context.Context) (session.Session, error) {
	return c.store.Load(ctx)
}

// PendingRequests returns the number of callers waiting for the current refresh.
func (c *Client) PendingRequests() int {
	return c.coord.Pending()
}

// Refreshing reports whether a refresh cycle is in flight.
func (c *Client) Refreshing() bool {
	return c.coord.State() == flight.StateRefreshing
}

// RefreshCycles returns the number of refresh cycles started so far.
func (c *Client) RefreshCycles() uint64 {
	return c.coord.Cycles()
}

func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// Metrics returns the live counters, for exporters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// NotificationsDropped returns how many notifications were dropped because the
// dispatcher buffer was full.
func (c *Client) NotificationsDropped() uint64 {
	return c.notifier.Dropped()
}

// NotificationsCoalesced returns how many repeated notifications were folded into an
// earlier one.
func (c *Client) NotificationsCoalesced() uint64 {
	return c.notifier.Coalesced()
}

// Close waits for an in-flight refresh cycle, flushes pending notifications and
// releases stores opened by the Builder. Further calls fail with [ErrClientClosed].
func (c *Client) Close() error {
	c.lifecycleMu.Lock()
	if c.closed.Load() {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.closed.Store(true)
	c.lifecycleMu.Unlock()

	c.wg.Wait()
	c.notifier.Close()

	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
