package authclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/go-chi/chi/v5"
)

type seenRequest struct {
	Method string
	Path   string
	Auth   string
	Body   string
	Trace  string
}

// fakeAPI is a protected API that accepts a fixed set of access tokens and exposes
// a gated refresh endpoint.
type fakeAPI struct {
	srv *httptest.Server

	mu    sync.Mutex
	valid map[string]bool
	seen  []seenRequest

	refreshCalls  atomic.Int32
	refreshStatus int
	refreshBody   string

	gate     chan struct{}
	gateOnce sync.Once
}

func newFakeAPI(t *testing.T, validTokens ...string) *fakeAPI {
	t.Helper()

	api := &fakeAPI{
		valid:       make(map[string]bool),
		refreshBody: `{"access_token":"tok2","refresh_token":"ref2"}`,
	}
	for _, tok := range validTokens {
		api.valid[tok] = true
	}

	r := chi.NewRouter()
	r.Use(api.record)
	r.Post("/auth/refresh", api.handleRefresh)
	r.Get("/invalid", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid amount"}`))
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	r.Get("/always401", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.HandleFunc("/*", api.handleProtected)

	api.srv = httptest.NewServer(r)
	t.Cleanup(func() {
		api.release()
		api.srv.Close()
	})
	return api
}

func (a *fakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		a.mu.Lock()
		a.seen = append(a.seen, seenRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
			Trace:  r.Header.Get("X-Trace"),
		})
		a.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (a *fakeAPI) handleProtected(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	a.mu.Lock()
	ok := a.valid[token]
	a.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	_, _ = w.Write([]byte("ok " + r.URL.Path))
}

func (a *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	a.refreshCalls.Add(1)

	if a.gate != nil {
		select {
		case <-a.gate:
		case <-r.Context().Done():
			return
		}
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if a.refreshStatus != 0 {
		w.WriteHeader(a.refreshStatus)
		return
	}
	if req.RefreshToken == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	a.mu.Lock()
	body := a.refreshBody
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// hold makes the refresh endpoint block until release.
func (a *fakeAPI) hold() {
	a.gate = make(chan struct{})
}

func (a *fakeAPI) release() {
	a.gateOnce.Do(func() {
		if a.gate != nil {
			close(a.gate)
		}
	})
}

func (a *fakeAPI) accept(token string) {
	a.mu.Lock()
	a.valid[token] = true
	a.mu.Unlock()
}

func (a *fakeAPI) revoke(token string) {
	a.mu.Lock()
	delete(a.valid, token)
	a.mu.Unlock()
}

// issue makes the refresh endpoint hand out access/refreshToken from now on.
func (a *fakeAPI) issue(access, refreshToken string) {
	a.mu.Lock()
	a.refreshBody = fmt.Sprintf(`{"access_token":%q,"refresh_token":%q}`, access, refreshToken)
	a.mu.Unlock()
}

func (a *fakeAPI) requestsTo(path string) []seenRequest {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []seenRequest
	for _, s := range a.seen {
		if s.Path == path {
			out = append(out, s)
		}
	}
	return out
}

func testConfig(api *fakeAPI) Config {
	cfg := DefaultConfig()
	cfg.HTTP.BaseURL = api.srv.URL
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Refresh.Endpoint = "/auth/refresh"
	cfg.Refresh.Timeout = 5 * time.Second
	cfg.Notify.DropIfFull = false
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestClient(t *testing.T, api *fakeAPI, store session.Store, configure func(*Builder)) (*Client, *ChannelSink) {
	t.Helper()

	sink := NewChannelSink(64)
	b := New().
		WithConfig(testConfig(api)).
		WithSessionStore(store).
		WithNotificationSink(sink)
	if configure != nil {
		configure(b)
	}

	c, err := b.Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, sink
}

// drain closes c so the dispatcher flushes, then returns every delivered notification.
func drain(t *testing.T, c *Client, sink *ChannelSink) []Notification {
	t.Helper()
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var out []Notification
	for {
		select {
		case n := <-sink.Notifications():
			out = append(out, n)
		default:
			return out
		}
	}
}

func countKind(ns []Notification, kind NotificationKind) int {
	n := 0
	for _, v := range ns {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func refreshPair(access, refreshToken string) refresh.Pair {
	return refresh.Pair{AccessToken: access, RefreshToken: refreshToken}
}
