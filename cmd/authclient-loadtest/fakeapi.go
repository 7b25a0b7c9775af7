package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// fakeAPI rotates both tokens on every refresh and rejects a reused refresh token,
// so a refresh storm shows up as reuse rejections.
type fakeAPI struct {
	delay time.Duration

	mu         sync.Mutex
	generation int
	access     string
	refresh    string

	refreshCalls    atomic.Int64
	reuseRejections atomic.Int64
}

func newFakeAPI(delay time.Duration) *fakeAPI {
	return &fakeAPI{delay: delay}
}

func (a *fakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/refresh", a.handleRefresh)
	r.Get("/accounts/{id}/balance", a.handleBalance)
	return r
}

func (a *fakeAPI) login() (string, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rotateLocked()
	return a.access, a.refresh
}

// expireAccess invalidates the current access token; the refresh token stays valid.
func (a *fakeAPI) expireAccess() {
	a.mu.Lock()
	a.access = ""
	a.mu.Unlock()
}

func (a *fakeAPI) rotateLocked() {
	a.generation++
	a.access = fmt.Sprintf("acc-%d", a.generation)
	a.refresh = fmt.Sprintf("ref-%d", a.generation)
}

func (a *fakeAPI) handleBalance(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	a.mu.Lock()
	ok := token != "" && token == a.access
	a.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"account":%q,"balance":"100.00"}`, chi.URLParam(r, "id"))
}

func (a *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	a.refreshCalls.Add(1)
	if a.delay > 0 {
		time.Sleep(a.delay)
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	if req.RefreshToken != a.refresh {
		a.mu.Unlock()
		a.reuseRejections.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	a.rotateLocked()
	access, refresh := a.access, a.refresh
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
	})
}
