package authclient

import "errors"

var (
	// ErrAuthExpired matches a [*ClassifiedError] for an HTTP 401 response.
	ErrAuthExpired = errors.New("access token rejected")
	// ErrSessionExpired is returned when the session could not be refreshed and was torn down.
	ErrSessionExpired = errors.New("session expired")
	// ErrDoubleAuthFailure is wrapped by ErrSessionExpired when a replayed request was rejected again.
	ErrDoubleAuthFailure = errors.New("request rejected after refresh")
	// ErrNoRefreshCredential is wrapped by ErrSessionExpired when no refresh token was stored.
	ErrNoRefreshCredential = errors.New("no refresh token available")
	// ErrClientError matches a [*ClassifiedError] for a 4xx response other than 401.
	ErrClientError = errors.New("client error")
	// ErrServerError matches a [*ClassifiedError] for a 5xx response.
	ErrServerError = errors.New("server error")
	// ErrNetwork matches a [*ClassifiedError] for a transport failure or timeout.
	ErrNetwork = errors.New("network error")
	// ErrRequestCanceled is returned when the caller's context ends before the request completes.
	ErrRequestCanceled = errors.New("request canceled")
	// ErrInvalidRequest is returned for a request descriptor that cannot be sent.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrClientClosed is returned by every operation after Close.
	ErrClientClosed = errors.New("client closed")
	// ErrLoggedOut is the teardown reason used by Logout.
	ErrLoggedOut = errors.New("logged out")
	// ErrResponseTooLarge is wrapped by a network [*ClassifiedError] when a body exceeds HTTPConfig.MaxResponseBytes.
	ErrResponseTooLarge = errors.New("response body too large")
)
