package authclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/authclient/internal/notify"
)

// Classification labels a completed call.
type Classification uint8

const (
	// ClassSuccess is a 1xx, 2xx or 3xx response.
	ClassSuccess Classification = iota
	// ClassAuthExpired is a 401 response.
	ClassAuthExpired
	// ClassClientError is any other 4xx response.
	ClassClientError
	// ClassServerError is a 5xx response, or a status outside 100-599.
	ClassServerError
	// ClassNetworkError is a transport failure or timeout.
	ClassNetworkError
)

func (c Classification) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassAuthExpired:
		return "auth_expired"
	case ClassClientError:
		return "client_error"
	case ClassServerError:
		return "server_error"
	case ClassNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Classify labels a completed call. A non-nil err always classifies as a network
// error; otherwise the label follows statusCode.
func Classify(statusCode int, err error) Classification {
	if err != nil {
		return ClassNetworkError
	}
	switch {
	case statusCode == http.StatusUnauthorized:
		return ClassAuthExpired
	case statusCode >= 100 && statusCode < 400:
		return ClassSuccess
	case statusCode >= 400 && statusCode < 500:
		return ClassClientError
	default:
		return ClassServerError
	}
}

// ClassifiedError is returned by [Client.Do] for every non-success outcome that is
// not a session failure. Match it with errors.Is against [ErrClientError],
// [ErrServerError], [ErrNetwork] or [ErrAuthExpired], or with errors.As.
type ClassifiedError struct {
	Class      Classification
	StatusCode int
	Method     string
	URL        string
	RequestID  string
	Message    string
	Body       []byte
	// Err is the transport error for ClassNetworkError, nil otherwise.
	Err error
}

func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteString(e.Class.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " %d", e.StatusCode)
	}
	if e.Method != "" {
		fmt.Fprintf(&b, " %s %s", e.Method, e.URL)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Class.
func (e *ClassifiedError) Is(target error) bool {
	return target != nil && target == e.sentinel()
}

func (e *ClassifiedError) sentinel() error {
	switch e.Class {
	case ClassAuthExpired:
		return ErrAuthExpired
	case ClassClientError:
		return ErrClientError
	case ClassServerError:
		return ErrServerError
	case ClassNetworkError:
		return ErrNetwork
	default:
		return nil
	}
}

func (e *ClassifiedError) notification() (notify.Notification, bool) {
	n := notify.Notification{
		Timestamp:  time.Now(),
		Message:    e.Message,
		RequestID:  e.RequestID,
		Method:     e.Method,
		URL:        e.URL,
		StatusCode: e.StatusCode,
	}
	if e.Err != nil {
		n.Error = e.Err.Error()
	}

	switch e.Class {
	case ClassClientError:
		n.Kind = notify.KindClientError
	case ClassServerError:
		n.Kind = notify.KindServerError
	case ClassNetworkError:
		n.Kind = notify.KindNetworkError
	default:
		return notify.Notification{}, false
	}
	return n, true
}

func newClassifiedError(class Classification, req Request, requestID string, resp *Response, err error) *ClassifiedError {
	ce := &ClassifiedError{
		Class:     class,
		Method:    req.Method,
		URL:       req.URL,
		RequestID: requestID,
		Err:       err,
	}
	if resp != nil {
		ce.StatusCode = resp.StatusCode
		ce.Body = resp.Body
	}
	ce.Message = userMessage(class, ce.StatusCode, ce.Body)
	return ce
}

const maxMessageBytes = 256

// userMessage builds the human-readable text handed to the notification sink.
func userMessage(class Classification, status int, body []byte) string {
	switch class {
	case ClassNetworkError:
		return "Network error. Check your connection and try again."
	case ClassServerError:
		return "The service is temporarily unavailable. Please try again later."
	case ClassClientError:
		if msg := serverMessage(body); msg != "" {
			return msg
		}
		if text := http.StatusText(status); text != "" {
			return text
		}
		return "The request could not be completed."
	default:
		return ""
	}
}

// serverMessage extracts a "message" or "error" string from a JSON error body.
func serverMessage(body []byte) string {
	if len(body) == 0 || body[0] != '{' {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	msg := strings.TrimSpace(payload.Message)
	if msg == "" {
		msg = strings.TrimSpace(payload.Error)
	}
	return truncateUTF8(msg, maxMessageBytes)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
