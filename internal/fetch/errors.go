package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown Kind = iota
	// KindTimeout is a request or render that exceeded its deadline.
	KindTimeout
	// KindNotFound is a 404 or 410 response.
	KindNotFound
	// KindRateLimited is a 429 response that persisted through all retries.
	KindRateLimited
	// KindBlocked is a 403 response that persisted through all retries.
	KindBlocked
	// KindServerError is a 5xx response.
	KindServerError
	// KindConnection is a transport failure (refused, reset, DNS).
	KindConnection
	// KindHTTPStatus is any other non-success status.
	KindHTTPStatus
	// KindRender is a failure of the browser-rendering strategy.
	KindRender
	// KindInvalidRequest is a URL no request can be built for.
	KindInvalidRequest
)

// Sentinel errors matched by errors.Is against an *Error of the same kind.
var (
	// ErrTimeout matches KindTimeout failures.
	ErrTimeout = errors.New("fetch timed out")
	// ErrNotFound matches KindNotFound failures.
	ErrNotFound = errors.New("page not found")
	// ErrRateLimited matches KindRateLimited failures.
	ErrRateLimited = errors.New("rate limited")
	// ErrBlocked matches KindBlocked failures.
	ErrBlocked = errors.New("blocked by server")
	// ErrServerError matches KindServerError failures.
	ErrServerError = errors.New("server error")
	// ErrConnection matches KindConnection failures.
	ErrConnection = errors.New("connection failed")
	// ErrHTTPStatus matches KindHTTPStatus failures.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrRender matches KindRender failures.
	ErrRender = errors.New("render failed")
	// ErrInvalidRequest matches KindInvalidRequest failures.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRetriesExhausted is wrapped when transient statuses outlast the retry budget.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrRendererClosed is returned by a renderer used after Close.
	ErrRendererClosed = errors.New("renderer is closed")
	// ErrEmptyRender is returned when the browser produced no HTML.
	ErrEmptyRender = errors.New("empty HTML after render")
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindBlocked:
		return "blocked"
	case KindServerError:
		return "server_error"
	case KindConnection:
		return "connection"
	case KindHTTPStatus:
		return "http_status"
	case KindRender:
		return "render"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	case KindBlocked:
		return ErrBlocked
	case KindServerError:
		return ErrServerError
	case KindConnection:
		return ErrConnection
	case KindHTTPStatus:
		return ErrHTTPStatus
	case KindRender:
		return ErrRender
	case KindInvalidRequest:
		return ErrInvalidRequest
	default:
		return nil
	}
}

// Error is a typed fetch failure for one URL.
type Error struct {
	// URL is the page that failed.
	URL string

	// Kind classifies the failure.
	Kind Kind

	// StatusCode is the last HTTP status seen, or 0.
	StatusCode int

	// Attempts is the number of network attempts made across strategies.
	Attempts int

	// Strategy is the strategy that produced the failure.
	Strategy Strategy

	// Err is the underlying cause, if any.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	msg := fmt.Sprintf("fetch %s: %s via %s after %d attempt(s)", e.URL, e.Kind, e.Strategy, e.Attempts)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// IsTransientStatus reports whether code is retried by the static strategy.
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// kindForStatus maps a non-success HTTP status to a failure kind.
func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return KindNotFound
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusForbidden:
		return KindBlocked
	case code >= http.StatusInternalServerError:
		return KindServerError
	default:
		return KindHTTPStatus
	}
}
