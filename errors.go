package fetchkit

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error type tags carried by ClientError.Type.
const (
	ErrorTypeConfiguration = "Configuration"
	ErrorTypeTransport     = "Transport"
	ErrorTypeHTTPStatus    = "HTTPStatus"
	ErrorTypeTimeout       = "Timeout"
	ErrorTypeCanceled      = "Canceled"
	ErrorTypeRateLimit     = "RateLimit"
	ErrorTypeCircuitOpen   = "CircuitBreaker"
)

// Sentinel cancellation causes. They are installed as context cancel causes
// so that an attempt can tell why it was cut short.
var (
	// ErrSuperseded is the cancel cause when a newer request to the same
	// method+URL replaces an in-flight one.
	ErrSuperseded = errors.New("fetchkit: superseded by newer request")

	// ErrAborted is the cancel cause used by AbortAll.
	ErrAborted = errors.New("fetchkit: request aborted")

	// ErrTimedOut is the cancel cause when the per-request timeout elapses.
	ErrTimedOut = errors.New("fetchkit: request timed out")
)

// ClientError describes a failed request or an invalid configuration.
// Runtime failures are surfaced through Outcome.Err rather than returned by
// the verb methods; only New returns a ClientError directly.
type ClientError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte
	Attempt    int
	Attempts   int
	Timestamp  time.Time
	Duration   time.Duration
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt+1, e.Attempts)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsRetryable reports whether the failure consumes the retry budget rather
// than terminating the call. Transport errors and non-2xx statuses are
// retryable; cancellation, timeouts and configuration errors are not.
func IsRetryable(err error) bool {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	switch clientErr.Type {
	case ErrorTypeTransport, ErrorTypeHTTPStatus:
		return true
	default:
		return false
	}
}

// IsCanceled reports whether the failure came from a cancellation source:
// timeout, AbortAll or supersession.
func IsCanceled(err error) bool {
	if errors.Is(err, ErrSuperseded) || errors.Is(err, ErrAborted) || errors.Is(err, ErrTimedOut) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrorTypeCanceled || clientErr.Type == ErrorTypeTimeout
	}
	return false
}
