package fetchkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Client is a resilient HTTP request client. Every verb method funnels into
// one execution routine that layers supersession, timeout-racing, retries,
// content negotiation, metrics and attempt logging around the standard
// net/http Client. It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	baseURL      *url.URL
	logEnabled   bool
	timeout      time.Duration
	retries      int
	userAgent    string
	logger       Logger
	requestIDGen func() string
	metrics      *MetricsCollector
	limiter      *rate.Limiter
	breaker      *CircuitBreaker
	backoff      *backoffPolicy
	inflight     *inflightRegistry

	mu    sync.RWMutex
	token string
}

// New constructs a Client for the given base URL using the provided
// functional options. It fails synchronously when the base URL is not an
// absolute http(s) URL or when option validation fails; these are the only
// error returns in the package.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, cerr := parseBaseURL(baseURL)
	if cerr != nil {
		return nil, cerr
	}

	c := &Client{
		httpClient:   &http.Client{},
		baseURL:      u,
		requestIDGen: uuid.NewString,
		inflight:     newInflightRegistry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logEnabled && c.logger == nil {
		c.logger = NewSimpleLogger()
	}
	if err := c.ValidateConfiguration(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetToken replaces the default bearer token. It affects only requests
// issued afterwards.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Get performs a GET request. params serialize into the query string, never
// a body.
func (c *Client) Get(ctx context.Context, path string, params Params, opts ...CallOption) *Outcome {
	return c.do(ctx, http.MethodGet, path, params, nil, opts)
}

// Post performs a POST request with a content-negotiated payload.
func (c *Client) Post(ctx context.Context, path string, payload any, opts ...CallOption) *Outcome {
	return c.do(ctx, http.MethodPost, path, nil, payload, opts)
}

// Put performs a PUT request with a content-negotiated payload.
func (c *Client) Put(ctx context.Context, path string, payload any, opts ...CallOption) *Outcome {
	return c.do(ctx, http.MethodPut, path, nil, payload, opts)
}

// Patch performs a PATCH request with a content-negotiated payload.
func (c *Client) Patch(ctx context.Context, path string, payload any, opts ...CallOption) *Outcome {
	return c.do(ctx, http.MethodPatch, path, nil, payload, opts)
}

// Delete performs a DELETE request. It carries no body.
func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) *Outcome {
	return c.do(ctx, http.MethodDelete, path, nil, nil, opts)
}

// AbortAll cancels every in-flight request and clears the registry. Meant
// for teardown; requests issued afterwards proceed unaffected.
func (c *Client) AbortAll() {
	n := c.inflight.abortAll()
	c.metrics.RecordAborts(n)
}

// do executes one logical request: build, dispatch, timeout-race, then
// retry or fail. It always returns a settled outcome.
func (c *Client) do(ctx context.Context, method, path string, params Params, payload any, opts []CallOption) *Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	requestID := c.requestIDGen()

	cc := &callConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cc)
		}
	}

	u, err := c.buildURL(path, params)
	if err != nil {
		return failureOutcome(c.newError(ErrorTypeConfiguration, fmt.Sprintf("invalid path %q", path), err, method, nil, requestID, 0, 1, start))
	}
	body, contentType, err := encodePayload(method, payload)
	if err != nil {
		return failureOutcome(c.newError(ErrorTypeConfiguration, "invalid request payload", err, method, u, requestID, 0, 1, start))
	}

	endpoint := endpointLabel(u)
	key := method + "::" + u.String()

	timeout := c.timeout
	if cc.timeoutSet {
		timeout = cc.timeout
	}
	retries := c.retries
	if cc.retriesSet {
		retries = cc.retries
	}
	if retries < 0 {
		retries = 0
	}
	attempts := retries + 1

	ctx, handle, superseded := c.inflight.begin(ctx, key)
	defer c.inflight.finish(key, handle)
	if superseded {
		c.metrics.RecordSupersession(method, endpoint)
	}

	c.metrics.RecordRequestStart(method, endpoint)
	defer c.metrics.RecordRequestEnd(method, endpoint)

	var failure *ClientError
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.metrics.RecordRetry(method, endpoint, attempt)
			if c.backoff != nil {
				if err := sleepContext(ctx, c.backoff.delay(attempt-1)); err != nil {
					failure = c.cancellationError(ctx, method, u, requestID, attempt, attempts, start)
					break
				}
			}
		}

		attemptStart := time.Now()
		outcome, cerr := c.attempt(ctx, handle, method, u, body, contentType, cc, timeout, requestID, attempt, attempts, start)
		c.logAttempt(cc.forceLog, method, u.Path, attemptTag(outcome, cerr), attempt, time.Since(attemptStart), requestID)

		if cerr == nil {
			if c.breaker != nil {
				c.breaker.RecordSuccess()
				c.metrics.RecordCircuitBreakerState("default", c.breaker.State())
			}
			c.metrics.RecordRequest(method, endpoint, outcome.Status, time.Since(start))
			return outcome
		}

		c.metrics.RecordError(cerr.Type, method, endpoint)
		switch cerr.Type {
		case ErrorTypeTransport, ErrorTypeHTTPStatus:
			if c.breaker != nil {
				c.breaker.RecordFailure()
				c.metrics.RecordCircuitBreakerState("default", c.breaker.State())
			}
			failure = cerr
		case ErrorTypeTimeout:
			c.metrics.RecordTimeout(method, endpoint)
			failure = cerr
			attempt = attempts // cancellation is terminal, never retried
		default:
			// Canceled, RateLimit, CircuitBreaker, Configuration: terminal.
			failure = cerr
			attempt = attempts
		}
	}

	c.metrics.RecordRequest(method, endpoint, failure.StatusCode, time.Since(start))
	return failureOutcome(failure)
}

// attempt performs one dispatch bound to the request's cancellation handle,
// with the timeout timer racing the network call.
func (c *Client) attempt(ctx context.Context, handle *requestHandle, method string, u *url.URL, body []byte, contentType string, cc *callConfig, timeout time.Duration, requestID string, attempt, attempts int, start time.Time) (*Outcome, *ClientError) {
	if ctx.Err() != nil {
		return nil, c.cancellationError(ctx, method, u, requestID, attempt, attempts, start)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, c.cancellationError(ctx, method, u, requestID, attempt, attempts, start)
			}
			return nil, c.newError(ErrorTypeRateLimit, "rate limit exceeded", err, method, u, requestID, attempt, attempts, start)
		}
	}
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, c.newError(ErrorTypeCircuitOpen, "circuit breaker is open", nil, method, u, requestID, attempt, attempts, start)
	}

	if timeout > 0 {
		timer := time.AfterFunc(timeout, func() {
			handle.cancel(ErrTimedOut)
		})
		defer timer.Stop()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, c.newError(ErrorTypeConfiguration, "build request", err, method, u, requestID, attempt, attempts, start)
	}
	c.applyHeaders(req, cc, contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.cancellationError(ctx, method, u, requestID, attempt, attempts, start)
		}
		return nil, c.newError(ErrorTypeTransport, "network request failed", err, method, u, requestID, attempt, attempts, start)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.cancellationError(ctx, method, u, requestID, attempt, attempts, start)
		}
		return nil, c.newError(ErrorTypeTransport, "read response body", err, method, u, requestID, attempt, attempts, start)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusText := http.StatusText(resp.StatusCode)
		cerr := c.newError(ErrorTypeHTTPStatus, fmt.Sprintf("http %d %s", resp.StatusCode, statusText), nil, method, u, requestID, attempt, attempts, start)
		cerr.StatusCode = resp.StatusCode
		cerr.StatusText = statusText
		cerr.Header = resp.Header
		cerr.Body = raw
		return nil, cerr
	}

	outcome, err := decodeBody(resp, raw)
	if err != nil {
		return nil, c.newError(ErrorTypeTransport, "decode response body", err, method, u, requestID, attempt, attempts, start)
	}
	return outcome, nil
}

// cancellationError classifies a cancelled context by its cause.
func (c *Client) cancellationError(ctx context.Context, method string, u *url.URL, requestID string, attempt, attempts int, start time.Time) *ClientError {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrTimedOut):
		return c.newError(ErrorTypeTimeout, "request timed out", cause, method, u, requestID, attempt, attempts, start)
	case errors.Is(cause, ErrSuperseded):
		return c.newError(ErrorTypeCanceled, "superseded by newer request", cause, method, u, requestID, attempt, attempts, start)
	case errors.Is(cause, ErrAborted):
		return c.newError(ErrorTypeCanceled, "request aborted", cause, method, u, requestID, attempt, attempts, start)
	default:
		return c.newError(ErrorTypeCanceled, "request canceled", cause, method, u, requestID, attempt, attempts, start)
	}
}

func (c *Client) newError(errType, message string, cause error, method string, u *url.URL, requestID string, attempt, attempts int, start time.Time) *ClientError {
	urlString := ""
	if u != nil {
		urlString = u.String()
	}
	return &ClientError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		RequestID: requestID,
		Method:    method,
		URL:       urlString,
		Attempt:   attempt,
		Attempts:  attempts,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
}

func (c *Client) logAttempt(force bool, method, path, tag string, attempt int, elapsed time.Duration, requestID string) {
	if c.logger == nil || (!c.logEnabled && !force) {
		return
	}
	c.logger.Info("request attempt",
		"requestID", requestID,
		"method", method,
		"path", path,
		"status", tag,
		"attempt", attempt,
		"durationMs", elapsed.Milliseconds(),
	)
}

func attemptTag(outcome *Outcome, cerr *ClientError) string {
	if cerr == nil {
		return strconv.Itoa(outcome.Status)
	}
	if cerr.StatusCode > 0 {
		return strconv.Itoa(cerr.StatusCode)
	}
	switch cerr.Type {
	case ErrorTypeTransport:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeCanceled:
		return "canceled"
	case ErrorTypeRateLimit:
		return "ratelimited"
	case ErrorTypeCircuitOpen:
		return "circuit_open"
	default:
		return "error"
	}
}

// endpointLabel extracts host+path for metric labels.
func endpointLabel(u *url.URL) string {
	if u == nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}
	return builder.String()
}
