package fetchkit

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Option represents a client configuration option.
type Option func(*Client)

// BackoffStrategy selects how retry delays are computed when backoff is
// enabled.
type BackoffStrategy int

const (
	ExponentialJitter BackoffStrategy = iota
	DecorrelatedJitter
)

// WithToken sets the default bearer token. It can be replaced later with
// SetToken.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the default per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetries sets the default retry count; a call performs 1+n attempts.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retries = n
	}
}

// WithLogging enables attempt logging client-wide. A SimpleLogger is
// installed if no Logger was configured.
func WithLogging() Option {
	return func(c *Client) {
		c.logEnabled = true
	}
}

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		c.logEnabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithHTTPClient sets a custom HTTP client. Its Timeout should be left
// zero: deadlines are managed per attempt by the request timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTransport sets the underlying round tripper, keeping the managed
// HTTP client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Transport: rt}
	}
}

// WithUserAgent sets the User-Agent header for all requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRequestIDGenerator sets a custom function for generating the request
// IDs attached to logs and failures.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.requestIDGen = gen
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithRateLimit installs a client-wide token bucket limiter waited on
// before every attempt.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithRateLimiter installs a caller-managed limiter.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithCircuitBreaker installs a circuit breaker consulted before dispatch.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.breaker = NewCircuitBreaker(config)
	}
}

// WithBackoff spaces retry attempts with exponential jitter. Without this
// option retries fire immediately, matching the historical behavior of the
// client this library descends from.
func WithBackoff(initial, max time.Duration, multiplier, jitter float64) Option {
	return func(c *Client) {
		c.backoff = newBackoffPolicy(ExponentialJitter, initial, max, multiplier, jitter)
	}
}

// WithBackoffStrategy is WithBackoff with an explicit strategy.
func WithBackoffStrategy(strategy BackoffStrategy, initial, max time.Duration, multiplier, jitter float64) Option {
	return func(c *Client) {
		c.backoff = newBackoffPolicy(strategy, initial, max, multiplier, jitter)
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid. New runs it automatically.
func (c *Client) ValidateConfiguration() error {
	var errs []string

	errs = append(errs, c.validateRequestDefaults()...)
	errs = append(errs, c.validateBackoffConfig()...)
	errs = append(errs, c.validateCircuitBreakerConfig()...)
	errs = append(errs, c.validateInfraConfig()...)

	if len(errs) > 0 {
		return &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errs),
		}
	}
	return nil
}

func (c *Client) validateRequestDefaults() []string {
	var errs []string

	if c.timeout < 0 {
		errs = append(errs, "timeout must be non-negative")
	}
	if c.timeout > 10*time.Minute {
		errs = append(errs, "timeout > 10m may cause requests to hang for too long")
	}
	if c.retries < 0 {
		errs = append(errs, "retries must be non-negative")
	}
	if c.retries > 100 {
		errs = append(errs, "retries > 100 may cause excessive resource usage")
	}
	return errs
}

func (c *Client) validateBackoffConfig() []string {
	var errs []string

	if c.backoff != nil {
		if c.backoff.initial <= 0 {
			errs = append(errs, "backoff initial delay must be positive")
		}
		if c.backoff.max < c.backoff.initial {
			errs = append(errs, "backoff max delay must be greater than or equal to initial delay")
		}
		if c.backoff.multiplier <= 0 {
			errs = append(errs, "backoff multiplier must be positive")
		}
		if c.backoff.jitter < 0 || c.backoff.jitter > 1 {
			errs = append(errs, "backoff jitter must be between 0 and 1")
		}
		if c.backoff.max > time.Hour {
			errs = append(errs, "backoff max delay > 1h may cause extremely long delays")
		}
	}
	return errs
}

func (c *Client) validateCircuitBreakerConfig() []string {
	var errs []string

	if c.breaker != nil {
		if c.breaker.config.FailureThreshold <= 0 {
			errs = append(errs, "circuitBreaker FailureThreshold must be positive")
		}
		if c.breaker.config.RecoveryTimeout <= 0 {
			errs = append(errs, "circuitBreaker RecoveryTimeout must be positive")
		}
		if c.breaker.config.SuccessThreshold <= 0 {
			errs = append(errs, "circuitBreaker SuccessThreshold must be positive")
		}
	}
	return errs
}

func (c *Client) validateInfraConfig() []string {
	var errs []string

	if c.httpClient == nil {
		errs = append(errs, "HTTP client cannot be nil")
	}
	if c.requestIDGen == nil {
		errs = append(errs, "request ID generator cannot be nil")
	}
	if c.limiter != nil && c.limiter.Limit() <= 0 {
		errs = append(errs, "rate limit must be positive")
	}
	return errs
}
