package fetchkit

import (
	"net/http"
	"time"
)

// CallOption adjusts a single request without touching client defaults.
type CallOption func(*callConfig)

type callConfig struct {
	token      string
	tokenSet   bool
	timeout    time.Duration
	timeoutSet bool
	retries    int
	retriesSet bool
	forceLog   bool
	header     http.Header
}

// WithCallToken overrides the bearer token for this call only. An empty
// token suppresses the Authorization header.
func WithCallToken(token string) CallOption {
	return func(cc *callConfig) {
		cc.token = token
		cc.tokenSet = true
	}
}

// WithCallTimeout overrides the default timeout for this call. Zero
// disables the timeout.
func WithCallTimeout(d time.Duration) CallOption {
	return func(cc *callConfig) {
		cc.timeout = d
		cc.timeoutSet = true
	}
}

// WithCallRetries overrides the default retry count for this call.
func WithCallRetries(n int) CallOption {
	return func(cc *callConfig) {
		cc.retries = n
		cc.retriesSet = true
	}
}

// ForceLog emits attempt diagnostics for this call even when client-wide
// logging is disabled.
func ForceLog() CallOption {
	return func(cc *callConfig) {
		cc.forceLog = true
	}
}

// WithHeader sets a header for this call. Explicit headers win over the
// computed Content-Type and the Authorization header.
func WithHeader(key, value string) CallOption {
	return func(cc *callConfig) {
		if cc.header == nil {
			cc.header = make(http.Header)
		}
		cc.header.Set(key, value)
	}
}

// WithHeaders merges h into this call's headers.
func WithHeaders(h http.Header) CallOption {
	return func(cc *callConfig) {
		if h == nil {
			return
		}
		if cc.header == nil {
			cc.header = make(http.Header)
		}
		for key, values := range h {
			for _, v := range values {
				cc.header.Add(key, v)
			}
		}
	}
}

// applyHeaders merges headers in precedence order: instance token, per-call
// token override, computed content type, then explicit per-call headers,
// which override everything before them.
func (c *Client) applyHeaders(req *http.Request, cc *callConfig, contentType string) {
	token := c.currentToken()
	if cc.tokenSet {
		token = cc.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range cc.header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
}
