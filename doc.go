// Package fetchkit provides a resilient HTTP request client with a small,
// uniform verb surface (Get / Post / Put / Patch / Delete):
//
//   - Per-endpoint request supersession: a second call to the same
//     method+URL cancels the first before dispatch
//   - Configurable timeouts racing the network call via cancellation
//   - Retry-on-failure with an optional backoff strategy
//   - Content negotiation for outgoing payloads and incoming bodies
//     (JSON, plain text, binary blobs, multipart forms)
//   - Prometheus metrics and lightweight structured attempt logging
//
// Design goals:
//   - Runtime failures are values: every call settles with an *Outcome,
//     never a panic; only constructor misuse returns an error
//   - Safe concurrent use of a single *Client instance
//   - Functional options configure everything
//
// Typical usage:
//
//	client, err := fetchkit.New("https://api.example.com",
//	    fetchkit.WithToken("s3cret"),
//	    fetchkit.WithTimeout(5*time.Second),
//	    fetchkit.WithRetries(2),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out := client.Get(ctx, "/users", fetchkit.Params{"id": []int{1, 2}})
//	if !out.OK() {
//	    log.Println(out.Message)
//	}
//
// Cancellation (timeout, AbortAll, supersession) is terminal and never
// retried; network errors and non-2xx statuses consume the retry budget.
// The library avoids opinionated logging: provide a Logger (e.g. via
// WithSimpleLogger or NewLogrusLogger) and enable it with WithLogging, or
// force it per call with ForceLog.
package fetchkit
