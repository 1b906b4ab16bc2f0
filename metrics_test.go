package fetchkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse URL %q: %v", raw, err)
	}
	return u
}

func TestMetricsCollectorRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	mc := NewMetricsCollectorWithRegistry(registry)

	mc.RecordRequest("GET", "api.test/users", 200, 50*time.Millisecond)
	mc.RecordRetry("GET", "api.test/users", 1)
	mc.RecordSupersession("GET", "api.test/users")
	mc.RecordTimeout("GET", "api.test/users")
	mc.RecordAborts(3)
	mc.RecordError(ErrorTypeTransport, "GET", "api.test/users")
	mc.RecordCircuitBreakerState("default", StateHalfOpen)

	if got := testutil.ToFloat64(mc.requestsTotal.WithLabelValues("GET", "200", "api.test/users")); got != 1 {
		t.Errorf("Expected 1 request, got %v", got)
	}
	if got := testutil.ToFloat64(mc.retriesTotal.WithLabelValues("GET", "api.test/users", "1")); got != 1 {
		t.Errorf("Expected 1 retry, got %v", got)
	}
	if got := testutil.ToFloat64(mc.supersessionsTotal.WithLabelValues("GET", "api.test/users")); got != 1 {
		t.Errorf("Expected 1 supersession, got %v", got)
	}
	if got := testutil.ToFloat64(mc.timeoutsTotal.WithLabelValues("GET", "api.test/users")); got != 1 {
		t.Errorf("Expected 1 timeout, got %v", got)
	}
	if got := testutil.ToFloat64(mc.abortsTotal); got != 3 {
		t.Errorf("Expected 3 aborts, got %v", got)
	}
	if got := testutil.ToFloat64(mc.errorsTotal.WithLabelValues(ErrorTypeTransport, "GET", "api.test/users")); got != 1 {
		t.Errorf("Expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(mc.circuitBreakerState.WithLabelValues("default")); got != 2 {
		t.Errorf("Expected half-open gauge 2, got %v", got)
	}
}

func TestMetricsCollectorNilSafety(t *testing.T) {
	var mc *MetricsCollector

	mc.RecordRequest("GET", "e", 200, time.Second)
	mc.RecordRequestStart("GET", "e")
	mc.RecordRequestEnd("GET", "e")
	mc.RecordRetry("GET", "e", 1)
	mc.RecordSupersession("GET", "e")
	mc.RecordTimeout("GET", "e")
	mc.RecordAborts(1)
	mc.RecordCircuitBreakerState("default", StateOpen)
	mc.RecordError(ErrorTypeTransport, "GET", "e")
}

func TestMetricsInstrumentedLifecycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	mc := NewMetricsCollectorWithRegistry(registry)
	client := newTestClient(t, server.URL, WithMetricsCollector(mc))

	out := client.Get(context.Background(), "/fail", nil, WithCallRetries(1))
	if out.OK() {
		t.Fatal("Expected failure outcome")
	}

	endpoint := endpointLabel(mustParseURL(t, server.URL+"/fail"))
	if got := testutil.ToFloat64(mc.requestsTotal.WithLabelValues("GET", "502", endpoint)); got != 1 {
		t.Errorf("Expected 1 settled request, got %v", got)
	}
	if got := testutil.ToFloat64(mc.retriesTotal.WithLabelValues("GET", endpoint, "1")); got != 1 {
		t.Errorf("Expected 1 recorded retry, got %v", got)
	}
	if got := testutil.ToFloat64(mc.errorsTotal.WithLabelValues(ErrorTypeHTTPStatus, "GET", endpoint)); got != 2 {
		t.Errorf("Expected 2 recorded HTTPStatus errors, got %v", got)
	}
	if got := testutil.ToFloat64(mc.requestsInFlight.WithLabelValues("GET", endpoint)); got != 0 {
		t.Errorf("Expected drained in-flight gauge, got %v", got)
	}
}
