package obs

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAttemptCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.ObserveAttempt("geoapify", "ok", 10*time.Millisecond)
	m.ObserveAttempt("geoapify", "status_error", 5*time.Millisecond)
	m.ObserveAttempt("geoapify", "status_error", 5*time.Millisecond)

	if got := testutil.ToFloat64(m.UpstreamAttempts.WithLabelValues("geoapify", "status_error")); got != 2 {
		t.Fatalf("upstream_attempts_total{status_error} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.UpstreamAttempts.WithLabelValues("geoapify", "ok")); got != 1 {
		t.Fatalf("upstream_attempts_total{ok} = %v, want 1", got)
	}
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("first NewMetrics: %v", err)
	}
	second, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}

	first.ObserveContextRequest("ok", time.Second)
	if got := testutil.ToFloat64(second.ContextRequests.WithLabelValues("ok")); got != 1 {
		t.Fatalf("context_requests_total via second handle = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAttempt("openmeteo", "ok", time.Millisecond)
	m.ObserveContextRequest("error", time.Millisecond)
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.ObserveContextRequest("ok", 200*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `context_requests_total{outcome="ok"} 1`) {
		t.Fatalf("metrics output missing context_requests_total:\n%s", body)
	}
}
