package obs

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for upstream provider calls and
// context requests. All methods are safe on a nil receiver.
type Metrics struct {
	gatherer prometheus.Gatherer

	UpstreamAttempts *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	ContextRequests  *prometheus.CounterVec
	ContextDuration  prometheus.Histogram
}

// NewMetrics registers the collectors against reg, defaulting to the global
// Prometheus registry when nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		UpstreamAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upstream_attempts_total",
			Help: "Outbound provider HTTP attempts, labeled by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "upstream_attempt_duration_seconds",
			Help:    "Latency of a single outbound provider attempt in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 10},
		}, []string{"provider"}),
		ContextRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "context_requests_total",
			Help: "Aggregated context requests, labeled by outcome.",
		}, []string{"outcome"}),
		ContextDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "context_request_duration_seconds",
			Help:    "Wall-clock time to build an aggregated context in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
	}

	var err error
	if m.UpstreamAttempts, err = register(reg, m.UpstreamAttempts); err != nil {
		return nil, err
	}
	if m.UpstreamDuration, err = register(reg, m.UpstreamDuration); err != nil {
		return nil, err
	}
	if m.ContextRequests, err = register(reg, m.ContextRequests); err != nil {
		return nil, err
	}
	if m.ContextDuration, err = register(reg, m.ContextDuration); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an already-registered collector of the same shape.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveAttempt records one outbound attempt.
func (m *Metrics) ObserveAttempt(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamAttempts.WithLabelValues(provider, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveContextRequest records the outcome of one BuildContext call.
func (m *Metrics) ObserveContextRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ContextRequests.WithLabelValues(outcome).Inc()
	m.ContextDuration.Observe(d.Seconds())
}

// Handler exposes the registered metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
