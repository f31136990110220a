// Package monitoring exposes Prometheus metrics for outgoing Localities requests and
// the per-environment circuit breakers.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/localities-compare/internal/resilience"
)

const namespace = "localities_compare"

// Metrics records request and breaker metrics. It implements
// localities.RequestObserver.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	breaker  *prometheus.GaugeVec
	trips    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Localities API requests by environment, endpoint and status class.",
		}, []string{"env", "endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Localities API request latency.",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"env", "endpoint"}),
		breaker: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per environment (0 closed, 1 open, 2 half-open).",
		}, []string{"env"}),
		trips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_trips_total",
			Help:      "Number of times an environment breaker opened.",
		}, []string{"env"}),
	}
	reg.MustRegister(m.requests, m.duration, m.breaker, m.trips)
	return m
}

// ObserveRequest counts one request. A zero status means no response arrived.
func (m *Metrics) ObserveRequest(env, endpoint string, status int, d time.Duration) {
	m.requests.WithLabelValues(env, endpoint, StatusClass(status)).Inc()
	m.duration.WithLabelValues(env, endpoint).Observe(d.Seconds())
}

// BreakerStateChanged matches resilience.BreakerConfig.OnStateChange.
func (m *Metrics) BreakerStateChanged(env string, _, to resilience.State) {
	m.breaker.WithLabelValues(env).Set(float64(to))
	if to == resilience.Open {
		m.trips.WithLabelValues(env).Inc()
	}
}

// StatusClass buckets an HTTP status into 2xx, 4xx, 5xx and so on, or "error"
// when there was no response.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
