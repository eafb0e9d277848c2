// Package metrics exposes Prometheus instrumentation for the hire workflow,
// live channels and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var hireBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Manager owns every collector on a private registry.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	hireAttempts    *prometheus.CounterVec
	hireRetries     prometheus.Counter
	hireDuration    prometheus.Histogram
	notifications   *prometheus.CounterVec
	liveConnections prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gigflow",
		histogramBuckets: hireBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.hireAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "hire_attempts_total",
		Help:      "Hire requests by final outcome",
	}, []string{"outcome"})

	m.hireRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "hire_retries_total",
		Help:      "Hire transactions restarted after a transient store conflict",
	})

	m.hireDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "hire_duration_seconds",
		Help:      "Wall time of a hire including retries",
		Buckets:   m.histogramBuckets,
	})

	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "notifications_total",
		Help:      "Hire notifications by delivery result",
	}, []string{"result"})

	m.liveConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "live_connections",
		Help:      "Users with a registered live channel",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
}

// HireCompleted records the final outcome of one Hire call.
func (m *Manager) HireCompleted(outcome string, elapsed time.Duration) {
	m.hireAttempts.WithLabelValues(outcome).Inc()
	m.hireDuration.Observe(elapsed.Seconds())
}

func (m *Manager) HireRetried() {
	m.hireRetries.Inc()
}

func (m *Manager) NotificationSent(result string) {
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Manager) LiveConnections(n int) {
	m.liveConnections.Set(float64(n))
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Manager) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}
