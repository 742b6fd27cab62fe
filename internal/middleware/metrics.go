package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains server interceptor metrics.
type Metrics struct {
	// requestsTotal counts handled RPCs per method and status code.
	requestsTotal *prometheus.CounterVec

	// requestDuration measures RPC handling duration per method.
	requestDuration *prometheus.HistogramVec

	// inflightRequests tracks RPCs currently being handled.
	inflightRequests prometheus.Gauge

	// panicsRecovered counts panics recovered in handlers.
	panicsRecovered prometheus.Counter

	// rateLimitRejected counts RPCs rejected by the rate limiter.
	rateLimitRejected *prometheus.CounterVec
}

// NewMetrics creates new interceptor metrics registered with the default
// registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Metrics instance with a custom
// registerer.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "grpcguard"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of handled RPCs per method and code",
		},
		[]string{"method", "code"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "RPC handling duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method"},
	)

	m.inflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "inflight_requests",
			Help:      "Number of RPCs currently being handled",
		},
	)

	m.panicsRecovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "panics_recovered_total",
			Help:      "Total number of panics recovered in handlers",
		},
	)

	m.rateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "rate_limit_rejected_total",
			Help:      "Total number of RPCs rejected by the rate limiter",
		},
		[]string{"method"},
	)

	collectors := []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.inflightRequests,
		m.panicsRecovered,
		m.rateLimitRejected,
	}
	for _, c := range collectors {
		_ = registerer.Register(c)
	}

	return m
}

// RecordRequest records a handled RPC.
func (m *Metrics) RecordRequest(method, code string, duration time.Duration) {
	if m == nil || m.requestsTotal == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, code).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// IncInflight increments the inflight RPC gauge.
func (m *Metrics) IncInflight() {
	if m == nil || m.inflightRequests == nil {
		return
	}
	m.inflightRequests.Inc()
}

// DecInflight decrements the inflight RPC gauge.
func (m *Metrics) DecInflight() {
	if m == nil || m.inflightRequests == nil {
		return
	}
	m.inflightRequests.Dec()
}

// RecordPanic records a recovered panic.
func (m *Metrics) RecordPanic() {
	if m == nil || m.panicsRecovered == nil {
		return
	}
	m.panicsRecovered.Inc()
}

// RecordRateLimitRejection records an RPC rejected by the rate limiter.
func (m *Metrics) RecordRateLimitRejection(method string) {
	if m == nil || m.rateLimitRejected == nil {
		return
	}
	m.rateLimitRejected.WithLabelValues(method).Inc()
}
