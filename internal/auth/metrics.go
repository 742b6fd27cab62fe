package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains authentication metrics.
type Metrics struct {
	// requestsTotal counts authentication attempts.
	requestsTotal *prometheus.CounterVec

	// requestDuration measures authentication duration.
	requestDuration *prometheus.HistogramVec

	// failuresTotal counts authentication failures by reason.
	failuresTotal *prometheus.CounterVec
}

// NewMetrics creates new authentication metrics registered with the default
// registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Metrics instance with a custom registerer.
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
			Subsystem: "auth",
			Name:      "requests_total",
			Help:      "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "request_duration_seconds",
			Help:      "Authentication duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method"},
	)

	m.failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Total number of authentication failures",
		},
		[]string{"method", "reason"},
	)

	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration, m.failuresTotal} {
		_ = registerer.Register(c)
	}

	return m
}

// Init pre-initializes common label combinations with zero values so the
// series appear in scrape output immediately after startup.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	for _, method := range []string{"jwt", "basic", "preauth", "anonymous"} {
		for _, result := range []string{"success", "failure"} {
			m.requestsTotal.WithLabelValues(method, result)
		}
		m.requestDuration.WithLabelValues(method)
	}
}

// RecordRequest records an authentication attempt.
func (m *Metrics) RecordRequest(method, result string, duration time.Duration) {
	if m == nil || m.requestsTotal == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, result).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordFailure records an authentication failure.
func (m *Metrics) RecordFailure(method, reason string) {
	if m == nil || m.failuresTotal == nil {
		return
	}
	m.failuresTotal.WithLabelValues(method, reason).Inc()
}
