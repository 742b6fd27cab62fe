package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains authorization metrics.
type Metrics struct {
	// evaluationTotal counts total rule set evaluations.
	evaluationTotal *prometheus.CounterVec

	// evaluationDuration measures evaluation duration.
	evaluationDuration prometheus.Histogram

	// decisionTotal counts decisions per rule.
	decisionTotal *prometheus.CounterVec

	// cacheHits counts decision cache hits.
	cacheHits prometheus.Counter

	// cacheMisses counts decision cache misses.
	cacheMisses prometheus.Counter

	// ruleCount tracks the number of rules in the active rule set.
	ruleCount prometheus.Gauge
}

// NewMetrics creates new authorization metrics registered with the default
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

	m.evaluationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "evaluation_total",
			Help:      "Total number of authorization evaluations",
		},
		[]string{"result"},
	)

	m.evaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "evaluation_duration_seconds",
			Help:      "Authorization evaluation duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	m.decisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decision_total",
			Help:      "Total number of authorization decisions per rule",
		},
		[]string{"decision", "rule"},
	)

	m.cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "cache_hits_total",
			Help:      "Total number of decision cache hits",
		},
	)

	m.cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "cache_misses_total",
			Help:      "Total number of decision cache misses",
		},
	)

	m.ruleCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "rule_count",
			Help:      "Number of rules in the active rule set",
		},
	)

	collectors := []prometheus.Collector{
		m.evaluationTotal,
		m.evaluationDuration,
		m.decisionTotal,
		m.cacheHits,
		m.cacheMisses,
		m.ruleCount,
	}
	for _, c := range collectors {
		_ = registerer.Register(c)
	}

	return m
}

// Init pre-initializes common label combinations with zero values so the
// series appear in scrape output immediately after startup. Prometheus *Vec
// types only emit metric lines after WithLabelValues() is called at least
// once. Idempotent.
func (m *Metrics) Init() {
	if m == nil {
		return
	}
	for _, result := range []string{"allowed", "denied"} {
		m.evaluationTotal.WithLabelValues(result)
	}
}

// RecordEvaluation records an authorization evaluation.
func (m *Metrics) RecordEvaluation(result string, duration time.Duration) {
	if m == nil || m.evaluationTotal == nil {
		return
	}
	m.evaluationTotal.WithLabelValues(result).Inc()
	m.evaluationDuration.Observe(duration.Seconds())
}

// RecordDecision records a decision attributed to a rule.
func (m *Metrics) RecordDecision(decision, rule string) {
	if m == nil || m.decisionTotal == nil {
		return
	}
	m.decisionTotal.WithLabelValues(decision, rule).Inc()
}

// RecordCacheHit records a decision cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.Inc()
}

// RecordCacheMiss records a decision cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil || m.cacheMisses == nil {
		return
	}
	m.cacheMisses.Inc()
}

// SetRuleCount sets the active rule count.
func (m *Metrics) SetRuleCount(count int) {
	if m == nil || m.ruleCount == nil {
		return
	}
	m.ruleCount.Set(float64(count))
}
