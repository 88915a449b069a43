package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports bootstrap measurements to Prometheus. It is the metric
// sink consumed by the PerformanceMonitor and the orchestration driver.
type Metrics struct {
	phaseDuration     *prometheus.HistogramVec
	phaseOutcomes     *prometheus.CounterVec
	thresholdBreaches *prometheus.CounterVec
}

// NewMetrics creates and registers the bootstrap collectors on reg under
// the given namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "preflight"
	}
	m := &Metrics{
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each initialization phase per resource.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component", "operation"}),
		phaseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_outcomes_total",
			Help:      "Initialization phase outcomes per resource.",
		}, []string{"component", "operation", "outcome"}),
		thresholdBreaches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_operations_total",
			Help:      "Operations that exceeded their configured threshold.",
		}, []string{"component", "operation"}),
	}
	reg.MustRegister(m.phaseDuration, m.phaseOutcomes, m.thresholdBreaches)
	return m
}

// ObservePhaseDuration records one completed phase measurement.
func (m *Metrics) ObservePhaseDuration(component, operation string, elapsed time.Duration) {
	m.phaseDuration.WithLabelValues(component, operation).Observe(elapsed.Seconds())
}

// CountOutcome records a phase outcome ("success" or "failure").
func (m *Metrics) CountOutcome(component, operation, outcome string) {
	m.phaseOutcomes.WithLabelValues(component, operation, outcome).Inc()
}

// CountThresholdBreach records one slow-operation threshold breach.
func (m *Metrics) CountThresholdBreach(component, operation string) {
	m.thresholdBreaches.WithLabelValues(component, operation).Inc()
}
