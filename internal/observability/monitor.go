// Package observability provides the diagnostic components shared by the
// bootstrap core: performance measurement with slow-operation thresholds,
// error classification with a queryable history, and a generic diagnostic
// data collector.
package observability

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"preflight/pkg/errors"
)

// measurementKey identifies one timed operation of one component.
type measurementKey struct {
	component string
	operation string
}

// measurement accumulates timing for one (component, operation) pair.
type measurement struct {
	startTime     time.Time
	started       bool
	minDuration   time.Duration
	maxDuration   time.Duration
	totalDuration time.Duration
	count         int64
}

// PerformanceMonitor records start/stop timestamps keyed by
// (component, operation) and maintains min/max/average/total aggregates.
// When a registered threshold for a pair is exceeded, it emits a non-fatal
// slow-operation warning; slowness never fails the measured operation.
type PerformanceMonitor struct {
	mu           sync.RWMutex
	logger       *zap.Logger
	measurements map[measurementKey]*measurement
	thresholds   map[measurementKey]time.Duration
	metrics      *Metrics

	// now is replaceable for tests.
	now func() time.Time
}

// NewPerformanceMonitor creates a monitor. metrics may be nil when no
// Prometheus registry is wired.
func NewPerformanceMonitor(logger *zap.Logger, metrics *Metrics) *PerformanceMonitor {
	return &PerformanceMonitor{
		logger:       logger.Named("performance_monitor"),
		measurements: make(map[measurementKey]*measurement),
		thresholds:   make(map[measurementKey]time.Duration),
		metrics:      metrics,
		now:          time.Now,
	}
}

// SetThreshold registers the slow-operation threshold for a pair.
// Thresholds are configured independently of measurements and survive
// ClearMetrics.
func (m *PerformanceMonitor) SetThreshold(component, operation string, threshold time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[measurementKey{component, operation}] = threshold
}

// StartMeasurement records a start time for the pair, creating the slot if
// absent. Restarting an in-flight measurement overwrites its start time.
func (m *PerformanceMonitor) StartMeasurement(component, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := measurementKey{component, operation}
	slot, ok := m.measurements[key]
	if !ok {
		slot = &measurement{}
		m.measurements[key] = slot
	}
	slot.startTime = m.now()
	slot.started = true
}

// EndMeasurement computes the elapsed time since the matching start, updates
// the aggregates, and checks the registered threshold. Ending a measurement
// that was never started is a usage error.
func (m *PerformanceMonitor) EndMeasurement(component, operation string) (time.Duration, error) {
	m.mu.Lock()

	key := measurementKey{component, operation}
	slot, ok := m.measurements[key]
	if !ok || !slot.started {
		m.mu.Unlock()
		return 0, errors.NewUsagef("no started measurement for %s/%s", component, operation)
	}

	elapsed := m.now().Sub(slot.startTime)
	slot.started = false
	if slot.count == 0 || elapsed < slot.minDuration {
		slot.minDuration = elapsed
	}
	if elapsed > slot.maxDuration {
		slot.maxDuration = elapsed
	}
	slot.totalDuration += elapsed
	slot.count++

	threshold, hasThreshold := m.thresholds[key]
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ObservePhaseDuration(component, operation, elapsed)
	}

	if hasThreshold && elapsed > threshold {
		m.logger.Warn("slow operation detected",
			zap.String("component", component),
			zap.String("operation", operation),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold),
		)
		if m.metrics != nil {
			m.metrics.CountThresholdBreach(component, operation)
		}
	}
	return elapsed, nil
}

// Stats is the aggregate view of one (component, operation) pair.
type Stats struct {
	MinDuration     time.Duration
	MaxDuration     time.Duration
	TotalDuration   time.Duration
	AverageDuration time.Duration
	Count           int64
}

// GetStats returns the aggregates for a pair. Querying a pair that was never
// measured is a usage error, surfacing programmer mistakes instead of
// silently returning zero.
func (m *PerformanceMonitor) GetStats(component, operation string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slot, ok := m.measurements[measurementKey{component, operation}]
	if !ok || slot.count == 0 {
		return Stats{}, errors.NewUsagef("no measurements recorded for %s/%s", component, operation)
	}
	return Stats{
		MinDuration:     slot.minDuration,
		MaxDuration:     slot.maxDuration,
		TotalDuration:   slot.totalDuration,
		AverageDuration: slot.totalDuration / time.Duration(slot.count),
		Count:           slot.count,
	}, nil
}

// AverageDuration returns the mean elapsed time for the pair.
func (m *PerformanceMonitor) AverageDuration(component, operation string) (time.Duration, error) {
	stats, err := m.GetStats(component, operation)
	return stats.AverageDuration, err
}

// MinDuration returns the shortest recorded elapsed time for the pair.
func (m *PerformanceMonitor) MinDuration(component, operation string) (time.Duration, error) {
	stats, err := m.GetStats(component, operation)
	return stats.MinDuration, err
}

// MaxDuration returns the longest recorded elapsed time for the pair.
func (m *PerformanceMonitor) MaxDuration(component, operation string) (time.Duration, error) {
	stats, err := m.GetStats(component, operation)
	return stats.MaxDuration, err
}

// TotalDuration returns the summed elapsed time for the pair.
func (m *PerformanceMonitor) TotalDuration(component, operation string) (time.Duration, error) {
	stats, err := m.GetStats(component, operation)
	return stats.TotalDuration, err
}

// Count returns the number of completed measurements for the pair.
func (m *PerformanceMonitor) Count(component, operation string) (int64, error) {
	stats, err := m.GetStats(component, operation)
	return stats.Count, err
}

// ClearMetrics resets all measurements. Registered thresholds survive.
func (m *PerformanceMonitor) ClearMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.measurements = make(map[measurementKey]*measurement)
}

// Report logs the aggregates of every measured pair.
func (m *PerformanceMonitor) Report() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for key, slot := range m.measurements {
		if slot.count == 0 {
			continue
		}
		m.logger.Info("operation performance",
			zap.String("component", key.component),
			zap.String("operation", key.operation),
			zap.Duration("min", slot.minDuration),
			zap.Duration("max", slot.maxDuration),
			zap.Duration("avg", slot.totalDuration/time.Duration(slot.count)),
			zap.Int64("count", slot.count),
		)
	}
}
