package observability

import (
	"sync"
	"time"

	"preflight/pkg/errors"
)

// timerKey identifies one named timer of one component.
type timerKey struct {
	component string
	operation string
}

// DataCollector is a generic keyed store for diagnostic values, numeric
// metrics, and named timers, scoped per component and independent of any
// specific resource type.
type DataCollector struct {
	mu      sync.RWMutex
	data    map[string]map[string]any
	metrics map[string]map[string]float64
	timers  map[timerKey]time.Time

	now func() time.Time
}

// NewDataCollector creates an empty collector.
func NewDataCollector() *DataCollector {
	return &DataCollector{
		data:    make(map[string]map[string]any),
		metrics: make(map[string]map[string]float64),
		timers:  make(map[timerKey]time.Time),
		now:     time.Now,
	}
}

// CollectData stores a free-form diagnostic value for a component.
func (c *DataCollector) CollectData(component, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data[component] == nil {
		c.data[component] = make(map[string]any)
	}
	c.data[component][key] = value
}

// CollectMetric stores a numeric metric for a component. The metric store is
// independent of the free-form data store.
func (c *DataCollector) CollectMetric(component, metric string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.metrics[component] == nil {
		c.metrics[component] = make(map[string]float64)
	}
	c.metrics[component][metric] = value
}

// StartTimer starts a named timer for a component operation.
func (c *DataCollector) StartTimer(component, operation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers[timerKey{component, operation}] = c.now()
}

// StopTimer stops a named timer and returns the elapsed seconds. Stopping a
// timer that was never started is a usage error.
func (c *DataCollector) StopTimer(component, operation string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := timerKey{component, operation}
	start, ok := c.timers[key]
	if !ok {
		return 0, errors.NewUsagef("timer %s/%s was never started", component, operation)
	}
	delete(c.timers, key)
	return c.now().Sub(start).Seconds(), nil
}

// GetData returns the diagnostic value stored for a component under key.
// The boolean is false when the component or key is absent.
func (c *DataCollector) GetData(component, key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	values, ok := c.data[component]
	if !ok {
		return nil, false
	}
	v, ok := values[key]
	return v, ok
}

// GetAllData returns a copy of every diagnostic value for a component.
func (c *DataCollector) GetAllData(component string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	values, ok := c.data[component]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, true
}

// GetMetric returns one numeric metric for a component.
func (c *DataCollector) GetMetric(component, metric string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	values, ok := c.metrics[component]
	if !ok {
		return 0, false
	}
	v, ok := values[metric]
	return v, ok
}

// GetMetrics returns a copy of every numeric metric for a component.
func (c *DataCollector) GetMetrics(component string) (map[string]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	values, ok := c.metrics[component]
	if !ok {
		return nil, false
	}
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, true
}

// ClearData wipes the data, metric, and timer stores atomically.
func (c *DataCollector) ClearData() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]map[string]any)
	c.metrics = make(map[string]map[string]float64)
	c.timers = make(map[timerKey]time.Time)
}
