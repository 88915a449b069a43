package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"preflight/pkg/errors"
)

// fakeClock advances by a fixed step on every reading, which makes elapsed
// times deterministic.
type fakeClock struct {
	current time.Time
	step    time.Duration
}

func (c *fakeClock) now() time.Time {
	t := c.current
	c.current = c.current.Add(c.step)
	return t
}

func newTestMonitor(step time.Duration) *PerformanceMonitor {
	m := NewPerformanceMonitor(zap.NewNop(), nil)
	clock := &fakeClock{current: time.Unix(1000, 0), step: step}
	m.now = clock.now
	return m
}

func TestMonitorMeasurement(t *testing.T) {
	t.Run("single measurement", func(t *testing.T) {
		m := newTestMonitor(50 * time.Millisecond)
		m.StartMeasurement("database", "test_connection")

		elapsed, err := m.EndMeasurement("database", "test_connection")
		require.NoError(t, err)
		assert.Equal(t, 50*time.Millisecond, elapsed)

		stats, err := m.GetStats("database", "test_connection")
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Count)
		// With one sample min, max, total, and average all coincide.
		assert.Equal(t, elapsed, stats.MinDuration)
		assert.Equal(t, elapsed, stats.MaxDuration)
		assert.Equal(t, elapsed, stats.TotalDuration)
		assert.Equal(t, elapsed, stats.AverageDuration)
	})

	t.Run("aggregates across measurements", func(t *testing.T) {
		m := NewPerformanceMonitor(zap.NewNop(), nil)
		samples := []time.Duration{10 * time.Millisecond, 30 * time.Millisecond, 20 * time.Millisecond}
		current := time.Unix(1000, 0)
		for _, d := range samples {
			start := current
			m.now = func() time.Time { return start }
			m.StartMeasurement("cache", "initialize")
			end := start.Add(d)
			m.now = func() time.Time { return end }
			_, err := m.EndMeasurement("cache", "initialize")
			require.NoError(t, err)
			current = end
		}

		stats, err := m.GetStats("cache", "initialize")
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.Count)
		assert.Equal(t, 10*time.Millisecond, stats.MinDuration)
		assert.Equal(t, 30*time.Millisecond, stats.MaxDuration)
		assert.Equal(t, 60*time.Millisecond, stats.TotalDuration)
		assert.Equal(t, 20*time.Millisecond, stats.AverageDuration)
	})

	t.Run("convenience accessors", func(t *testing.T) {
		m := newTestMonitor(25 * time.Millisecond)
		m.StartMeasurement("network", "initialize")
		_, err := m.EndMeasurement("network", "initialize")
		require.NoError(t, err)

		count, err := m.Count("network", "initialize")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		min, err := m.MinDuration("network", "initialize")
		require.NoError(t, err)
		max, err := m.MaxDuration("network", "initialize")
		require.NoError(t, err)
		assert.Equal(t, min, max)
	})
}

func TestMonitorUsageErrors(t *testing.T) {
	m := newTestMonitor(time.Millisecond)

	t.Run("end before start", func(t *testing.T) {
		_, err := m.EndMeasurement("database", "never_started")
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))
		assert.Contains(t, err.Error(), "database/never_started")
	})

	t.Run("end twice", func(t *testing.T) {
		m.StartMeasurement("database", "initialize")
		_, err := m.EndMeasurement("database", "initialize")
		require.NoError(t, err)

		_, err = m.EndMeasurement("database", "initialize")
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))
	})

	t.Run("stats for unmeasured pair", func(t *testing.T) {
		_, err := m.GetStats("database", "unmeasured")
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))

		_, err = m.AverageDuration("database", "unmeasured")
		assert.True(t, errors.IsUsage(err))
	})
}

func TestMonitorClearMetrics(t *testing.T) {
	m := newTestMonitor(time.Millisecond)
	m.SetThreshold("database", "initialize", time.Nanosecond)

	m.StartMeasurement("database", "initialize")
	_, err := m.EndMeasurement("database", "initialize")
	require.NoError(t, err)

	m.ClearMetrics()

	_, err = m.GetStats("database", "initialize")
	require.Error(t, err, "measurements must be gone after clear")

	// The threshold survives: a new measurement still trips it.
	m.StartMeasurement("database", "initialize")
	elapsed, err := m.EndMeasurement("database", "initialize")
	require.NoError(t, err)
	assert.Greater(t, elapsed, time.Nanosecond)

	m.mu.RLock()
	_, ok := m.thresholds[measurementKey{"database", "initialize"}]
	m.mu.RUnlock()
	assert.True(t, ok, "threshold must survive ClearMetrics")
}
