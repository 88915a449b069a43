package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/pkg/errors"
)

func TestCollectorData(t *testing.T) {
	c := NewDataCollector()

	c.CollectData("database", "server_version", "16.3")
	c.CollectData("database", "host", "localhost")
	c.CollectData("cache", "addr", "localhost:6379")

	t.Run("lookup", func(t *testing.T) {
		v, ok := c.GetData("database", "server_version")
		require.True(t, ok)
		assert.Equal(t, "16.3", v)

		_, ok = c.GetData("database", "missing")
		assert.False(t, ok)

		_, ok = c.GetData("unknown_component", "host")
		assert.False(t, ok)
	})

	t.Run("all data is a copy", func(t *testing.T) {
		all, ok := c.GetAllData("database")
		require.True(t, ok)
		assert.Len(t, all, 2)

		all["injected"] = true
		_, ok = c.GetData("database", "injected")
		assert.False(t, ok, "mutating the returned map must not affect the store")
	})

	t.Run("overwrite", func(t *testing.T) {
		c.CollectData("database", "server_version", "17.0")
		v, _ := c.GetData("database", "server_version")
		assert.Equal(t, "17.0", v)
	})
}

func TestCollectorMetrics(t *testing.T) {
	c := NewDataCollector()

	c.CollectMetric("database", "pool_size", 10)
	c.CollectMetric("database", "initialization_seconds", 1.5)

	v, ok := c.GetMetric("database", "pool_size")
	require.True(t, ok)
	assert.Equal(t, 10.0, v)

	all, ok := c.GetMetrics("database")
	require.True(t, ok)
	assert.Len(t, all, 2)

	// The metric store is independent of the data store.
	_, ok = c.GetData("database", "pool_size")
	assert.False(t, ok)
}

func TestCollectorTimers(t *testing.T) {
	t.Run("elapsed seconds", func(t *testing.T) {
		c := NewDataCollector()
		start := time.Unix(1000, 0)
		c.now = func() time.Time { return start }
		c.StartTimer("database", "initialization")

		c.now = func() time.Time { return start.Add(1500 * time.Millisecond) }
		seconds, err := c.StopTimer("database", "initialization")
		require.NoError(t, err)
		assert.Equal(t, 1.5, seconds)
	})

	t.Run("stop without start is a usage error", func(t *testing.T) {
		c := NewDataCollector()
		_, err := c.StopTimer("database", "never_started")
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))
		assert.Contains(t, err.Error(), "database/never_started")
	})

	t.Run("stop consumes the timer", func(t *testing.T) {
		c := NewDataCollector()
		c.StartTimer("cache", "warmup")
		_, err := c.StopTimer("cache", "warmup")
		require.NoError(t, err)

		_, err = c.StopTimer("cache", "warmup")
		require.Error(t, err)
	})
}

func TestCollectorClearData(t *testing.T) {
	c := NewDataCollector()
	c.CollectData("database", "host", "localhost")
	c.CollectMetric("database", "pool_size", 10)
	c.StartTimer("database", "initialization")

	c.ClearData()

	_, ok := c.GetData("database", "host")
	assert.False(t, ok)
	_, ok = c.GetMetrics("database")
	assert.False(t, ok)
	_, err := c.StopTimer("database", "initialization")
	assert.Error(t, err, "pending timers are wiped with everything else")
}
