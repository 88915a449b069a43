package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/pkg/errors"
)

func TestStatusLifecycle(t *testing.T) {
	t.Run("starts pending", func(t *testing.T) {
		s := NewStatus()
		assert.Equal(t, StatePending, s.State())
		assert.True(t, s.IsPending())
		assert.False(t, s.IsSuccess())
	})

	t.Run("happy path reaches complete", func(t *testing.T) {
		s := NewStatus()
		require.NoError(t, s.SetState(StateInitializing))
		assert.True(t, s.IsInitializing())

		require.NoError(t, s.MarkInitialized())
		assert.True(t, s.IsInitialized())
		assert.True(t, s.IsSuccess())

		require.NoError(t, s.MarkComplete())
		assert.True(t, s.IsComplete())
		assert.True(t, s.IsSuccess())
	})

	t.Run("warnings do not affect state", func(t *testing.T) {
		s := NewStatus()
		s.AddWarning("first attempt failed")
		s.AddWarning("second attempt failed")

		assert.Equal(t, StatePending, s.State())
		assert.Len(t, s.Warnings(), 2)
		require.NoError(t, s.MarkInitialized())
	})
}

func TestStatusErrorForcesFailed(t *testing.T) {
	s := NewStatus()
	require.NoError(t, s.SetState(StateInitializing))

	s.AddError("connection refused")

	assert.Equal(t, StateFailed, s.State())
	assert.True(t, s.IsFailed())
	assert.Equal(t, []string{"connection refused"}, s.Errors())
}

func TestStatusCannotSucceedAfterError(t *testing.T) {
	t.Run("mark initialized", func(t *testing.T) {
		s := NewStatus()
		s.AddError("boom")

		err := s.MarkInitialized()
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))
		assert.Equal(t, StateFailed, s.State())
	})

	t.Run("mark complete", func(t *testing.T) {
		s := NewStatus()
		s.AddError("boom")

		err := s.MarkComplete()
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))
	})

	t.Run("via SetState", func(t *testing.T) {
		s := NewStatus()
		s.AddError("boom")

		err := s.SetState(StateInitialized)
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))
	})
}

func TestStatusTiming(t *testing.T) {
	s := NewStatus()

	_, ok := s.Duration()
	assert.False(t, ok, "duration should be unavailable before timing")

	s.StartTiming()
	_, ok = s.Duration()
	assert.False(t, ok, "duration should be unavailable before end")

	time.Sleep(time.Millisecond)
	s.EndTiming()

	d, ok := s.Duration()
	require.True(t, ok)
	assert.Greater(t, d, time.Duration(0))
}

func TestStatusData(t *testing.T) {
	s := NewStatus()
	s.AddData("server_version", "16.2")
	s.AddData("server_version", "16.3") // last write wins

	v, ok := s.Data("server_version")
	require.True(t, ok)
	assert.Equal(t, "16.3", v)

	_, ok = s.Data("missing")
	assert.False(t, ok)
}

func TestStatusSnapshot(t *testing.T) {
	s := NewStatus()
	s.StartTiming()
	s.AddData("host", "localhost")
	s.AddWarning("slow start")
	s.AddError("gave up")
	s.EndTiming()

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "localhost", snap.Data["host"])
	assert.Equal(t, []string{"slow start"}, snap.Warnings)
	assert.Equal(t, []string{"gave up"}, snap.Errors)

	// The snapshot is detached from the live status.
	s.AddWarning("later")
	assert.Len(t, snap.Warnings, 1)
}
