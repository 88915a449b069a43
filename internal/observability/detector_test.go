package observability

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"preflight/pkg/errors"
)

func TestDetectorClassification(t *testing.T) {
	t.Run("first matching pattern wins", func(t *testing.T) {
		d := NewErrorDetector(zap.NewNop())
		require.NoError(t, d.RegisterErrorPattern(`connection`, func(error) string { return "network" }))
		require.NoError(t, d.RegisterErrorPattern(`connection refused`, func(error) string { return "refused" }))

		rec := d.DetectError("database", stderrors.New("connection refused"))
		assert.Equal(t, "network", rec.Type)
	})

	t.Run("falls back to the error category", func(t *testing.T) {
		d := NewErrorDetector(zap.NewNop())
		rec := d.DetectError("database", errors.NewConnectivity("unreachable", nil))
		assert.Equal(t, string(errors.ErrorTypeConnectivity), rec.Type)
	})

	t.Run("foreign errors classify by concrete type", func(t *testing.T) {
		d := NewErrorDetector(zap.NewNop())
		rec := d.DetectError("database", fmt.Errorf("plain failure"))
		assert.Equal(t, "*errors.errorString", rec.Type)
	})

	t.Run("invalid pattern is a usage error", func(t *testing.T) {
		d := NewErrorDetector(zap.NewNop())
		err := d.RegisterErrorPattern(`(`, func(error) string { return "broken" })
		require.Error(t, err)
		assert.True(t, errors.IsUsage(err))
	})

	t.Run("code is carried from the error", func(t *testing.T) {
		d := NewErrorDetector(zap.NewNop())
		err := errors.WithCode(errors.NewConnectivity("unreachable", nil), "DB_UNREACHABLE")
		rec := d.DetectError("database", err)
		assert.Equal(t, "DB_UNREACHABLE", rec.Code)
	})
}

func TestDetectorHandlers(t *testing.T) {
	d := NewErrorDetector(zap.NewNop())
	require.NoError(t, d.RegisterErrorPattern(`timeout`, func(error) string { return "timeout" }))

	var handled []Record
	d.RegisterErrorHandler("timeout", func(r Record) { handled = append(handled, r) })

	d.DetectError("network", stderrors.New("dial timeout"))
	d.DetectError("network", stderrors.New("permission denied"))

	require.Len(t, handled, 1, "only the registered type dispatches")
	assert.Equal(t, "network", handled[0].Component)
	assert.Equal(t, "dial timeout", handled[0].Message)

	t.Run("last handler registration wins", func(t *testing.T) {
		replaced := false
		d.RegisterErrorHandler("timeout", func(Record) { replaced = true })
		d.DetectError("network", stderrors.New("read timeout"))
		assert.True(t, replaced)
		assert.Len(t, handled, 1)
	})
}

func TestDetectorHistory(t *testing.T) {
	d := NewErrorDetector(zap.NewNop())

	assert.False(t, d.HasErrors())
	_, ok := d.LastError()
	assert.False(t, ok)

	d.DetectError("database", stderrors.New("first"))
	d.DetectError("cache", stderrors.New("second"))
	d.DetectError("database", stderrors.New("third"))

	assert.True(t, d.HasErrors())
	assert.Equal(t, 3, d.Count())
	assert.Equal(t, 2, d.CountFor("database"))

	last, ok := d.LastError()
	require.True(t, ok)
	assert.Equal(t, "third", last.Message)

	lastCache, ok := d.LastErrorFor("cache")
	require.True(t, ok)
	assert.Equal(t, "second", lastCache.Message)

	history := d.HistoryFor("database")
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Message)
	assert.Equal(t, "third", history[1].Message)

	t.Run("records carry caller location and id", func(t *testing.T) {
		rec := d.DetectError("queue", stderrors.New("publish failed"))
		assert.NotEmpty(t, rec.ID)
		assert.Contains(t, rec.File, "detector_test.go")
		assert.False(t, rec.Timestamp.IsZero())
	})

	t.Run("clear", func(t *testing.T) {
		d.Clear()
		assert.Zero(t, d.Count())
		assert.False(t, d.HasErrors())
	})
}

func TestDetectorHistoryBound(t *testing.T) {
	d := NewErrorDetector(zap.NewNop())
	d.limit = 10

	for i := 0; i < 25; i++ {
		d.DetectError("database", fmt.Errorf("failure %d", i))
	}

	assert.Equal(t, 10, d.Count())
	history := d.History()
	assert.Equal(t, "failure 15", history[0].Message)
	assert.Equal(t, "failure 24", history[9].Message)
}
