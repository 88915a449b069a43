package resources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"preflight/internal/bootstrap"
	"preflight/internal/config"
	"preflight/pkg/errors"
)

func testRetryer(maxRetries int) (retryer, *bootstrap.Status) {
	status := bootstrap.NewStatus()
	cfg := config.RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: config.Duration(time.Millisecond),
	}
	return newRetryer(cfg, status, zap.NewNop()), status
}

func TestRetryerRecoversWithinBudget(t *testing.T) {
	r, status := testRetryer(2)

	attempts := 0
	err := r.do(context.Background(), "probe", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.NewConnectivity("unreachable", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "two retries after the first attempt")
	// Each retry leaves a warning; a recovered operation leaves no errors.
	assert.Len(t, status.Warnings(), 2)
	assert.Empty(t, status.Errors())
	assert.NotEqual(t, bootstrap.StateFailed, status.State())
}

func TestRetryerExhaustsBudget(t *testing.T) {
	r, status := testRetryer(2)

	attempts := 0
	err := r.do(context.Background(), "probe", func(ctx context.Context) error {
		attempts++
		return errors.NewConnectivity("unreachable", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts, "max retries of 2 means 3 attempts")
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Len(t, status.Warnings(), 2)
	require.Len(t, status.Errors(), 1)
	assert.True(t, status.IsFailed())
}

func TestRetryerWarningsDescribeAttempts(t *testing.T) {
	r, status := testRetryer(1)

	_ = r.do(context.Background(), "database connection probe", func(ctx context.Context) error {
		return errors.NewConnectivity("unreachable", nil)
	})

	warnings := status.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "database connection probe attempt 1 of 2 failed")
	assert.Contains(t, warnings[0], "retrying in")
}

func TestRetryerStopsOnNonRetryable(t *testing.T) {
	for name, err := range map[string]error{
		"configuration": errors.NewConfiguration("missing host"),
		"resource":      errors.NewResourcef("permission mismatch"),
		"usage":         errors.NewUsage("bad call"),
	} {
		t.Run(name, func(t *testing.T) {
			r, status := testRetryer(5)

			attempts := 0
			got := r.do(context.Background(), "probe", func(ctx context.Context) error {
				attempts++
				return err
			})

			require.Error(t, got)
			assert.Equal(t, 1, attempts, "non-retryable errors must not be retried")
			assert.Empty(t, status.Warnings())
			assert.True(t, status.IsFailed())
		})
	}
}

func TestRetryerForeignErrorsAreRetryable(t *testing.T) {
	r, _ := testRetryer(1)

	attempts := 0
	_ = r.do(context.Background(), "probe", func(ctx context.Context) error {
		attempts++
		return context.DeadlineExceeded
	})
	assert.Equal(t, 2, attempts, "driver errors count as transient")
}

func TestRetryerHonorsCancellation(t *testing.T) {
	t.Run("cancelled before first attempt", func(t *testing.T) {
		r, status := testRetryer(3)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := r.do(ctx, "probe", func(ctx context.Context) error {
			t.Fatal("must not run after cancellation")
			return nil
		})
		require.Error(t, err)
		assert.True(t, status.IsFailed())
	})

	t.Run("cancelled during backoff", func(t *testing.T) {
		status := bootstrap.NewStatus()
		cfg := config.RetryConfig{MaxRetries: 3, InitialDelay: config.Duration(time.Hour)}
		r := newRetryer(cfg, status, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		err := r.do(ctx, "probe", func(ctx context.Context) error {
			cancel()
			return errors.NewConnectivity("unreachable", nil)
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cancelled during retry delay")
	})
}

func TestRetryerBackoffDoubles(t *testing.T) {
	r, _ := testRetryer(0)
	r.cfg.InitialDelay = config.Duration(100 * time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, r.delay(0))
	assert.Equal(t, 200*time.Millisecond, r.delay(1))
	assert.Equal(t, 400*time.Millisecond, r.delay(2))
	assert.Equal(t, 800*time.Millisecond, r.delay(3))
}
