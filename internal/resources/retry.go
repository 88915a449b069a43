package resources

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"preflight/internal/bootstrap"
	"preflight/internal/config"
	"preflight/pkg/errors"
)

// retryer implements the shared retry policy for variants facing transient
// connectivity failures. The delay before attempt n is initial * 2^n. Each
// retry appends a warning to the status describing the attempt and the
// wait; exhausting the attempts appends the final error, which forces the
// Failed state.
//
// Configuration, resource, and usage errors are never retried.
type retryer struct {
	cfg    config.RetryConfig
	status *bootstrap.Status
	logger *zap.Logger
}

func newRetryer(cfg config.RetryConfig, status *bootstrap.Status, logger *zap.Logger) retryer {
	return retryer{cfg: cfg, status: status, logger: logger}
}

// do runs fn until it succeeds, a non-retryable error occurs, or the
// attempt budget is spent. Terminal failures are recorded into the status
// before returning.
func (r retryer) do(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			cancelled := errors.NewConnectivity(
				fmt.Sprintf("%s cancelled before attempt %d", operation, attempt+1), err)
			r.status.AddError(cancelled.Error())
			return cancelled
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("operation succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt+1),
				)
			}
			return nil
		}
		lastErr = err

		if !errors.IsRetryable(err) {
			r.status.AddError(err.Error())
			return err
		}
		if attempt == r.cfg.MaxRetries {
			break
		}

		delay := r.delay(attempt)
		r.status.AddWarning(fmt.Sprintf("%s attempt %d of %d failed: %v; retrying in %s",
			operation, attempt+1, r.cfg.MaxRetries+1, err, delay))
		r.logger.Warn("retrying operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			cancelled := errors.NewConnectivity(
				fmt.Sprintf("%s cancelled during retry delay", operation), ctx.Err())
			r.status.AddError(cancelled.Error())
			return cancelled
		}
	}

	final := errors.Wrap(lastErr, fmt.Sprintf("%s failed after %d attempts", operation, r.cfg.MaxRetries+1))
	r.status.AddError(final.Error())
	return final
}

// delay computes the exponential backoff before the next attempt.
func (r retryer) delay(attempt int) time.Duration {
	initial := r.cfg.InitialDelay.Std()
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	return initial * (1 << attempt)
}
