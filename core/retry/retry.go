package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrAttemptsExhausted wraps the last error after the configured number of
// attempts failed. Callers use errors.Is to recognize it and skip the
// affected unit (one guild, one user) without aborting the whole pass.
var ErrAttemptsExhausted = errors.New("request attempts exhausted")

// Executor runs remote requests with a bounded retry loop. Between attempts
// it sleeps for a fixed interval; the full loop for one request can
// therefore block up to MaxAttempts seconds.
type Executor struct {
	maxAttempts int
	interval    time.Duration
	log         *zap.Logger
}

// NewExecutor creates an executor. maxAttempts below 1 is treated as 1.
func NewExecutor(maxAttempts int, log *zap.Logger) *Executor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Executor{maxAttempts: maxAttempts, interval: time.Second, log: log}
}

// Do runs fn until it succeeds or the attempt budget is spent.
// The returned error satisfies errors.Is(err, ErrAttemptsExhausted) on budget
// exhaustion, with the last underlying error wrapped for logging.
func (e *Executor) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		e.log.Debug("request failed",
			zap.String("request", name),
			zap.Int("attempt", attempt),
			zap.Bool("retry", attempt < e.maxAttempts),
			zap.Error(lastErr))
		if attempt < e.maxAttempts {
			select {
			case <-time.After(e.interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	e.log.Error("request attempts exhausted",
		zap.String("request", name),
		zap.Int("attempts", e.maxAttempts),
		zap.Error(lastErr))
	return fmt.Errorf("%w: %s: %v", ErrAttemptsExhausted, name, lastErr)
}
