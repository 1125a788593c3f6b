package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testExecutor(attempts int) *Executor {
	e := NewExecutor(attempts, zap.NewNop())
	e.interval = 0 // no sleeping in tests
	return e
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	e := testExecutor(3)
	calls := 0
	err := e.Do(context.Background(), "profile", func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RecoversAfterFailure(t *testing.T) {
	e := testExecutor(3)
	calls := 0
	err := e.Do(context.Background(), "guild-members", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	e := testExecutor(2)
	calls := 0
	err := e.Do(context.Background(), "profile", func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	e := NewExecutor(5, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Do(ctx, "profile", func(ctx context.Context) error {
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewExecutor_MinimumOneAttempt(t *testing.T) {
	e := testExecutor(0)
	calls := 0
	_ = e.Do(context.Background(), "x", func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.Equal(t, 1, calls)
}
