package borrow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_retryWithBackoff_SucceedsAfterConflicts(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errConflict
		}
		return nil
	}, WithBaseDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func Test_retryWithBackoff_StopsAtMaxAttempts(t *testing.T) {
	calls := 0
	var retries []int
	err := retryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		return errConflict
	}, WithMaxAttempts(4), WithBaseDelay(0), withOnRetry(func(attempt int, _ error) {
		retries = append(retries, attempt)
	}))

	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []int{1, 2, 3}, retries)
}

func Test_retryWithBackoff_NonConflictFailsFast(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		return ErrDuplicateLoan
	})

	assert.ErrorIs(t, err, ErrDuplicateLoan)
	assert.Equal(t, 1, calls)
}

func Test_retryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryWithBackoff(ctx, func(context.Context) error {
		calls++
		cancel()
		return errConflict
	}, WithBaseDelay(time.Hour))

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func Test_RetryOptions_Validation(t *testing.T) {
	noop := func(context.Context) error { return nil }
	assert.ErrorIs(t, retryWithBackoff(context.Background(), noop, WithMaxAttempts(0)), ErrInvalidMaxAttempts)
	assert.ErrorIs(t, retryWithBackoff(context.Background(), noop, WithBaseDelay(-1)), ErrNegativeBaseDelay)
	assert.ErrorIs(t, retryWithBackoff(context.Background(), noop, WithJitterFactor(1.5)), ErrInvalidJitterFactor)
}
