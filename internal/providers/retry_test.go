package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoReturnsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), nil, func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoDoesNotRetryNonRetryableKinds(t *testing.T) {
	for _, kind := range []Kind{KindAuthExpired, KindBadResponse, KindNotFound, KindInvalidInput} {
		calls := 0
		err := Do(context.Background(), nil, func(ctx context.Context) error {
			calls++
			return NewError("ads", kind, "nope", nil)
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls, string(kind))
		assert.True(t, IsKind(err, kind))
	}
}

func TestDoRetriesRateLimitedWithBackoff(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Do(context.Background(), nil, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return NewError("ads", KindRateLimited, "throttled", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
}

func TestDoDoublesDelayAcrossAttempts(t *testing.T) {
	var calls []time.Time
	err := Do(context.Background(), nil, func(ctx context.Context) error {
		calls = append(calls, time.Now())
		if len(calls) <= 3 {
			return NewError("ads", KindRateLimited, "throttled", nil)
		}
		return nil
	})

	require.NoError(t, err)
	require.Len(t, calls, 4)
	for i, want := range []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second} {
		assert.GreaterOrEqual(t, calls[i+1].Sub(calls[i]), want, "delay before attempt %d", i+2)
	}
}

func TestDoHonorsLargerRetryAfter(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Do(context.Background(), nil, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			pe := NewError("ads", KindRateLimited, "throttled", nil)
			pe.RetryAfter = 700 * time.Millisecond
			return pe
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 700*time.Millisecond)
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, nil, func(ctx context.Context) error {
		calls++
		return NewError("courier", KindNetwork, "unreachable", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsKind(err, KindNetwork))
	assert.ErrorIs(t, errors.Unwrap(err), context.Canceled)
}
