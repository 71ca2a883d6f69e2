package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(t *testing.T) *CircuitBreaker {
	t.Helper()
	return NewCircuitBreaker(&CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
		MaxRequests:      2,
	}, nil)
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	ctx := context.Background()
	cb := testBreaker(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, cb.Execute(ctx, func(ctx context.Context) error { return nil }))
	}

	assert.Equal(t, StateClosed, cb.GetState())
	stats := cb.GetStats()
	assert.Equal(t, int64(5), stats.TotalRequests)
	assert.Equal(t, int64(5), stats.TotalSuccesses)
}

func TestCircuitBreaker_OpensAtFailureThreshold(t *testing.T) {
	ctx := context.Background()
	cb := testBreaker(t)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, func(ctx context.Context) error { return boom }), boom)
		assert.Equal(t, StateClosed, cb.GetState())
	}

	assert.ErrorIs(t, cb.Execute(ctx, func(ctx context.Context) error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.GetState())

	// Open circuit rejects without invoking the operation.
	called := false
	err := cb.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)
	assert.Equal(t, int64(1), cb.GetStats().TotalRejections)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	ctx := context.Background()
	cb := testBreaker(t)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error { return boom })
	}
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(60 * time.Millisecond)

	// Two successful probes close the breaker again.
	for i := 0; i < 2; i++ {
		require.NoError(t, cb.Execute(ctx, func(ctx context.Context) error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	ctx := context.Background()
	cb := testBreaker(t)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error { return boom })
	}
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(60 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(ctx, func(ctx context.Context) error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_ResetForcesClosed(t *testing.T) {
	ctx := context.Background()
	cb := testBreaker(t)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error { return boom })
	}
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(ctx, func(ctx context.Context) error { return nil }))
}
