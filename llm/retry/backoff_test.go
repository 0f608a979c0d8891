package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/tokenfsm/types"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func retryableErr() error {
	return types.NewError(types.ErrRateLimited, "busy").WithRetryable(true)
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	r := NewRetryer(fastPolicy(3), zaptest.NewLogger(t))

	calls := 0
	got, err := Do(context.Background(), r, func(context.Context) ([]float64, error) {
		calls++
		return []float64{1, 2}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)
	assert.Equal(t, 1, calls, "应该只调用一次")
}

func TestDo_RetryThenSuccess(t *testing.T) {
	var retries []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) }
	r := NewRetryer(p, zap.NewNop())

	calls := 0
	got, err := Do(context.Background(), r, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, retryableErr()
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_RetriesExhaustedReturnsLastError(t *testing.T) {
	r := NewRetryer(fastPolicy(2), zap.NewNop())

	calls := 0
	_, err := Do(context.Background(), r, func(context.Context) (int, error) {
		calls++
		return 0, retryableErr()
	})

	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrRateLimited))
	assert.Equal(t, 3, calls, "初始调用 + 2 次重试")
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	r := NewRetryer(fastPolicy(5), zap.NewNop())

	calls := 0
	plain := errors.New("bad request")
	_, err := Do(context.Background(), r, func(context.Context) (int, error) {
		calls++
		return 0, plain
	})

	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, calls, "不应该重试")
}

func TestDo_CustomClassifier(t *testing.T) {
	transient := errors.New("transient")
	p := fastPolicy(2)
	p.Retryable = func(err error) bool { return errors.Is(err, transient) }
	r := NewRetryer(p, zap.NewNop())

	calls := 0
	_, err := Do(context.Background(), r, func(context.Context) (int, error) {
		calls++
		return 0, transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	p := fastPolicy(5)
	p.InitialDelay = time.Second
	p.MaxDelay = time.Second
	r := NewRetryer(p, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := Do(ctx, r, func(context.Context) (int, error) {
		calls++
		return 0, retryableErr()
	})

	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCancelled))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestRetryer_Delay(t *testing.T) {
	r := NewRetryer(Policy{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}, nil)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryer_JitterStaysInBounds(t *testing.T) {
	r := NewRetryer(Policy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}, nil)

	for range 100 {
		d := r.Delay(3)
		assert.GreaterOrEqual(t, d, 300*time.Millisecond)
		assert.LessOrEqual(t, d, 500*time.Millisecond)
	}
}

func TestNewRetryer_NormalizesPolicy(t *testing.T) {
	r := NewRetryer(Policy{MaxRetries: -1, Multiplier: 0.5}, nil)
	p := r.Policy()

	def := DefaultPolicy()
	assert.Equal(t, 0, p.MaxRetries)
	assert.Equal(t, def.InitialDelay, p.InitialDelay)
	assert.Equal(t, def.MaxDelay, p.MaxDelay)
	assert.Equal(t, def.Multiplier, p.Multiplier)
	assert.NotNil(t, p.Retryable)
}
