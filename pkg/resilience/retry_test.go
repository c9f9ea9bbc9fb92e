package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestExecuteSingleAttemptByDefault(t *testing.T) {
	r := NewRetryer(DefaultRetryConfig())
	calls := 0
	result := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.Equal(t, 1, calls)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.LastError, errTransient)
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	config := DefaultRetryConfig()
	config.MaxAttempts = 4
	config.Jitter = 0
	config.Sleep = noSleep
	var delays []time.Duration
	config.OnRetry = func(attempt int, err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	calls := 0
	result := NewRetryer(config).Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	assert.True(t, result.Success)
	assert.NoError(t, result.LastError)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, delays)
	assert.Equal(t, 1500*time.Millisecond, result.TotalDelay)
}

func TestExecuteStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	config := DefaultRetryConfig()
	config.MaxAttempts = 5
	config.Sleep = noSleep
	config.ShouldRetry = func(err error) bool { return errors.Is(err, errTransient) }

	calls := 0
	result := NewRetryer(config).Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, result.LastError, permanent)
}

func TestExecuteBoundedAttempts(t *testing.T) {
	config := DefaultRetryConfig()
	config.MaxAttempts = 3
	config.Sleep = noSleep

	calls := 0
	result := NewRetryer(config).Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Attempts)
	assert.ErrorIs(t, result.LastError, errTransient)
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig()
	config.MaxAttempts = 3

	result := NewRetryer(config).Execute(ctx, func(ctx context.Context) error {
		cancel()
		return errTransient
	})

	assert.Equal(t, 1, result.Attempts)
	assert.ErrorIs(t, result.LastError, ErrContextCanceled)
}

func TestCalculateDelayCapped(t *testing.T) {
	r := NewRetryer(RetryConfig{MaxAttempts: 10, InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2})
	assert.Equal(t, time.Second, r.calculateDelay(1))
	assert.Equal(t, 2*time.Second, r.calculateDelay(2))
	assert.Equal(t, 3*time.Second, r.calculateDelay(3))
}
