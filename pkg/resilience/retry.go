// Package resilience provides bounded retry with exponential backoff for
// provider calls.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrContextCanceled is reported when the context ends between attempts
var ErrContextCanceled = errors.New("context canceled during retry")

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // 0-1, percentage of delay to randomize

	// ShouldRetry decides whether an error is worth another attempt. Nil retries everything.
	ShouldRetry func(error) bool
	// OnRetry is called before each backoff wait
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep waits between attempts; nil uses a timer honouring ctx
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns a single attempt with backoff settings ready for
// callers that raise MaxAttempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  1,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Retryer implements retry logic with exponential backoff
type Retryer struct {
	config RetryConfig
}

// NewRetryer creates a new retryer with the given configuration
func NewRetryer(config RetryConfig) *Retryer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 500 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 10 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Sleep == nil {
		config.Sleep = sleep
	}

	return &Retryer{config: config}
}

// MaxAttempts returns the configured attempt bound
func (r *Retryer) MaxAttempts() int {
	return r.config.MaxAttempts
}

// RetryResult contains the result of a retry operation
type RetryResult struct {
	Attempts   int
	LastError  error
	TotalDelay time.Duration
	Success    bool
}

// Execute runs fn until it succeeds, returns a non-retryable error, or the
// attempt bound is reached.
func (r *Retryer) Execute(ctx context.Context, fn func(context.Context) error) RetryResult {
	result := RetryResult{}

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		if ctx.Err() != nil {
			result.LastError = ErrContextCanceled
			return result
		}

		err := fn(ctx)
		if err == nil {
			result.Success = true
			result.LastError = nil
			return result
		}
		result.LastError = err

		if attempt == r.config.MaxAttempts || !r.shouldRetry(err) {
			return result
		}

		delay := r.calculateDelay(attempt)
		result.TotalDelay += delay
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if err := r.config.Sleep(ctx, delay); err != nil {
			result.LastError = ErrContextCanceled
			return result
		}
	}

	return result
}

func (r *Retryer) shouldRetry(err error) bool {
	if r.config.ShouldRetry != nil {
		return r.config.ShouldRetry(err)
	}
	return true
}

// calculateDelay calculates the delay for the given attempt
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	// Exponential backoff: initialDelay * multiplier^(attempt-1)
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))

	if r.config.Jitter > 0 {
		jitterRange := delay * r.config.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	return time.Duration(delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
