// Package resilience retries transient failures and trips per-host breakers
// when pulling journey exports from remote sources.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// JitterFraction spreads each delay by up to ±fraction of itself.
	JitterFraction float64

	// ShouldRetry overrides IsTransient when set.
	ShouldRetry func(err error) bool

	// OnRetry runs before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the retry policy used for journey downloads.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// FromAttempts returns DefaultRetryConfig with MaxAttempts replaced when
// maxAttempts is positive, logging each retry under operation.
func FromAttempts(maxAttempts int, operation string) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	cfg.OnRetry = RetryLogger(operation)
	return cfg
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. The last error is returned unchanged.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that produce a value. The zero value is returned
// on failure.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)
	retryable := cfg.ShouldRetry
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := range cfg.MaxAttempts {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(backoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	delay := math.Min(
		float64(cfg.InitialBackoff)*math.Pow(cfg.Multiplier, float64(attempt)),
		float64(cfg.MaxBackoff),
	)
	if cfg.JitterFraction > 0 {
		delay += (rand.Float64()*2 - 1) * delay * cfg.JitterFraction
	}
	return time.Duration(math.Max(delay, 0))
}

// RetryLogger returns an OnRetry callback that logs each attempt at warn.
func RetryLogger(operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("resilience: retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
