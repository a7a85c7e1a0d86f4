package tactic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryConfig configures transport-level retries around a whole Generate call.
// Adapters never retry transport failures themselves.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	RetryableErrors   []error // Specific errors that should trigger retry
}

// DefaultRetryConfig performs a single attempt.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:       1,
	InitialBackoff:    200 * time.Millisecond,
	MaxBackoff:        10 * time.Second,
	BackoffMultiplier: 2.0,
}

// RetryingGenerator wraps a Generator with retry logic.
func RetryingGenerator(g Generator, config RetryConfig) Generator {
	if config.MaxAttempts <= 1 {
		return g
	}
	return GeneratorFunc(func(ctx context.Context, state, prefix string) ([]Candidate, error) {
		var lastErr error

		for attempt := 0; attempt < config.MaxAttempts; attempt++ {
			cands, err := g.Generate(ctx, state, prefix)
			if err == nil {
				return cands, nil
			}
			lastErr = err

			if !isRetryable(err, config.RetryableErrors) || ctx.Err() != nil {
				return nil, err
			}

			if attempt < config.MaxAttempts-1 {
				select {
				case <-ctx.Done():
					return nil, errors.Join(lastErr, ctx.Err())
				case <-time.After(calculateBackoff(attempt, config)):
				}
			}
		}

		return nil, fmt.Errorf("max retry attempts (%d) exceeded: %w", config.MaxAttempts, lastErr)
	})
}

// isRetryable defaults to transport failures that were not caused by the
// caller's own deadline or cancellation.
func isRetryable(err error, retryableErrors []error) bool {
	if len(retryableErrors) == 0 {
		var te *TransportError
		return errors.As(err, &te) &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}

	for _, retryableErr := range retryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}
	return false
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	mult := config.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	backoff := float64(config.InitialBackoff) * math.Pow(mult, float64(attempt))
	if config.MaxBackoff > 0 && backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	return time.Duration(backoff)
}
