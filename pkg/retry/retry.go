// Package retry wraps source calls with bounded exponential backoff.
// Retryability is decided by matching the error message against a fixed
// list of transient failure patterns.
package retry

import (
	"context"
	"strings"
	"time"
)

type Config struct {
	MaxRetries        int           `json:"max_retries"         validate:"required,min=1"`
	InitialDelay      time.Duration `json:"initial_delay_ms"    validate:"required"`
	MaxDelay          time.Duration `json:"max_delay_ms"        validate:"required"`
	BackoffMultiplier float64       `json:"backoff_multiplier"  validate:"required,gt=0"`
}

// DefaultConfig matches the reference retry behavior used by pollers and
// action executors: three attempts, 1s initial delay doubling up to 30s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
	}
}

type Result struct {
	Success  bool
	Value    any
	Err      error
	Attempts int
	Elapsed  time.Duration
}

var retryablePatterns = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"network",
	"rate limit",
	"429",
	"502",
	"503",
}

// Retryable reports whether the error looks transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(message, pattern) {
			return true
		}
	}

	return false
}

// Do invokes fn up to config.MaxRetries times, sleeping
// min(InitialDelay * Multiplier^k, MaxDelay) before attempt k+1. A
// non-retryable error stops immediately. Context cancellation aborts the
// wait and returns the last error.
func Do(ctx context.Context, config Config, fn func(ctx context.Context) (any, error)) Result {
	started := time.Now()

	var lastErr error

	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return Result{
				Success:  true,
				Value:    value,
				Attempts: attempt,
				Elapsed:  time.Since(started),
			}
		}

		lastErr = err

		if !Retryable(err) || attempt == config.MaxRetries {
			return Result{
				Success:  false,
				Err:      lastErr,
				Attempts: attempt,
				Elapsed:  time.Since(started),
			}
		}

		select {
		case <-time.After(delayFor(config, attempt)):
		case <-ctx.Done():
			return Result{
				Success:  false,
				Err:      lastErr,
				Attempts: attempt,
				Elapsed:  time.Since(started),
			}
		}
	}

	return Result{
		Success:  false,
		Err:      lastErr,
		Attempts: config.MaxRetries,
		Elapsed:  time.Since(started),
	}
}

// delayFor returns the backoff before attempt+1; attempt is 1-indexed.
func delayFor(config Config, attempt int) time.Duration {
	delay := config.InitialDelay
	for range attempt - 1 {
		delay = time.Duration(float64(delay) * config.BackoffMultiplier)
	}

	if delay > config.MaxDelay {
		return config.MaxDelay
	}

	return delay
}
