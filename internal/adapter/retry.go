package adapter

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// backoffConfig configures the linear-with-jitter retry loop wrapping an
// adapter call, adapted from the teacher's internal/retry.Config.
type backoffConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
	Jitter       bool
}

func defaultBackoffConfig(maxRetries int) backoffConfig {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return backoffConfig{
		MaxAttempts:  maxRetries + 1,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Factor:       2.0,
		Jitter:       true,
	}
}

// withRetry runs op up to cfg.MaxAttempts times with exponential backoff,
// stopping early on ctx cancellation or a nil error. It never inspects
// the error's classification — the caller (the turn engine's fallback
// handling, spec.md §4.9) decides whether an error is retryable at all;
// this loop only spaces out attempts the caller has already chosen to
// repeat.
func withRetry(ctx context.Context, cfg backoffConfig, op func(attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt >= cfg.MaxAttempts {
			break
		}
		sleep := delay
		if cfg.Jitter {
			sleep = time.Duration(float64(sleep) * (0.5 + rand.Float64()))
		}
		if sleep > cfg.MaxDelay {
			sleep = cfg.MaxDelay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		delay = time.Duration(math.Min(float64(cfg.MaxDelay), float64(delay)*cfg.Factor))
	}
	return lastErr
}
