package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior for requests that hit a loading model
type RetryConfig struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig returns sensible defaults for retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// WithRetry executes fn, retrying while it fails with a not-ready error.
// The server's Retry-After hint, when present, replaces the exponential
// backoff. Every other error is returned immediately.
func WithRetry(ctx context.Context, fn func() error, cfg RetryConfig) error {
	if cfg.MaxRetries == 0 {
		cfg = DefaultRetryConfig()
	}

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		// Check context before each attempt
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsNotReady(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(err, attempt, cfg)):
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func backoff(err error, attempt int, cfg RetryConfig) time.Duration {
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		if cfg.MaxBackoff > 0 && se.RetryAfter > cfg.MaxBackoff {
			return cfg.MaxBackoff
		}
		return se.RetryAfter
	}

	// Exponential backoff: base * 2^attempt
	d := cfg.BaseBackoff * time.Duration(1<<attempt)
	if cfg.MaxBackoff > 0 && d > cfg.MaxBackoff {
		d = cfg.MaxBackoff
	}
	return d
}
