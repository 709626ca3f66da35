package services

import (
	"context"
	"errors"
	"time"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// RetryPolicy applies bounded exponential backoff to provider-backed calls.
// The zero value is usable and carries the package defaults.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleeper overrides how retry waits are performed (useful for tests).
	Sleeper func(time.Duration)
}

// Retry invokes fn until it succeeds, exhausts the attempt budget, or hits a
// non-retryable failure. Fatal errors and context cancellation return
// immediately. Each attempt's error is classified with IsRetryable.
func (p RetryPolicy) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt >= attempts || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		if sleepErr := p.sleep(ctx, p.delay(attempt)); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
	return lastErr
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return defaultRetryAttempts
	}
	return p.MaxAttempts
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	delay := base << (attempt - 1)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return delay
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleeper != nil {
		p.Sleeper(d)
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
