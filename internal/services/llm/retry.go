package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"huddle/internal/services"
)

const (
	defaultRetryAttempts  = 5
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleeper  func(time.Duration)
}

func newRetryPolicy(attempts int) retryPolicy {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	return retryPolicy{attempts: attempts, base: defaultRetryBaseDelay, max: defaultRetryMaxDelay}
}

// do runs call until it succeeds, fails permanently, or attempts run out.
// Transient failures and request timeouts are retried.
func (p retryPolicy) do(ctx context.Context, call func() error) error {
	attempts := max(p.attempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = call(); err == nil {
			return nil
		}
		if attempt == attempts || ctx.Err() != nil || !retryable(err) {
			break
		}
		if waitErr := p.wait(ctx, p.delay(err, attempt)); waitErr != nil {
			return waitErr
		}
	}
	if attempts > 1 && retryable(err) {
		return fmt.Errorf("failed after %d attempts: %w", attempts, err)
	}
	return err
}

func retryable(err error) bool {
	return errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrTimeout)
}

// delay honours Retry-After, otherwise doubles from base per attempt.
func (p retryPolicy) delay(err error, attempt int) time.Duration {
	var status *statusError
	if errors.As(err, &status) && status.RetryAfter > 0 {
		return p.clamp(status.RetryAfter)
	}
	if p.base <= 0 {
		return 0
	}
	shift := min(attempt-1, 16)
	return p.clamp(p.base << shift)
}

func (p retryPolicy) clamp(d time.Duration) time.Duration {
	if p.max > 0 && d > p.max {
		return p.max
	}
	return max(d, 0)
}

func (p retryPolicy) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if p.sleeper != nil {
		p.sleeper(d)
		return ctx.Err()
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
