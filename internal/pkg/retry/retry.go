package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
)

// Policy configures exponential retries.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Retryable reports whether err may succeed on another attempt. Nil retries everything.
	Retryable func(error) bool
}

// DefaultPolicy is three attempts starting at two seconds, capped at thirty.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Retryable:   retryable,
	}
}

// Notify is called before each sleep with the failed attempt's error.
type Notify func(err error, next time.Duration)

// Do runs op until it succeeds, returns a non-retryable error or the attempts run out.
// ErrBudgetExceeded is never retried.
func Do(ctx context.Context, p Policy, op func(context.Context) error, notify Notify) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.BaseDelay),
		backoff.WithMaxInterval(p.MaxDelay),
		backoff.WithMultiplier(2),
		backoff.WithMaxElapsedTime(0),
	)
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	operation := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, domainErrors.ErrBudgetExceeded) {
			return backoff.Permanent(err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var n backoff.Notify
	if notify != nil {
		n = backoff.Notify(notify)
	}
	return backoff.RetryNotify(operation, b, n)
}
