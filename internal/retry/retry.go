// Package retry provides the shared retry policy for remote provider calls.
//
// Every remote adapter (generation, TTS, STT) applies the same bounded
// exponential backoff instead of hand-rolling its own loop. The policy
// carries a retryable-error predicate so authentication failures are never
// retried while timeouts, rate limits and 5xx responses are.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Default policy values.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 100 * time.Millisecond
	DefaultMaxDelay     = 2 * time.Second
)

// Policy describes bounded retry with exponential backoff.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	// Zero or negative means a single attempt with no retry.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff interval.
	MaxDelay time.Duration

	// Retryable reports whether err is worth another attempt.
	// If nil, every error is retried.
	Retryable func(error) bool

	// Notify is called before each retry with the error and the delay
	// until the next attempt. Optional.
	Notify func(err error, next time.Duration)
}

// DefaultPolicy returns the policy used by remote adapters unless
// configuration overrides it.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
	}
}

// Do runs op under the policy until it succeeds, the attempt budget is
// exhausted, the error is classified non-retryable, or ctx is done.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	initial := p.InitialDelay
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	max := p.MaxDelay
	if max <= 0 {
		max = DefaultMaxDelay
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial
	bo.MaxInterval = max

	wrapped := func() (T, error) {
		v, err := op()
		if err == nil {
			return v, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(attempts)),
	}
	if p.Notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, next time.Duration) {
			p.Notify(err, next)
		}))
	}

	return backoff.Retry(ctx, wrapped, opts...)
}
