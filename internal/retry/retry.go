// Package retry provides the shared backoff policy for retryable operations.
//
// Remote calls and agent execution both retry through the same policy so
// backoff behavior is configured in one place.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy parameterizes exponential backoff for retryable operations.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int `koanf:"max_attempts"`

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration `koanf:"base_delay"`

	// Factor multiplies the delay after each attempt.
	Factor float64 `koanf:"factor"`

	// Jitter is the randomization factor applied to each delay, in [0,1].
	Jitter float64 `koanf:"jitter"`
}

// DefaultPolicy returns sensible defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Factor:      2.0,
		Jitter:      0.1,
	}
}

// Validate checks the policy for invalid values.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("base_delay must be >= 0, got %s", p.BaseDelay)
	}
	if p.Factor < 1 {
		return fmt.Errorf("factor must be >= 1, got %f", p.Factor)
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("jitter must be in [0,1], got %f", p.Jitter)
	}
	return nil
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Factor
	b.RandomizationFactor = p.Jitter
	return b
}

// Permanent marks err as non-retryable. Do returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op under the policy, retrying failures with exponential backoff
// until it succeeds, MaxAttempts is exhausted, or ctx is done. The last
// error is returned.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
	)
}
