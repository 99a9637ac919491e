// Package retry provides a small injectable retry policy with
// exponential backoff. Callers decide what counts as retryable via
// the Classify hook.
package retry

import (
	"context"
	"time"
)

// Policy describes how an operation is retried. The zero value is not
// usable; construct with Default and override fields as needed.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	// Classify reports whether an error should be retried.
	// Nil means every error is retried until MaxAttempts.
	Classify func(error) bool
}

// Default mirrors the embedding pipeline's historical retry shape:
// five attempts, exponential backoff starting at 200ms, capped at 5s.
func Default() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs fn until it succeeds, exhausts MaxAttempts, is classified as
// non-retryable, or ctx is done. The last error is returned as-is so
// typed errors survive for errors.As at the call site.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
		if p.Classify != nil && !p.Classify(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(p.delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
