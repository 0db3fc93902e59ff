package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff is an exponential retry policy. Zero fields take the values of
// DefaultBackoff, except Jitter where zero means none.
type Backoff struct {
	Attempts int           // total tries, first one included
	Base     time.Duration // delay before the first retry
	Cap      time.Duration // longest single delay
	Factor   float64       // growth per retry
	Jitter   float64       // +/- fraction applied to each delay

	// Retryable classifies errors. IsRetryable when nil.
	Retryable func(error) bool
	// Notify is called before sleeping ahead of retry number attempt.
	Notify func(attempt int, err error)
}

// DefaultBackoff is the policy for assistant backend calls.
func DefaultBackoff() Backoff {
	return Backoff{
		Attempts: 3,
		Base:     500 * time.Millisecond,
		Cap:      5 * time.Second,
		Factor:   2,
		Jitter:   0.25,
	}
}

func (b Backoff) normalized() Backoff {
	def := DefaultBackoff()
	if b.Attempts <= 0 {
		b.Attempts = def.Attempts
	}
	if b.Base <= 0 {
		b.Base = def.Base
	}
	if b.Cap <= 0 {
		b.Cap = def.Cap
	}
	if b.Factor <= 0 {
		b.Factor = def.Factor
	}
	b.Jitter = min(max(b.Jitter, 0), 1)
	if b.Retryable == nil {
		b.Retryable = IsRetryable
	}
	return b
}

// Delay returns the sleep before retry n (0-based).
func (b Backoff) Delay(n int) time.Duration {
	b = b.normalized()
	d := float64(b.Base)
	for i := 0; i < n && d < float64(b.Cap); i++ {
		d *= b.Factor
	}
	d = min(d, float64(b.Cap))
	if b.Jitter > 0 {
		d += d * b.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds or the policy gives up, and returns the
// last error. Cancelling ctx stops both the loop and any pending sleep.
func Retry[T any](ctx context.Context, b Backoff, fn func(ctx context.Context) (T, error)) (T, error) {
	b = b.normalized()
	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if attempt >= b.Attempts || ctx.Err() != nil || !b.Retryable(err) {
			return zero, err
		}
		if b.Notify != nil {
			b.Notify(attempt, err)
		}
		if wait(ctx, b.Delay(attempt-1)) != nil {
			return zero, err
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LogRetries returns a Notify hook that logs at warn level.
func LogRetries(service, op string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying upstream call",
			zap.String("service", service),
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
