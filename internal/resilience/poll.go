package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/guarded-chat/internal/config"
)

// Polling bounds a status poll: at most Attempts calls, Interval apart.
type Polling struct {
	Attempts int
	Interval time.Duration
}

// DefaultPolling is used for pending assistant messages.
func DefaultPolling() Polling {
	return Polling{Attempts: 10, Interval: 2 * time.Second}
}

// Poll calls fn until it reports done, fails, or the attempts run out. The
// last value fn produced is returned even when polling ends without done so
// callers can inspect the final state.
func Poll[T any](ctx context.Context, p Polling, fn func(ctx context.Context) (T, bool, error)) (T, error) {
	attempts := max(p.Attempts, 1)

	var last T
	for i := 1; i <= attempts; i++ {
		val, done, err := fn(ctx)
		if err != nil {
			return last, err
		}
		last = val
		if done || i == attempts {
			return last, nil
		}
		if err := wait(ctx, p.Interval); err != nil {
			return last, eris.Wrap(err, "poll: interrupted")
		}
	}
	return last, nil
}

// BackoffFrom maps config onto DefaultBackoff, keeping defaults for unset
// values.
func BackoffFrom(c config.RetryConfig) Backoff {
	b := DefaultBackoff()
	if c.MaxAttempts > 0 {
		b.Attempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		b.Base = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		b.Cap = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}
	return b
}

// BreakerFrom maps config onto a BreakerConfig. Zero values are left for
// NewBreaker to default.
func BreakerFrom(c config.CircuitConfig) BreakerConfig {
	return BreakerConfig{
		Threshold: c.FailureThreshold,
		Cooldown:  time.Duration(c.ResetTimeoutSecs) * time.Second,
	}
}

// PollingFrom maps the backend poll settings onto DefaultPolling.
func PollingFrom(c config.IHubConfig) Polling {
	p := DefaultPolling()
	if c.PollAttempts > 0 {
		p.Attempts = c.PollAttempts
	}
	if c.PollIntervalMs > 0 {
		p.Interval = time.Duration(c.PollIntervalMs) * time.Millisecond
	}
	return p
}
