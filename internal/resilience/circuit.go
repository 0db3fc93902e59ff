// Package resilience holds the retry, polling and circuit breaking policies
// wrapped around assistant backend calls.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State of a Breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrOpen is returned without calling through while the breaker is open.
var ErrOpen = eris.New("resilience: circuit open")

// BreakerConfig tunes a Breaker. Zero Threshold and Cooldown fall back to 5
// failures and 30s.
type BreakerConfig struct {
	Threshold int
	Cooldown  time.Duration

	// Trip decides which errors count as failures. Any error when nil.
	Trip func(error) bool
	// OnChange observes every state transition.
	OnChange func(from, to State)
}

// Breaker opens after Threshold consecutive failures, rejects calls for
// Cooldown, then lets one probe decide whether to close again.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// NewBreaker returns a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Trip == nil {
		cfg.Trip = func(err error) bool { return err != nil }
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// State reports the current state. An open breaker whose cooldown has
// passed reads as half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cooled() {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) cooled() bool {
	return b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.state != StateOpen:
		return nil
	case b.cooled():
		b.set(StateHalfOpen)
		return nil
	default:
		return ErrOpen
	}
}

func (b *Breaker) release(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.Trip(err) {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.set(StateClosed)
		}
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.cfg.Threshold {
		b.openedAt = b.now()
		b.set(StateOpen)
	}
}

func (b *Breaker) set(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnChange != nil {
		b.cfg.OnChange(from, to)
	}
}

// Guard runs fn through b. A nil breaker calls fn directly.
func Guard[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	if b == nil {
		return fn(ctx)
	}
	var zero T
	if err := b.acquire(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.release(err)
	return val, err
}

// LogTransitions returns an OnChange hook that logs at warn level.
func LogTransitions(service string) func(from, to State) {
	return func(from, to State) {
		zap.L().Warn("circuit breaker state change",
			zap.String("service", service),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
}
