package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrBreakerOpen is returned without calling through while the breaker is open.
var ErrBreakerOpen = eris.New("resilience: circuit breaker is open")

// State is the position of a Breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker stops calling a failing service after Threshold consecutive
// failures. After Cooldown one probe call is let through; its outcome closes
// or reopens the breaker.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	onChange  func(name string, from, to State)
	counts    func(error) bool
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithCooldown sets how long the breaker stays open.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breaker) { b.cooldown = d }
}

// WithStateChange registers a hook for state transitions.
func WithStateChange(fn func(name string, from, to State)) BreakerOption {
	return func(b *Breaker) { b.onChange = fn }
}

// WithFailureFilter limits which errors count toward the threshold. Errors
// for which counts returns false are answers from a healthy service and
// reset the failure count like a success.
func WithFailureFilter(counts func(error) bool) BreakerOption {
	return func(b *Breaker) { b.counts = counts }
}

// NewBreaker returns a closed breaker. A threshold below 1 is treated as 1.
func NewBreaker(name string, threshold int, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:      name,
		threshold: max(threshold, 1),
		cooldown:  time.Minute,
		now:       time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Name returns the service the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is Do for calls that produce a value.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(err)
	return v, err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		return eris.Wrapf(ErrBreakerOpen, "%s", b.name)
	}
	b.transition(HalfOpen)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Cancellation says nothing about the service.
	if err != nil && eris.Is(err, context.Canceled) {
		return
	}
	if err == nil || (b.counts != nil && !b.counts(err)) {
		b.failures = 0
		if b.state != Closed {
			b.transition(Closed)
		}
		return
	}

	b.failures++
	if b.state == HalfOpen || b.failures >= b.threshold {
		b.openedAt = b.now()
		if b.state != Open {
			b.transition(Open)
		}
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
