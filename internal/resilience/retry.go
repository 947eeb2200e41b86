package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls how often and how patiently a call is repeated.
type Policy struct {
	// Attempts is the total number of tries, first one included.
	Attempts int
	// Backoff is the delay before the first retry; it doubles afterwards.
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Jitter spreads each delay by up to ±Jitter of its value.
	Jitter float64
	// Retryable decides whether an error is retried. Defaults to IsTransient.
	Retryable func(error) bool
	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy suits the public APIs this tool talks to.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 20 * time.Second,
		Jitter:     0.25,
	}
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Backoff <= 0 {
		p.Backoff = 500 * time.Millisecond
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = p.Backoff
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// delay returns the wait before retry number attempt (0-based).
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.Backoff) * math.Pow(2, float64(attempt))
	d = math.Min(d, float64(p.MaxBackoff))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(d, 0))
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done. The last error is returned.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := RetryVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryVal is Retry for calls that produce a value.
func RetryVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt >= p.Attempts-1 {
			return zero, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// LogRetry returns an OnRetry hook that logs through the global logger.
func LogRetry(service, op string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying call",
			zap.String("service", service),
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
