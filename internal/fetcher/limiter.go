package fetcher

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a rate.Limiter that speeds up on success and backs off
// on 429. The rate stays within [initial/4, initial*2].
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	current rate.Limit
	min     rate.Limit
	max     rate.Limit
}

// NewAdaptiveLimiter starts at perSecond requests per second.
func NewAdaptiveLimiter(perSecond float64, burst int) *AdaptiveLimiter {
	r := rate.Limit(perSecond)
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(r, max(burst, 1)),
		current: r,
		min:     r / 4,
		max:     r * 2,
	}
}

// Wait blocks until a request may be sent.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%.
func (a *AdaptiveLimiter) OnSuccess() {
	a.set(a.Limit() * 1.2)
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.set(a.Limit() * 0.5)
	zap.L().Warn("fetcher: throttled, lowering request rate",
		zap.Float64("rate", float64(a.Limit())),
	)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = min(max(r, a.min), a.max)
	a.limiter.SetLimit(a.current)
}
