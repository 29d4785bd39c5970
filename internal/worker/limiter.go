package worker

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter smooths calls to the embedding API. The index build can push
// thousands of chunk batches; a shared token bucket keeps the backend
// from rate-limiting the run mid-way.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter creates a limiter allowing requestsPerSecond sustained
// calls with the given burst. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	if requestsPerSecond <= 0 {
		return &Limiter{rl: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a call is allowed or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}

// Allow reports whether a call is allowed right now without waiting.
func (l *Limiter) Allow() bool {
	return l.rl.Allow()
}
