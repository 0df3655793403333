package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket throttling calls to the mail provider across
// all delivery workers. Burst equals the rate so no "saved up" burst above
// the configured per-second maximum is possible.
type Limiter struct {
	l *rate.Limiter
}

// New creates a Limiter allowing ratePerSec sends per second.
func New(ratePerSec int) *Limiter {
	return &Limiter{l: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until the limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.l.Wait(ctx)
}
