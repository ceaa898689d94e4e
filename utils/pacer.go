package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out sequential requests. A zero interval disables pacing.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer allowing one request per interval.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may proceed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
