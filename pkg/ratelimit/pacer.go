// Package ratelimit paces successive calls against the upstream charter API.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed minimum interval between successive Wait calls.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer with the given minimum interval. The first Wait
// returns immediately; each subsequent Wait blocks until the interval since
// the previous one has elapsed.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the next slot in the cadence, or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
