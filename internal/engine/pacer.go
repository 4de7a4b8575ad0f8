package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces successive API calls at least interval apart.
// It is a courtesy limit towards the API, not a correctness mechanism.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a Pacer allowing one call per interval. interval <= 0 disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call may be issued or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
