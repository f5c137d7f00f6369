package collector

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond paces provider calls when nothing is configured.
const DefaultRequestsPerSecond = 5

// Limiter paces calls to an external data provider.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter allows rps calls per second with the given burst. A non-positive
// rps disables pacing.
func NewLimiter(name string, rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst), name: name}
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter %s: %w", l.name, err)
	}
	return nil
}
