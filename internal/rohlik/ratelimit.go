package rohlik

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestSpacing is the minimum gap enforced between outbound calls.
const DefaultRequestSpacing = 100 * time.Millisecond

// RequestPacer spaces outbound requests. One shared instance per client:
// it serializes pacing, not in-flight requests, so two calls issued
// back-to-back each wait out the floor and may then overlap.
type RequestPacer struct {
	limiter *rate.Limiter
}

func MakeRequestPacer(minSpacing time.Duration) *RequestPacer {
	if minSpacing <= 0 {
		minSpacing = DefaultRequestSpacing
	}
	return &RequestPacer{limiter: rate.NewLimiter(rate.Every(minSpacing), 1)}
}

// Throttle blocks until the spacing floor since the previous dispatch has
// elapsed, then records the new dispatch time.
func (p *RequestPacer) Throttle(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
