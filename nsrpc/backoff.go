package nsrpc

import (
	"math"
	"math/rand"
	"time"
)

// backoffPolicy computes exponential backoff with jitter: base*2^attempt,
// capped at maxDelay, with up to 20% random jitter added to avoid thundering
// herds when many jobs retry against the same worker at once.
type backoffPolicy struct {
	Base     time.Duration
	MaxDelay time.Duration
}

func defaultBackoffPolicy() backoffPolicy {
	return backoffPolicy{Base: 100 * time.Millisecond, MaxDelay: 10 * time.Second}
}

func (p backoffPolicy) computeBackoff(attempt int, rng *rand.Rand) time.Duration {
	delay := float64(p.Base) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	jitter := delay * 0.2 * rng.Float64()
	return time.Duration(delay + jitter)
}
