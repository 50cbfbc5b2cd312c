package nsrpc

import (
	"math/rand"
	"testing"
	"time"
)

func TestComputeBackoffCapsAtMaxDelay(t *testing.T) {
	p := backoffPolicy{Base: 100 * time.Millisecond, MaxDelay: time.Second}
	rng := rand.New(rand.NewSource(1))

	d := p.computeBackoff(20, rng) // 2^20 attempts would blow past MaxDelay without the cap
	if d > p.MaxDelay+time.Duration(float64(p.MaxDelay)*0.2) {
		t.Fatalf("computeBackoff(20) = %v, want <= MaxDelay plus jitter (%v)", d, p.MaxDelay)
	}
}

func TestComputeBackoffGrowsWithAttempt(t *testing.T) {
	p := defaultBackoffPolicy()
	rng := rand.New(rand.NewSource(1))

	d0 := p.computeBackoff(0, rng)
	d3 := p.computeBackoff(3, rng)
	if d3 <= d0 {
		t.Fatalf("computeBackoff(3) = %v, want > computeBackoff(0) = %v", d3, d0)
	}
}
