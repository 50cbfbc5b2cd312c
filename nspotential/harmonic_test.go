package nspotential

import (
	"math/rand"
	"testing"
)

func TestHarmonicEnergyIsNonNegative(t *testing.T) {
	h := NewHarmonic(3, 2.0)
	rng := rand.New(rand.NewSource(1))
	x := h.RandomConfiguration(rng)

	e, err := h.Energy(x)
	if err != nil {
		t.Fatalf("Energy: %v", err)
	}
	if e < 0 {
		t.Fatalf("Energy = %v, want >= 0", e)
	}
}

func TestBoxRejectsOutOfRangeCoordinates(t *testing.T) {
	b := NewBox(1.0)
	if b.Accept([]float64{0.5, -0.9}) != true {
		t.Fatal("Box rejected an in-range configuration")
	}
	if b.Accept([]float64{0.5, 1.5}) != false {
		t.Fatal("Box accepted an out-of-range configuration")
	}
}
