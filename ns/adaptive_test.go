package ns

import "testing"

func TestAdaptStepSizeGrowsWhenAcceptanceAboveTarget(t *testing.T) {
	got := adaptStepSize(1.0, 9, 10, 0.5, 0, 10.0) // ratio 0.9 > target 0.5
	if got <= 1.0 {
		t.Fatalf("adaptStepSize = %v, want > 1.0 for high acceptance ratio", got)
	}
}

func TestAdaptStepSizeShrinksWhenAcceptanceBelowTarget(t *testing.T) {
	got := adaptStepSize(1.0, 1, 10, 0.5, 0, 10.0) // ratio 0.1 < target 0.5
	if got >= 1.0 {
		t.Fatalf("adaptStepSize = %v, want < 1.0 for low acceptance ratio", got)
	}
}

func TestAdaptStepSizeUnchangedOnZeroTrials(t *testing.T) {
	got := adaptStepSize(1.0, 0, 0, 0.5, 0, 10.0)
	if got != 1.0 {
		t.Fatalf("adaptStepSize = %v, want 1.0 (no trials, no update)", got)
	}
}

// TestAdaptStepSizeClampsToMax checks spec §8 invariant 6: the adapted
// step size must never exceed maxStepsize, however high the observed
// acceptance ratio.
func TestAdaptStepSizeClampsToMax(t *testing.T) {
	got := adaptStepSize(9.9, 10, 10, 0.5, 0, 10.0) // ratio 1.0, large growth factor
	if got != 10.0 {
		t.Fatalf("adaptStepSize = %v, want clamped to max 10.0", got)
	}
}

// TestAdaptStepSizeClampsToMin checks spec §8 invariant 6: the adapted
// step size must never fall below stepsizeMin, however low the observed
// acceptance ratio.
func TestAdaptStepSizeClampsToMin(t *testing.T) {
	got := adaptStepSize(0.11, 0, 10, 0.5, 0.1, 10.0) // ratio 0, large shrink factor
	if got != 0.1 {
		t.Fatalf("adaptStepSize = %v, want clamped to min 0.1", got)
	}
}
