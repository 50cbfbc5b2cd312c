package ns

import "testing"

func TestWithReplicaCountRejectsKGreaterThanSurvivors(t *testing.T) {
	// k=6, n=10 leaves only 4 survivors, which cannot seed 6 without-
	// replacement walks.
	opt := WithReplicaCount(10, 6)
	o := defaultOptions()
	err := opt(o)
	if err == nil {
		t.Fatal("expected error for k > n-k, got nil")
	}
}

func TestWithReplicaCountAcceptsValidSplit(t *testing.T) {
	opt := WithReplicaCount(10, 3)
	o := defaultOptions()
	if err := opt(o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.N != 10 || o.K != 3 {
		t.Fatalf("N,K = %d,%d want 10,3", o.N, o.K)
	}
}

func TestNewEngineRequiresPotentialAndStepKernel(t *testing.T) {
	_, err := NewEngine(
		WithRunID("test"),
		WithReplicaCount(10, 2),
		WithMaxIterations(5),
	)
	if err == nil {
		t.Fatal("expected error when potential and step kernel are missing")
	}
}
