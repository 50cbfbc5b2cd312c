package ns

import "testing"

func TestReplicaCloneIsIndependent(t *testing.T) {
	r := NewReplica([]float64{1, 2, 3}, 0.5)
	c := r.Clone()

	c.X[0] = 99
	if r.X[0] == 99 {
		t.Fatalf("Clone shares backing array with original")
	}
	if c.E != r.E {
		t.Fatalf("Clone energy = %v, want %v", c.E, r.E)
	}
}
