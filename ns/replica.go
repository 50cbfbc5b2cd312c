// Package ns implements Nested Sampling: a population of live replicas is
// iteratively thinned by discarding the highest-energy member(s) and
// replacing them with replicas produced by a constrained Markov-chain walk
// below the discarded energy.
package ns

// Replica is an immutable (coordinates, energy) pair. Once constructed it is
// never mutated in place; Clone produces a deep copy so the engine's live set
// never aliases a walker's working state.
type Replica struct {
	X []float64 `json:"x"`
	E float64   `json:"e"`
}

// NewReplica constructs a Replica from raw coordinates and their energy.
func NewReplica(x []float64, e float64) Replica {
	return Replica{X: x, E: e}
}

// Clone returns a deep copy of r with its own backing array for X.
func (r Replica) Clone() Replica {
	x := make([]float64, len(r.X))
	copy(x, r.X)
	return Replica{X: x, E: r.E}
}
