package ns

// TraceSink receives the two outputs the engine is required to produce
// (spec §4.4, §6): the energy trace (the K discarded energies recorded in
// ascending order at the end of every iteration) and the final live-set
// energies recorded once, at termination. It does not see replica
// coordinates or any evidence-reconstruction quantity; analyzing the
// energy trace (heat capacities, evidence integrals) is a downstream
// concern the engine itself does not perform.
type TraceSink interface {
	RecordIteration(iteration int, discardedEnergies []float64) error
	RecordFinal(liveEnergies []float64) error
}
