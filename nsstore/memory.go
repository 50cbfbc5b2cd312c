package nsstore

import "sync"

// Memory is an in-process Store backed by a plain slice. Useful for tests
// and for short runs that don't need results to outlive the process.
type Memory struct {
	mu     sync.Mutex
	closed bool
	recs   []Record
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// RecordIteration implements ns.TraceSink.
func (m *Memory) RecordIteration(iteration int, discardedEnergies []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, e := range discardedEnergies {
		m.recs = append(m.recs, Record{Iteration: iteration, Energy: e})
	}
	return nil
}

// RecordFinal implements ns.TraceSink.
func (m *Memory) RecordFinal(liveEnergies []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, e := range liveEnergies {
		m.recs = append(m.recs, Record{Iteration: FinalIteration, Energy: e})
	}
	return nil
}

// Records implements Store.
func (m *Memory) Records() ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return append([]Record(nil), m.recs...), nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
