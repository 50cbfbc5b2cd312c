package nsstore

import "testing"

func TestMemoryRecordIterationAndRetrieve(t *testing.T) {
	m := NewMemory()

	if err := m.RecordIteration(3, []float64{0.5, 0.6}); err != nil {
		t.Fatalf("RecordIteration: %v", err)
	}
	if err := m.RecordFinal([]float64{0.1, 0.2}); err != nil {
		t.Fatalf("RecordFinal: %v", err)
	}

	recs, err := m.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("len(recs) = %d, want 4", len(recs))
	}
	if recs[0].Iteration != 3 || recs[0].Energy != 0.5 {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
	if recs[2].Iteration != FinalIteration || recs[2].Energy != 0.1 {
		t.Fatalf("unexpected final record: %+v", recs[2])
	}
}

func TestMemoryRejectsOperationsAfterClose(t *testing.T) {
	m := NewMemory()
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.RecordIteration(0, []float64{0}); err != ErrClosed {
		t.Fatalf("RecordIteration after close = %v, want ErrClosed", err)
	}
	if err := m.RecordFinal([]float64{0}); err != ErrClosed {
		t.Fatalf("RecordFinal after close = %v, want ErrClosed", err)
	}
}
