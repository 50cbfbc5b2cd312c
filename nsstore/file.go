package nsstore

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"sync"
)

// File is the Store that produces the two flat files spec §4.4/§6 mandate
// as the primary output of a run: "<label>.energies" (one real per line,
// the K discarded energies appended in ascending order at the end of
// every iteration) and "<label>.replicas_final" (one real per line, the
// final live-set energies, written once at termination). Both files are
// flushed after every write so a crash leaves a valid prefix rather than
// buffered, lost output.
type File struct {
	mu     sync.Mutex
	energ  *os.File
	energW *bufio.Writer
	final  *os.File
	finalW *bufio.Writer
	closed bool
}

// OpenFile creates (truncating) "<label>.energies" and
// "<label>.replicas_final" and returns a File store writing to them.
func OpenFile(label string) (*File, error) {
	ef, err := os.OpenFile(label+".energies", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	ff, err := os.OpenFile(label+".replicas_final", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		ef.Close()
		return nil, err
	}
	return &File{
		energ:  ef,
		energW: bufio.NewWriter(ef),
		final:  ff,
		finalW: bufio.NewWriter(ff),
	}, nil
}

// RecordIteration implements ns.TraceSink, appending discardedEnergies
// (already ascending, per the engine's invariant) to "<label>.energies"
// and flushing immediately.
func (s *File) RecordIteration(_ int, discardedEnergies []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, e := range discardedEnergies {
		if _, err := fmt.Fprintf(s.energW, "%g\n", e); err != nil {
			return err
		}
	}
	return s.energW.Flush()
}

// RecordFinal implements ns.TraceSink, writing liveEnergies sorted
// ascending to "<label>.replicas_final" and flushing immediately.
func (s *File) RecordFinal(liveEnergies []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	sorted := append([]float64(nil), liveEnergies...)
	sort.Float64s(sorted)
	for _, e := range sorted {
		if _, err := fmt.Fprintf(s.finalW, "%g\n", e); err != nil {
			return err
		}
	}
	return s.finalW.Flush()
}

// Records implements Store by reporting the energy trace written to
// "<label>.energies"; the flat-file format carries no iteration marker,
// so records read back all report Iteration 0.
func (s *File) Records() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.energW.Flush(); err != nil {
		return nil, err
	}
	if _, err := s.energ.Seek(0, 0); err != nil {
		return nil, err
	}
	var recs []Record
	scan := bufio.NewScanner(s.energ)
	for scan.Scan() {
		var e float64
		if _, err := fmt.Sscanf(scan.Text(), "%g", &e); err != nil {
			return nil, err
		}
		recs = append(recs, Record{Energy: e})
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	if _, err := s.energ.Seek(0, 2); err != nil {
		return nil, err
	}
	return recs, nil
}

// Close implements Store.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.energW.Flush(); err != nil {
		s.energ.Close()
		s.finalW.Flush()
		s.final.Close()
		return err
	}
	if err := s.energ.Close(); err != nil {
		s.finalW.Flush()
		s.final.Close()
		return err
	}
	if err := s.finalW.Flush(); err != nil {
		s.final.Close()
		return err
	}
	return s.final.Close()
}
