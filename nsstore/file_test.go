package nsstore

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
)

// TestFileWritesMandatedOutputs checks spec §4.4/§6/S4: a run must
// produce "<label>.energies" (one real per line, in iteration order) and
// "<label>.replicas_final" (one real per line, the final live set).
func TestFileWritesMandatedOutputs(t *testing.T) {
	label := filepath.Join(t.TempDir(), "run")
	s, err := OpenFile(label)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	if err := s.RecordIteration(0, []float64{1.0, 2.0}); err != nil {
		t.Fatalf("RecordIteration(0): %v", err)
	}
	if err := s.RecordIteration(1, []float64{0.5, 0.75}); err != nil {
		t.Fatalf("RecordIteration(1): %v", err)
	}
	if err := s.RecordFinal([]float64{0.3, 0.1, 0.2}); err != nil {
		t.Fatalf("RecordFinal: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wantEnergies := []string{"1", "2", "0.5", "0.75"}
	if got := readLines(t, label+".energies"); !equalLines(got, wantEnergies) {
		t.Fatalf("energies = %v, want %v", got, wantEnergies)
	}

	wantFinal := []string{"0.1", "0.2", "0.3"} // sorted ascending
	if got := readLines(t, label+".replicas_final"); !equalLines(got, wantFinal) {
		t.Fatalf("replicas_final = %v, want %v", got, wantFinal)
	}
}

// TestFileFlushesAfterEveryIteration checks that a crash leaves a valid
// prefix: reading the file before Close still sees everything written so
// far.
func TestFileFlushesAfterEveryIteration(t *testing.T) {
	label := filepath.Join(t.TempDir(), "run")
	s, err := OpenFile(label)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer s.Close()

	if err := s.RecordIteration(0, []float64{42.0}); err != nil {
		t.Fatalf("RecordIteration: %v", err)
	}

	got := readLines(t, label+".energies")
	if len(got) != 1 || got[0] != "42" {
		t.Fatalf("energies before Close = %v, want [42]", got)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		lines = append(lines, scan.Text())
	}
	if err := scan.Err(); err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return lines
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
