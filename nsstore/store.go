// Package nsstore persists the nested sampling energy trace: the K
// discarded energies recorded at the end of every iteration, and the
// final live-set energies recorded once at termination (spec §4.4, §6).
// Implementations satisfy ns.TraceSink directly so any of them can be
// passed to ns.WithTraceSink unmodified. None of them see replica
// coordinates or any evidence-reconstruction quantity (spec §1
// Non-goals) — only energies.
package nsstore

import (
	"errors"

	"github.com/hlslxy/nested-sampling/ns"
)

// ErrClosed is returned by any operation on a Store after Close has run.
var ErrClosed = errors.New("nsstore: store is closed")

// FinalIteration is the sentinel Iteration value used for records
// produced by RecordFinal, distinguishing the terminal live-set energies
// from any real iteration's discarded energies.
const FinalIteration = -1

// Record is one persisted energy: either a discarded energy from a
// completed iteration, or (when Iteration == FinalIteration) one member
// of the final live-set energies.
type Record struct {
	Iteration int     `json:"iteration"`
	Energy    float64 `json:"energy"`
}

// Store is an ns.TraceSink that can also be queried back and closed
// cleanly, satisfied by every implementation in this package.
type Store interface {
	ns.TraceSink
	Records() ([]Record, error)
	Close() error
}
