package ns

import "errors"

// EngineError discriminates fatal engine failures by Code, following the
// kinds in spec §7: CONFIG_ERROR, POTENTIAL_ERROR, INVARIANT_VIOLATION,
// TRANSPORT_ERROR, TIMEOUT. Cancellation is not an EngineError — it is a
// clean stop with a nil error, per spec §7's policy.
type EngineError struct {
	Code    string
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *EngineError) Unwrap() error { return e.Cause }

// Sentinel errors for conditions that need no wrapped cause of their own.
var (
	// ErrInvariantViolation indicates a dispatcher returned a replica whose
	// energy does not satisfy the cutoff in effect for its walk.
	ErrInvariantViolation = errors.New("ns: invariant violation: returned replica energy >= cutoff")

	// ErrNonFinite indicates a potential evaluated to NaN or +/-Inf.
	ErrNonFinite = errors.New("ns: potential returned a non-finite energy")
)
