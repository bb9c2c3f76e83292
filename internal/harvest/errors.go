// internal/harvest/errors.go
package harvest

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariantViolation aborts a harvest. It signals a bug upstream of the
	// combination engine, never noise in the source catalogue.
	ErrInvariantViolation = errors.New("INVARIANT_VIOLATION")

	ErrExhausted      = errors.New("ITERATOR_EXHAUSTED")
	ErrNotInitialized = errors.New("EXTRACTOR_NOT_INITIALIZED")
	ErrNilStructure   = errors.New("NIL_DATA_STRUCTURE")
)

// InvariantError carries the dimension that broke the combination contract.
type InvariantError struct {
	Dimension string
	Reason    string
}

func (e *InvariantError) Error() string {
	if e.Dimension == "" {
		return fmt.Sprintf("invariant violation: %s", e.Reason)
	}
	return fmt.Sprintf("invariant violation on dimension %q: %s", e.Dimension, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
