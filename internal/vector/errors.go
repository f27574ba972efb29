package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrZeroVector is returned for vectors whose norm is zero; they have no cosine similarity.
	ErrZeroVector = errors.New("zero vector")
	// ErrNonFiniteVector is returned for vectors with a NaN or infinite component.
	ErrNonFiniteVector = errors.New("non-finite vector")
	// ErrArtifactNotFound is returned by LoadFlatIndex when none of the artifact files exist.
	ErrArtifactNotFound = errors.New("index artifact not found")
	// ErrCorrupt marks artifacts that are partial, fail a checksum, or disagree with each other.
	ErrCorrupt = errors.New("corrupt index artifact")
)

// DimensionMismatchError indicates a vector or query of the wrong length.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	// Row is the offending input row, or -1 for a query.
	Row int
}

func (e *DimensionMismatchError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("dimension mismatch at row %d: expected %d, got %d", e.Row, e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// PersistenceError wraps failures reading or writing index artifacts.
//
// The original underlying error can be accessed via errors.Unwrap.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("index %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func corrupt(path, format string, args ...any) error {
	return &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))}
}
