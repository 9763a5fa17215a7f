package numeric

import (
	"errors"
	"fmt"
)

var (
	// ErrNonSquare is returned when a square matrix was required but the
	// input wasn't.
	ErrNonSquare = errors.New("numeric: matrix is not square")

	// ErrNotSymmetric is returned when an operation requires a symmetric
	// matrix and the input violates symmetry beyond the numeric tolerance.
	// Inputs are never symmetrized silently.
	ErrNotSymmetric = errors.New("numeric: matrix is not symmetric")

	// ErrDimensionMismatch indicates incompatible dimensions between
	// chained operands.
	ErrDimensionMismatch = errors.New("numeric: dimension mismatch")

	// ErrTooFewOperands is returned by MDot when fewer than two matrices
	// are supplied.
	ErrTooFewOperands = errors.New("numeric: chained product needs at least two operands")
)

// ZeroRankError reports that rank truncation with the given cutoff would
// discard every eigendirection.  Callers that can tolerate degenerate
// input should match it with errors.As and handle it separately from
// shape errors.
type ZeroRankError struct {
	Epsilon float64
}

func (e *ZeroRankError) Error() string {
	return fmt.Sprintf("numeric: all eigenvalues are smaller than %g, rank reduction would discard all dimensions", e.Epsilon)
}
