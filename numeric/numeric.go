package numeric

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Method selects the eigendecomposition strategy used by the spd family
// of functions.
type Method int

const (
	// MethodQR uses a rank-revealing decomposition (SVD) which is more
	// robust on near-singular input.
	MethodQR Method = iota

	// MethodSchur uses the direct symmetric eigensolver.
	MethodSchur
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case MethodQR:
		return "QR"
	case MethodSchur:
		return "schur"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps a configuration string onto a Method.  The allowed
// values are "QR" and "schur".
func ParseMethod(s string) (Method, error) {
	switch s {
	case "QR":
		return MethodQR, nil
	case "schur":
		return MethodSchur, nil
	default:
		return 0, fmt.Errorf("numeric: unknown method %q, must be one of \"QR\", \"schur\"", s)
	}
}

// DefaultEpsilon is the conventional eigenvalue magnitude cutoff used by
// callers that have no reason to override it.
const DefaultEpsilon = 1e-10

// symTol is the relative tolerance for the symmetry check on input
// matrices.
const symTol = 1e-10

// IsDiagonalMatrix reports whether every off-diagonal entry of m is
// exactly zero.  Non-square matrices are never diagonal.
func IsDiagonalMatrix(m mat.Matrix) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i != j && m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// MDot computes the left-to-right chained product of two or more
// matrices of compatible shapes.
func MDot(ms ...mat.Matrix) (*mat.Dense, error) {
	if len(ms) < 2 {
		return nil, ErrTooFewOperands
	}
	_, c := ms[0].Dims()
	for _, m := range ms[1:] {
		r, cn := m.Dims()
		if r != c {
			return nil, ErrDimensionMismatch
		}
		c = cn
	}

	var prod mat.Dense
	prod.Mul(ms[0], ms[1])
	for _, m := range ms[2:] {
		var next mat.Dense
		next.Mul(&prod, m)
		prod = next
	}
	return &prod, nil
}

// checkSymmetric validates that m is square and symmetric within the
// relative tolerance symTol.  It returns the order of the matrix.
func checkSymmetric(m mat.Matrix) (int, error) {
	r, c := m.Dims()
	if r != c {
		return 0, ErrNonSquare
	}
	var scale float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := math.Abs(m.At(i, j)); v > scale {
				scale = v
			}
		}
	}
	tol := symTol * math.Max(scale, 1)
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol {
				return 0, ErrNotSymmetric
			}
		}
	}
	return r, nil
}

// symmetrize builds a SymDense holding (m + mᵀ)/2.  Only called after
// checkSymmetric, so the averaging removes roundoff noise at most.
func symmetrize(m mat.Matrix, n int) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return s
}
