package numeric

import (
	"gonum.org/v1/gonum/mat"
)

// EigCorr solves the generalized eigenvalue problem
//
//	Ctt v = λ C00 v
//
// restricted to the numerically well-conditioned subspace of c00.  The
// problem is whitened with L = SPDInvSplit(c00), reduced to the
// symmetric rank×rank matrix Lᵀ Ctt L, eigendecomposed there and mapped
// back through v = L·r.  Eigenvalues come sorted by descending
// magnitude; the retained rank of c00 equals the number of eigenpairs
// returned.
//
// Both inputs must be symmetric; asymmetric matrices are rejected with
// ErrNotSymmetric.  If the cutoff discards the whole spectrum of c00 the
// error is a *ZeroRankError.
func EigCorr(c00, ctt mat.Matrix, epsilon float64, method Method, canonicalSigns bool) ([]float64, *mat.Dense, int, error) {
	n, err := checkSymmetric(c00)
	if err != nil {
		return nil, nil, 0, err
	}
	nt, err := checkSymmetric(ctt)
	if err != nil {
		return nil, nil, 0, err
	}
	if n != nt {
		return nil, nil, 0, ErrDimensionMismatch
	}

	l, rank, err := spdInvSplit(c00, epsilon, method, false)
	if err != nil {
		return nil, nil, 0, err
	}

	// Reduced matrix Lᵀ Ctt L.  Symmetric up to roundoff since both
	// inputs passed the symmetry check; the averaging inside symmetrize
	// removes that roundoff before the symmetric solver runs.
	red, err := MDot(l.T(), ctt, l)
	if err != nil {
		return nil, nil, 0, err
	}
	s, r, err := spdEigFull(symmetrize(red, rank), method)
	if err != nil {
		return nil, nil, 0, err
	}

	var vecs mat.Dense
	vecs.Mul(l, r)
	if canonicalSigns {
		canonicalizeSigns(&vecs)
	}
	return s, &vecs, rank, nil
}
