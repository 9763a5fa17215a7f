package numeric

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// spdEigFull computes the complete symmetric eigendecomposition of w
// using the selected strategy.  Eigenpairs are returned sorted by
// descending eigenvalue magnitude; vectors are the columns of v.
func spdEigFull(w *mat.SymDense, method Method) (s []float64, v *mat.Dense, err error) {
	n := w.SymmetricDim()

	switch method {
	case MethodSchur:
		var es mat.EigenSym
		if !es.Factorize(w, true) {
			return nil, nil, fmt.Errorf("numeric: symmetric eigendecomposition failed to converge")
		}
		s = es.Values(nil)
		var vecs mat.Dense
		es.VectorsTo(&vecs)

		// EigenSym returns ascending eigenvalues; reorder by magnitude.
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return math.Abs(s[idx[a]]) > math.Abs(s[idx[b]])
		})
		sorted := make([]float64, n)
		v = mat.NewDense(n, n, nil)
		for j, k := range idx {
			sorted[j] = s[k]
			for i := 0; i < n; i++ {
				v.Set(i, j, vecs.At(i, k))
			}
		}
		return sorted, v, nil

	case MethodQR:
		// Rank-revealing route: singular vectors of a symmetric matrix
		// are its eigenvectors, singular values their magnitudes.  The
		// sign of each eigenvalue is recovered from the Rayleigh
		// quotient uᵀWu.
		var svd mat.SVD
		if !svd.Factorize(w, mat.SVDThin) {
			return nil, nil, fmt.Errorf("numeric: singular value decomposition failed to converge")
		}
		var u mat.Dense
		svd.UTo(&u)
		sv := svd.Values(nil)

		s = make([]float64, n)
		for j := 0; j < n; j++ {
			var q float64
			for i := 0; i < n; i++ {
				var wu float64
				for k := 0; k < n; k++ {
					wu += w.At(i, k) * u.At(k, j)
				}
				q += u.At(i, j) * wu
			}
			if q < 0 {
				s[j] = -sv[j]
			} else {
				s[j] = sv[j]
			}
		}
		return s, &u, nil

	default:
		return nil, nil, fmt.Errorf("numeric: unknown method %q, must be one of \"QR\", \"schur\"", method)
	}
}

// truncateRank discards eigenpairs whose magnitude falls below the
// cutoff.  The cutoff is absolute; when the most negative eigenvalue of
// a nominally PSD matrix undercuts zero by roundoff, the cutoff is
// raised to just above its magnitude so that no negative direction
// survives.  Returns the retained count, or a *ZeroRankError.
func truncateRank(s []float64, epsilon float64) (int, error) {
	evmin := s[0]
	for _, e := range s[1:] {
		if e < evmin {
			evmin = e
		}
	}
	if evmin < 0 && -evmin+1e-16 > epsilon {
		epsilon = -evmin + 1e-16
	}
	m := 0
	for _, e := range s {
		if math.Abs(e) >= epsilon {
			m++
		}
	}
	if m == 0 {
		return 0, &ZeroRankError{Epsilon: epsilon}
	}
	return m, nil
}

// canonicalizeSigns flips each column of v so that its first
// maximal-magnitude component is positive.  This pins down the sign
// ambiguity of eigenvectors so results are stable across platforms.
func canonicalizeSigns(v *mat.Dense) {
	r, c := v.Dims()
	for j := 0; j < c; j++ {
		jj := 0
		for i := 1; i < r; i++ {
			if math.Abs(v.At(i, j)) > math.Abs(v.At(jj, j)) {
				jj = i
			}
		}
		if v.At(jj, j) < 0 {
			for i := 0; i < r; i++ {
				v.Set(i, j, -v.At(i, j))
			}
		}
	}
}

// SPDEig computes the rank-truncated eigendecomposition of the symmetric
// positive (semi-)definite matrix w.  It returns the retained
// eigenvalues sorted by descending magnitude and the matrix whose
// columns are the corresponding orthonormal eigenvectors, so that
// V diag(S) Vᵀ reconstructs w up to the truncated-rank residual.
//
// Eigenvalues of magnitude below epsilon are discarded; if none survive
// the error is a *ZeroRankError.  With canonicalSigns each eigenvector
// is flipped so its largest-magnitude component is positive.
func SPDEig(w mat.Matrix, epsilon float64, method Method, canonicalSigns bool) ([]float64, *mat.Dense, error) {
	n, err := checkSymmetric(w)
	if err != nil {
		return nil, nil, err
	}
	s, v, err := spdEigFull(symmetrize(w, n), method)
	if err != nil {
		return nil, nil, err
	}
	m, err := truncateRank(s, epsilon)
	if err != nil {
		return nil, nil, err
	}
	vm := mat.DenseCopyOf(v.Slice(0, n, 0, m))
	if canonicalSigns {
		canonicalizeSigns(vm)
	}
	return s[:m], vm, nil
}

// SPDInv computes the pseudo-inverse of w on its numerically significant
// subspace: V diag(1/S) Vᵀ restricted to the rank retained by the
// epsilon cutoff.  Discarded directions contribute zero.
func SPDInv(w mat.Matrix, epsilon float64, method Method) (*mat.Dense, error) {
	if n, _ := w.Dims(); n == 1 {
		if _, err := checkSymmetric(w); err != nil {
			return nil, err
		}
		if w.At(0, 0) < epsilon {
			return nil, &ZeroRankError{Epsilon: epsilon}
		}
		return mat.NewDense(1, 1, []float64{1 / w.At(0, 0)}), nil
	}

	s, v, err := SPDEig(w, epsilon, method, false)
	if err != nil {
		return nil, err
	}
	n, m := v.Dims()
	inv := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k := 0; k < m; k++ {
				sum += v.At(i, k) * v.At(j, k) / s[k]
			}
			inv.Set(i, j, sum)
			inv.Set(j, i, sum)
		}
	}
	return inv, nil
}

// SPDInvSqrt computes a factor L with L Lᵀ equal to the pseudo-inverse
// of w, restricted to the retained rank.  L has one column per retained
// eigendirection, so it is d×rank rather than square.  The retained rank
// is always returned alongside the factor.
func SPDInvSqrt(w mat.Matrix, epsilon float64, method Method) (*mat.Dense, int, error) {
	return spdInvSplit(w, epsilon, method, false)
}

// SPDInvSplit is SPDInvSqrt routed through the canonical-sign
// convention, making the factor itself reproducible across calls and
// platforms rather than only the product L Lᵀ.
func SPDInvSplit(w mat.Matrix, epsilon float64, method Method, canonicalSigns bool) (*mat.Dense, int, error) {
	return spdInvSplit(w, epsilon, method, canonicalSigns)
}

func spdInvSplit(w mat.Matrix, epsilon float64, method Method, canonicalSigns bool) (*mat.Dense, int, error) {
	if n, _ := w.Dims(); n == 1 {
		if _, err := checkSymmetric(w); err != nil {
			return nil, 0, err
		}
		if w.At(0, 0) < epsilon {
			return nil, 0, &ZeroRankError{Epsilon: epsilon}
		}
		return mat.NewDense(1, 1, []float64{1 / math.Sqrt(w.At(0, 0))}), 1, nil
	}

	s, v, err := SPDEig(w, epsilon, method, canonicalSigns)
	if err != nil {
		return nil, 0, err
	}
	n, m := v.Dims()
	l := mat.NewDense(n, m, nil)
	for j := 0; j < m; j++ {
		isq := 1 / math.Sqrt(s[j])
		for i := 0; i < n; i++ {
			l.Set(i, j, v.At(i, j)*isq)
		}
	}
	return l, m, nil
}
