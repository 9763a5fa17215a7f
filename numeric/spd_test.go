package numeric

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	methods  = []Method{MethodQR, MethodSchur}
	epsilons = []float64{1e-5, 1e-12}
)

// spdMatrix builds a 50x50 positive semi-definite matrix of rank 3 from
// a random 50x3 design.
func spdMatrix() *mat.Dense {
	rng := rand.New(rand.NewSource(7))
	x := randomDense(50, 3, 0.05, rng)
	var m mat.Dense
	m.Mul(x, x.T())
	return &m
}

// fullRankSPD builds a well-conditioned 5x5 SPD matrix with known
// eigenvalues 1..5.
func fullRankSPD(seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	var qr mat.QR
	qr.Factorize(randomDense(5, 5, 1, rng))
	var q mat.Dense
	qr.QTo(&q)

	d := mat.NewDense(5, 5, nil)
	for i := 0; i < 5; i++ {
		d.Set(i, i, float64(i+1))
	}
	spd, _ := MDot(&q, d, q.T())
	return spd
}

func TestSPDEig(t *testing.T) {
	m := spdMatrix()
	for _, method := range methods {
		for _, epsilon := range epsilons {
			for _, canonical := range []bool{false, true} {
				s, v, err := SPDEig(m, epsilon, method, canonical)
				require.NoError(t, err, "method=%v epsilon=%g", method, epsilon)
				require.Len(t, s, 3)

				assert.True(t, s[0] >= s[1] && s[1] >= s[2])

				// V diag(S) Vᵀ reconstructs the input.
				d := mat.NewDense(3, 3, nil)
				for i, e := range s {
					d.Set(i, i, e)
				}
				rec, err := MDot(v, d, v.T())
				require.NoError(t, err)
				assert.True(t, mat.EqualApprox(rec, m, 1e-8))

				// Orthonormal columns.
				var vtv mat.Dense
				vtv.Mul(v.T(), v)
				assert.True(t, mat.EqualApprox(&vtv, eye(3), 1e-8))

				if canonical {
					assertColumnMaxPositive(t, v)
				}
			}
		}
	}
}

func TestSPDEigRejectsBadInput(t *testing.T) {
	_, _, err := SPDEig(mat.NewDense(2, 3, nil), DefaultEpsilon, MethodSchur, false)
	assert.ErrorIs(t, err, ErrNonSquare)

	asym := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	_, _, err = SPDEig(asym, DefaultEpsilon, MethodSchur, false)
	assert.ErrorIs(t, err, ErrNotSymmetric)
}

func TestSPDInv(t *testing.T) {
	m := spdMatrix()
	for _, method := range methods {
		for _, epsilon := range epsilons {
			w, err := SPDInv(m, epsilon, method)
			require.NoError(t, err)

			sm, _, err := SPDEig(m, DefaultEpsilon, MethodSchur, false)
			require.NoError(t, err)
			sminv, _, err := SPDEig(w, DefaultEpsilon, MethodSchur, false)
			require.NoError(t, err)
			require.Len(t, sminv, len(sm))

			// Spectra are reciprocal: both sorted descending, the
			// largest eigenvalue of M pairs with the smallest of M⁻¹.
			for i, e := range sm {
				assert.InDelta(t, e, 1/sminv[len(sminv)-1-i], 1e-8)
			}
		}
	}
}

func TestSPDInvIdempotent(t *testing.T) {
	m := fullRankSPD(11)
	w, err := SPDInv(m, DefaultEpsilon, MethodSchur)
	require.NoError(t, err)
	ww, err := SPDInv(w, DefaultEpsilon, MethodSchur)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(ww, m, 1e-8))
}

func TestSPDInv1D(t *testing.T) {
	_, err := SPDInv(mat.NewDense(1, 1, []float64{1e-18}), 1e-10, MethodQR)
	var zr *ZeroRankError
	require.ErrorAs(t, err, &zr)

	w, err := SPDInv(mat.NewDense(1, 1, []float64{5}), DefaultEpsilon, MethodQR)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, w.At(0, 0), 1e-12)
}

func TestSPDEigZeroRank(t *testing.T) {
	z := mat.NewDense(3, 3, nil)
	_, _, err := SPDEig(z, 1e-10, MethodSchur, false)
	var zr *ZeroRankError
	require.ErrorAs(t, err, &zr)
}

func TestSPDInvSqrt(t *testing.T) {
	m := spdMatrix()
	for _, method := range methods {
		for _, epsilon := range epsilons {
			l, rank, err := SPDInvSqrt(m, epsilon, method)
			require.NoError(t, err)
			assert.Equal(t, 3, rank)

			var llt mat.Dense
			llt.Mul(l, l.T())
			w, err := SPDInv(m, epsilon, method)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(&llt, w, 1e-8))
		}
	}
}

func TestSPDInvSplit(t *testing.T) {
	m := spdMatrix()
	for _, method := range methods {
		for _, canonical := range []bool{false, true} {
			l, rank, err := SPDInvSplit(m, 1e-12, method, canonical)
			require.NoError(t, err)
			assert.Equal(t, 3, rank)

			var llt mat.Dense
			llt.Mul(l, l.T())
			w, err := SPDInv(m, 1e-12, method)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(&llt, w, 1e-8))

			if canonical {
				assertColumnMaxPositive(t, l)
			}
		}
	}
}

func TestSPDInvSplitNoCutoff(t *testing.T) {
	spd := fullRankSPD(13)

	l, rank, err := SPDInvSplit(spd, 0, MethodSchur, false)
	require.NoError(t, err)
	assert.Equal(t, 5, rank)

	var llt mat.Dense
	llt.Mul(l, l.T())

	var inv mat.Dense
	require.NoError(t, inv.Inverse(spd))
	assert.True(t, mat.EqualApprox(&llt, &inv, 1e-8))
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

func assertColumnMaxPositive(t *testing.T, v *mat.Dense) {
	t.Helper()
	r, c := v.Dims()
	for j := 0; j < c; j++ {
		mx := math.Inf(-1)
		for i := 0; i < r; i++ {
			if v.At(i, j) > mx {
				mx = v.At(i, j)
			}
		}
		assert.True(t, mx > 0, "column %d has no positive maximal entry", j)
	}
}
