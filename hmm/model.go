package hmm

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/charygao/deeptime/numeric"
)

// HiddenMarkovModel couples a row-stochastic transition matrix over
// hidden states with an initial distribution and a discrete output
// model.  The transition matrix and distributions are owned by the
// model and must not be mutated after construction.
type HiddenMarkovModel struct {
	// Trans is the flat row-major n-by-n hidden transition matrix.
	Trans []float64

	// Init is the initial distribution over hidden states.
	Init []float64

	// Output maps hidden states to observable symbol distributions.
	Output *DiscreteOutputModel
}

// New validates the parameters and builds a model.  A nil init defaults
// to the uniform distribution over hidden states.
func New(trans, init []float64, output *DiscreteOutputModel) (*HiddenMarkovModel, error) {
	if output == nil {
		return nil, fmt.Errorf("hmm: nil output model: %w", ErrShapeMismatch)
	}
	n := output.NHidden
	if len(trans) != n*n {
		return nil, fmt.Errorf("hmm: transition matrix length %d for %d hidden states: %w",
			len(trans), n, ErrShapeMismatch)
	}
	if err := checkNonNegative(trans); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		s := floats.Sum(trans[i*n : (i+1)*n])
		if s < 1-stochasticTol || s > 1+stochasticTol {
			return nil, fmt.Errorf("hmm: transition row %d sums to %v: %w", i, s, ErrNotStochastic)
		}
	}
	if init == nil {
		init = make([]float64, n)
		for i := range init {
			init[i] = 1 / float64(n)
		}
	}
	if err := checkInit(init, n); err != nil {
		return nil, err
	}
	if s := floats.Sum(init); s < 1-stochasticTol || s > 1+stochasticTol {
		return nil, fmt.Errorf("hmm: initial distribution sums to %v: %w", s, ErrNotStochastic)
	}
	return &HiddenMarkovModel{Trans: trans, Init: init, Output: output}, nil
}

// NHiddenStates returns the number of hidden states.
func (m *HiddenMarkovModel) NHiddenStates() int { return m.Output.NHidden }

// NObservationStates returns the number of observable symbols.
func (m *HiddenMarkovModel) NObservationStates() int { return m.Output.NObservable }

// transDense copies the transition matrix into a gonum dense matrix.
func (m *HiddenMarkovModel) transDense() *mat.Dense {
	n := m.NHiddenStates()
	data := make([]float64, len(m.Trans))
	copy(data, m.Trans)
	return mat.NewDense(n, n, data)
}

// transPower returns the k-th power of the transition matrix, k >= 0.
func (m *HiddenMarkovModel) transPower(k int) *mat.Dense {
	n := m.NHiddenStates()
	if k == 0 {
		p := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			p.Set(i, i, 1)
		}
		return p
	}
	p := m.transDense()
	for i := 1; i < k; i++ {
		var next mat.Dense
		next.Mul(p, m.transDense())
		p = &next
	}
	return p
}

// eigen decomposes the transition matrix with the general (possibly
// complex) eigensolver.
func (m *HiddenMarkovModel) eigen() (*mat.Eigen, error) {
	var eig mat.Eigen
	if !eig.Factorize(m.transDense(), mat.EigenRight) {
		return nil, fmt.Errorf("hmm: eigendecomposition of transition matrix failed")
	}
	return &eig, nil
}

// StationaryDistribution computes the stationary distribution of the
// hidden transition matrix as the left eigenvector for eigenvalue one,
// normalized to sum to one.
func (m *HiddenMarkovModel) StationaryDistribution() ([]float64, error) {
	n := m.NHiddenStates()
	if n == 1 {
		return []float64{1}, nil
	}

	// Left eigenvectors of P are right eigenvectors of Pᵀ.
	tr := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			tr.Set(i, j, m.Trans[j*n+i])
		}
	}
	var eig mat.Eigen
	if !eig.Factorize(tr, mat.EigenRight) {
		return nil, fmt.Errorf("hmm: eigendecomposition of transition matrix failed")
	}
	vals := eig.Values(nil)
	k := 0
	for i, v := range vals {
		if cmplx.Abs(v-1) < cmplx.Abs(vals[k]-1) {
			k = i
		}
	}
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	pi := make([]float64, n)
	for i := 0; i < n; i++ {
		pi[i] = math.Abs(real(vecs.At(i, k)))
	}
	floats.Scale(1/floats.Sum(pi), pi)
	return pi, nil
}

// Eigenvalues returns the real parts of the transition matrix spectrum
// sorted by descending magnitude, the unit eigenvalue first.
func (m *HiddenMarkovModel) Eigenvalues() ([]float64, error) {
	eig, err := m.eigen()
	if err != nil {
		return nil, err
	}
	vals := eig.Values(nil)
	ev := make([]float64, len(vals))
	for i, v := range vals {
		ev[i] = real(v)
	}
	sort.SliceStable(ev, func(a, b int) bool {
		return math.Abs(ev[a]) > math.Abs(ev[b])
	})
	return ev, nil
}

// Timescales returns the implied relaxation timescales
// -lagtime / ln|λ_i| for the non-unit eigenvalues, largest first.
func (m *HiddenMarkovModel) Timescales(lagtime float64) ([]float64, error) {
	ev, err := m.Eigenvalues()
	if err != nil {
		return nil, err
	}
	ts := make([]float64, len(ev)-1)
	for i, v := range ev[1:] {
		ts[i] = -lagtime / math.Log(math.Abs(v))
	}
	return ts, nil
}

// Lifetimes returns the state lifetimes -lagtime / ln(p_ii) implied by
// the diagonal of the hidden transition matrix.
func (m *HiddenMarkovModel) Lifetimes(lagtime float64) []float64 {
	n := m.NHiddenStates()
	lt := make([]float64, n)
	for i := 0; i < n; i++ {
		lt[i] = -lagtime / math.Log(m.Trans[i*n+i])
	}
	return lt
}

// StationaryDistributionObs projects the hidden stationary distribution
// into observable space through the output probabilities.
func (m *HiddenMarkovModel) StationaryDistributionObs() ([]float64, error) {
	pi, err := m.StationaryDistribution()
	if err != nil {
		return nil, err
	}
	n, no := m.NHiddenStates(), m.NObservationStates()
	piObs := make([]float64, no)
	for i := 0; i < n; i++ {
		for k := 0; k < no; k++ {
			piObs[k] += pi[i] * m.Output.Probs[i*no+k]
		}
	}
	return piObs, nil
}

// MetastableMemberships computes, by Bayesian inversion, the membership
// probability of each observable symbol in each hidden (metastable)
// state.  Rows of the returned nObservable-by-nHidden matrix sum to one
// for symbols with nonzero stationary weight.
func (m *HiddenMarkovModel) MetastableMemberships() ([]float64, error) {
	piObs, err := m.StationaryDistributionObs()
	if err != nil {
		return nil, err
	}
	pi, err := m.StationaryDistribution()
	if err != nil {
		return nil, err
	}
	n, no := m.NHiddenStates(), m.NObservationStates()
	mem := make([]float64, no*n)
	for k := 0; k < no; k++ {
		if piObs[k] == 0 {
			continue
		}
		row := mem[k*n : (k+1)*n]
		for i := 0; i < n; i++ {
			row[i] = pi[i] * m.Output.Probs[i*no+k] / piObs[k]
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return mem, nil
}

// MetastableAssignments assigns each observable symbol to the hidden
// state most likely to emit it.
func (m *HiddenMarkovModel) MetastableAssignments() []int {
	n, no := m.NHiddenStates(), m.NObservationStates()
	assign := make([]int, no)
	for k := 0; k < no; k++ {
		best := 0
		for i := 1; i < n; i++ {
			if m.Output.Probs[i*no+k] > m.Output.Probs[best*no+k] {
				best = i
			}
		}
		assign[k] = best
	}
	return assign
}

// MetastableSets groups observable symbols by their metastable
// assignment, one set per hidden state.
func (m *HiddenMarkovModel) MetastableSets() [][]int {
	sets := make([][]int, m.NHiddenStates())
	for k, i := range m.MetastableAssignments() {
		sets[i] = append(sets[i], k)
	}
	return sets
}

// TransitionMatrixObs computes the transition matrix between observable
// symbols at k multiples of the model lag time.  An HMM is not
// Markovian in observation space, so the hidden (coarse) matrix is
// propagated and projected: C = Bᵀ diag(π) Pᵏ B, row-normalized.
func (m *HiddenMarkovModel) TransitionMatrixObs(k int) ([]float64, error) {
	if k < 1 {
		return nil, fmt.Errorf("hmm: power %d must be positive: %w", k, ErrShapeMismatch)
	}
	pi, err := m.StationaryDistribution()
	if err != nil {
		return nil, err
	}
	n, no := m.NHiddenStates(), m.NObservationStates()
	piC := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		piC.Set(i, i, pi[i])
	}
	b := mat.NewDense(n, no, m.Output.Probs)

	c, err := numeric.MDot(b.T(), piC, m.transPower(k), b)
	if err != nil {
		return nil, err
	}
	p := make([]float64, no*no)
	for i := 0; i < no; i++ {
		row := p[i*no : (i+1)*no]
		for j := 0; j < no; j++ {
			row[j] = c.At(i, j)
		}
		z := floats.Sum(row)
		if z == 0 {
			return nil, fmt.Errorf("hmm: observable symbol %d has zero stationary flux: %w", i, ErrNotStochastic)
		}
		floats.Scale(1/z, row)
	}
	return p, nil
}

// Propagate pushes a distribution p0 over observable symbols forward by
// k steps of the hidden dynamics and returns the propagated observable
// distribution, normalized to sum to one.  k == 0 only normalizes.
func (m *HiddenMarkovModel) Propagate(p0 []float64, k int) ([]float64, error) {
	no := m.NObservationStates()
	if len(p0) != no {
		return nil, fmt.Errorf("hmm: distribution length %d for %d symbols: %w", len(p0), no, ErrShapeMismatch)
	}
	if err := checkNonNegative(p0); err != nil {
		return nil, err
	}
	out := make([]float64, no)
	copy(out, p0)
	if k == 0 {
		floats.Scale(1/floats.Sum(out), out)
		return out, nil
	}

	// Project into hidden space, propagate, project back.
	n := m.NHiddenStates()
	h := mat.NewDense(1, n, nil)
	for i := 0; i < n; i++ {
		var sum float64
		for kk := 0; kk < no; kk++ {
			sum += m.Output.Probs[i*no+kk] * p0[kk]
		}
		h.Set(0, i, sum)
	}
	b := mat.NewDense(n, no, m.Output.Probs)
	pk, err := numeric.MDot(h, m.transPower(k), b)
	if err != nil {
		return nil, err
	}
	for kk := 0; kk < no; kk++ {
		out[kk] = pk.At(0, kk)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out, nil
}

// ComputeViterbiPaths decodes the most likely hidden path for each
// discrete observation trajectory.
func (m *HiddenMarkovModel) ComputeViterbiPaths(dtrajs [][]int) ([][]int, error) {
	paths := make([][]int, len(dtrajs))
	for i, dtraj := range dtrajs {
		b, err := m.Output.ToStateProbabilityTrajectory(dtraj)
		if err != nil {
			return nil, err
		}
		path, err := Viterbi(m.Trans, b, m.Init, m.NHiddenStates(), nil)
		if err != nil {
			return nil, err
		}
		paths[i] = path
	}
	return paths, nil
}

// Simulate generates a realization of length n.  The hidden chain
// starts in state start, or in a state sampled from the stationary
// distribution when start is negative.  Returns the hidden state
// trajectory and the emitted observable trajectory.
func (m *HiddenMarkovModel) Simulate(n int, start int, rng *rand.Rand) ([]int, []int, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("hmm: trajectory length %d: %w", n, ErrShapeMismatch)
	}
	ns := m.NHiddenStates()
	if start >= ns {
		return nil, nil, fmt.Errorf("hmm: start state %d of %d: %w", start, ns, ErrShapeMismatch)
	}
	if start < 0 {
		pi, err := m.StationaryDistribution()
		if err != nil {
			return nil, nil, err
		}
		start = sampleDiscrete(pi, rng)
	}

	hidden := make([]int, n)
	observed := make([]int, n)
	hidden[0] = start
	observed[0] = m.Output.Sample(start, rng)
	for t := 1; t < n; t++ {
		prev := hidden[t-1]
		hidden[t] = sampleDiscrete(m.Trans[prev*ns:(prev+1)*ns], rng)
		observed[t] = m.Output.Sample(hidden[t], rng)
	}
	return hidden, observed, nil
}
