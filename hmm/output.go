package hmm

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// stochasticTol is the tolerance for row sums of probability matrices.
const stochasticTol = 1e-8

// DiscreteOutputModel maps hidden states to distributions over discrete
// observable symbols.  The probability matrix is flat row-major with
// one row per hidden state, each row summing to one.
type DiscreteOutputModel struct {
	// Number of hidden states.
	NHidden int

	// Number of observable symbols.
	NObservable int

	// Probs[i*NObservable+k] = P(symbol k | hidden state i).
	Probs []float64
}

// NewDiscreteOutputModel validates and wraps an nHidden-by-nObservable
// row-stochastic probability matrix.
func NewDiscreteOutputModel(probs []float64, nHidden, nObservable int) (*DiscreteOutputModel, error) {
	if nHidden < 1 || nObservable < 1 || len(probs) != nHidden*nObservable {
		return nil, fmt.Errorf("hmm: output matrix length %d for %d x %d: %w",
			len(probs), nHidden, nObservable, ErrShapeMismatch)
	}
	if err := checkNonNegative(probs); err != nil {
		return nil, err
	}
	for i := 0; i < nHidden; i++ {
		s := floats.Sum(probs[i*nObservable : (i+1)*nObservable])
		if s < 1-stochasticTol || s > 1+stochasticTol {
			return nil, fmt.Errorf("hmm: output row %d sums to %v: %w", i, s, ErrNotStochastic)
		}
	}
	return &DiscreteOutputModel{
		NHidden:     nHidden,
		NObservable: nObservable,
		Probs:       probs,
	}, nil
}

// ToStateProbabilityTrajectory maps a discrete observation trajectory
// onto the T-by-NHidden matrix of per-step emission likelihoods:
// entry t*NHidden+i is P(dtraj[t] | hidden state i).  This is the
// evidence matrix consumed by Forward, Backward and Viterbi.
func (om *DiscreteOutputModel) ToStateProbabilityTrajectory(dtraj []int) ([]float64, error) {
	if len(dtraj) == 0 {
		return nil, fmt.Errorf("hmm: empty trajectory: %w", ErrShapeMismatch)
	}
	b := make([]float64, len(dtraj)*om.NHidden)
	for t, s := range dtraj {
		if s < 0 || s >= om.NObservable {
			return nil, fmt.Errorf("hmm: symbol %d at time %d, have %d symbols: %w",
				s, t, om.NObservable, ErrSymbolRange)
		}
		for i := 0; i < om.NHidden; i++ {
			b[t*om.NHidden+i] = om.Probs[i*om.NObservable+s]
		}
	}
	return b, nil
}

// Sample draws one observable symbol from the emission distribution of
// the given hidden state.
func (om *DiscreteOutputModel) Sample(state int, rng *rand.Rand) int {
	row := om.Probs[state*om.NObservable : (state+1)*om.NObservable]
	return sampleDiscrete(row, rng)
}

// SubModel restricts the output model to subsets of hidden states and
// observable symbols, renormalizing each remaining row.
func (om *DiscreteOutputModel) SubModel(states, obs []int) (*DiscreteOutputModel, error) {
	if len(states) == 0 || len(obs) == 0 {
		return nil, ErrEmptySelection
	}
	probs := make([]float64, len(states)*len(obs))
	for ii, i := range states {
		if i < 0 || i >= om.NHidden {
			return nil, fmt.Errorf("hmm: hidden state %d of %d: %w", i, om.NHidden, ErrShapeMismatch)
		}
		for kk, k := range obs {
			if k < 0 || k >= om.NObservable {
				return nil, fmt.Errorf("hmm: symbol %d of %d: %w", k, om.NObservable, ErrSymbolRange)
			}
			probs[ii*len(obs)+kk] = om.Probs[i*om.NObservable+k]
		}
	}
	for ii := range states {
		row := probs[ii*len(obs) : (ii+1)*len(obs)]
		z := floats.Sum(row)
		if z == 0 {
			return nil, fmt.Errorf("hmm: hidden state %d emits none of the selected symbols: %w",
				states[ii], ErrNotStochastic)
		}
		floats.Scale(1/z, row)
	}
	return &DiscreteOutputModel{
		NHidden:     len(states),
		NObservable: len(obs),
		Probs:       probs,
	}, nil
}

// sampleDiscrete draws an index from a discrete distribution by a
// cumulative scan.  Returns the last index if roundoff leaves the
// cumulative sum short of the draw.
func sampleDiscrete(dist []float64, rng *rand.Rand) int {
	u := rng.Float64()
	var cum float64
	for i, p := range dist {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(dist) - 1
}
