package hmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// checkNonNegative returns ErrNegativeEntry if x carries a negative value.
func checkNonNegative(x []float64) error {
	for _, v := range x {
		if v < 0 {
			return ErrNegativeEntry
		}
	}
	return nil
}

// checkSeqInputs validates the transition matrix and state probability
// trajectory against the state count and returns the number of time
// points.
func checkSeqInputs(trans, stateProbs []float64, n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("hmm: state count %d: %w", n, ErrShapeMismatch)
	}
	if len(trans) != n*n {
		return 0, fmt.Errorf("hmm: transition matrix length %d for %d states: %w", len(trans), n, ErrShapeMismatch)
	}
	if len(stateProbs) == 0 || len(stateProbs)%n != 0 {
		return 0, fmt.Errorf("hmm: state probability trajectory length %d for %d states: %w", len(stateProbs), n, ErrShapeMismatch)
	}
	if err := checkNonNegative(trans); err != nil {
		return 0, err
	}
	if err := checkNonNegative(stateProbs); err != nil {
		return 0, err
	}
	return len(stateProbs) / n, nil
}

func checkInit(init []float64, n int) error {
	if len(init) != n {
		return fmt.Errorf("hmm: initial distribution length %d for %d states: %w", len(init), n, ErrShapeMismatch)
	}
	return checkNonNegative(init)
}

// floatBuffer returns out when the caller supplied one of the correct
// length, otherwise a fresh slice.  Supplied buffers are scratch space
// exclusively owned for the duration of the call; stale content is
// never read.
func floatBuffer(out []float64, size int) ([]float64, error) {
	if out == nil {
		return make([]float64, size), nil
	}
	if len(out) != size {
		return nil, fmt.Errorf("hmm: output buffer length %d, need %d: %w", len(out), size, ErrShapeMismatch)
	}
	return out, nil
}

// Forward computes the scaled forward variables for one trajectory.
//
// trans is the n-by-n row-stochastic hidden transition matrix,
// stateProbs the T-by-n state probability trajectory and init the
// initial distribution over hidden states.  Each row of the returned
// alpha is normalized to sum to one; the accumulated log of the
// per-step normalizers is the log-likelihood of the evidence.
//
// alphaOut is an optional caller-owned buffer of length T*n.  If an
// observation has zero probability under every hidden state the call
// fails with ErrDegenerateObservation.
func Forward(trans, stateProbs, init []float64, n int, alphaOut []float64) (float64, []float64, error) {
	nt, err := checkSeqInputs(trans, stateProbs, n)
	if err != nil {
		return 0, nil, err
	}
	if err := checkInit(init, n); err != nil {
		return 0, nil, err
	}
	alpha, err := floatBuffer(alphaOut, nt*n)
	if err != nil {
		return 0, nil, err
	}

	var logLik float64

	floats.MulTo(alpha[0:n], init, stateProbs[0:n])
	z := floats.Sum(alpha[0:n])
	if z == 0 {
		return 0, nil, fmt.Errorf("hmm: time 0: %w", ErrDegenerateObservation)
	}
	floats.Scale(1/z, alpha[0:n])
	logLik += math.Log(z)

	for t := 1; t < nt; t++ {
		prev := alpha[(t-1)*n : t*n]
		row := alpha[t*n : (t+1)*n]
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				sum += prev[j] * trans[j*n+i]
			}
			row[i] = sum * stateProbs[t*n+i]
		}
		z = floats.Sum(row)
		if z == 0 {
			return 0, nil, fmt.Errorf("hmm: time %d: %w", t, ErrDegenerateObservation)
		}
		floats.Scale(1/z, row)
		logLik += math.Log(z)
	}

	return logLik, alpha, nil
}

// Backward computes the scaled backward variables for one trajectory.
// Every row, the terminal one included, is normalized by its sum; the
// normalizers are discarded since Forward already accounts for the
// likelihood.  betaOut is an optional caller-owned buffer of length T*n.
func Backward(trans, stateProbs []float64, n int, betaOut []float64) ([]float64, error) {
	nt, err := checkSeqInputs(trans, stateProbs, n)
	if err != nil {
		return nil, err
	}
	beta, err := floatBuffer(betaOut, nt*n)
	if err != nil {
		return nil, err
	}

	last := beta[(nt-1)*n : nt*n]
	for i := range last {
		last[i] = 1 / float64(n)
	}

	for t := nt - 2; t >= 0; t-- {
		next := beta[(t+1)*n : (t+2)*n]
		row := beta[t*n : (t+1)*n]
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				sum += trans[i*n+j] * stateProbs[(t+1)*n+j] * next[j]
			}
			row[i] = sum
		}
		z := floats.Sum(row)
		if z == 0 {
			return nil, fmt.Errorf("hmm: time %d: %w", t+1, ErrDegenerateObservation)
		}
		floats.Scale(1/z, row)
	}

	return beta, nil
}

// StateProbabilities combines forward and backward variables into the
// posterior gamma: gamma[t,i] = P(hidden state i at time t | evidence),
// each row summing to one.  gammaOut is an optional caller-owned buffer
// of length T*n.
func StateProbabilities(alpha, beta []float64, n int, gammaOut []float64) ([]float64, error) {
	if n < 1 || len(alpha) == 0 || len(alpha)%n != 0 || len(alpha) != len(beta) {
		return nil, fmt.Errorf("hmm: alpha length %d, beta length %d for %d states: %w",
			len(alpha), len(beta), n, ErrShapeMismatch)
	}
	if err := checkNonNegative(alpha); err != nil {
		return nil, err
	}
	if err := checkNonNegative(beta); err != nil {
		return nil, err
	}
	gamma, err := floatBuffer(gammaOut, len(alpha))
	if err != nil {
		return nil, err
	}

	nt := len(alpha) / n
	for t := 0; t < nt; t++ {
		row := gamma[t*n : (t+1)*n]
		floats.MulTo(row, alpha[t*n:(t+1)*n], beta[t*n:(t+1)*n])
		z := floats.Sum(row)
		if z == 0 {
			return nil, fmt.Errorf("hmm: time %d: %w", t, ErrDegenerateObservation)
		}
		floats.Scale(1/z, row)
	}

	return gamma, nil
}

// Viterbi computes the single most likely hidden state sequence for one
// trajectory.  The dynamic program runs in scaled probability space
// with back-pointers; ties resolve to the lowest state index.  pathOut
// is an optional caller-owned buffer of length T.
func Viterbi(trans, stateProbs, init []float64, n int, pathOut []int) ([]int, error) {
	nt, err := checkSeqInputs(trans, stateProbs, n)
	if err != nil {
		return nil, err
	}
	if err := checkInit(init, n); err != nil {
		return nil, err
	}
	var path []int
	if pathOut == nil {
		path = make([]int, nt)
	} else {
		if len(pathOut) != nt {
			return nil, fmt.Errorf("hmm: path buffer length %d, need %d: %w", len(pathOut), nt, ErrShapeMismatch)
		}
		path = pathOut
	}

	v := make([]float64, n)
	vnext := make([]float64, n)
	ptr := make([]int, nt*n)

	floats.MulTo(v, init, stateProbs[0:n])
	z := floats.Sum(v)
	if z == 0 {
		return nil, fmt.Errorf("hmm: time 0: %w", ErrDegenerateObservation)
	}
	floats.Scale(1/z, v)

	for t := 1; t < nt; t++ {
		for i := 0; i < n; i++ {
			best, bestj := v[0]*trans[i], 0
			for j := 1; j < n; j++ {
				if p := v[j] * trans[j*n+i]; p > best {
					best, bestj = p, j
				}
			}
			ptr[t*n+i] = bestj
			vnext[i] = best * stateProbs[t*n+i]
		}
		z = floats.Sum(vnext)
		if z == 0 {
			return nil, fmt.Errorf("hmm: time %d: %w", t, ErrDegenerateObservation)
		}
		floats.Scale(1/z, vnext)
		v, vnext = vnext, v
	}

	path[nt-1] = argmax(v)
	for t := nt - 2; t >= 0; t-- {
		path[t] = ptr[(t+1)*n+path[t+1]]
	}

	return path, nil
}

// argmax returns the index of the largest element; the lowest index
// wins on ties.
func argmax(x []float64) int {
	j := 0
	v := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > v {
			v = x[i]
			j = i
		}
	}
	return j
}
