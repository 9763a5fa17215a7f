package hmm

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// CountTransitions accumulates a flat n-by-n transition count matrix
// from decoded hidden state paths.  States outside [0, n) are a caller
// error.
func CountTransitions(paths [][]int, n int) ([]float64, error) {
	counts := make([]float64, n*n)
	for _, path := range paths {
		for t := 0; t+1 < len(path); t++ {
			a, b := path[t], path[t+1]
			if a < 0 || a >= n || b < 0 || b >= n {
				return nil, fmt.Errorf("hmm: state %d or %d of %d in path: %w", a, b, n, ErrShapeMismatch)
			}
			counts[a*n+b]++
		}
	}
	return counts, nil
}

// ConnectedSets partitions the states 0..n-1 into connected components
// of the graph whose edges are count entries strictly above threshold.
// With directed set, components are strongly connected (Tarjan),
// otherwise weakly connected (traversal of the symmetrized graph).
// Components come largest first, states ascending within each.
func ConnectedSets(counts []float64, n int, threshold float64, directed bool) ([][]int, error) {
	if len(counts) != n*n {
		return nil, fmt.Errorf("hmm: count matrix length %d for %d states: %w", len(counts), n, ErrShapeMismatch)
	}
	var sets [][]int
	if directed {
		sets = stronglyConnected(counts, n, threshold)
	} else {
		sets = weaklyConnected(counts, n, threshold)
	}
	for _, s := range sets {
		sort.Ints(s)
	}
	sort.SliceStable(sets, func(a, b int) bool {
		return len(sets[a]) > len(sets[b])
	})
	return sets, nil
}

// weaklyConnected labels components by queue traversal over the
// symmetrized adjacency.
func weaklyConnected(counts []float64, n int, threshold float64) [][]int {
	visited := make([]bool, n)
	var sets [][]int
	for s := 0; s < n; s++ {
		if visited[s] {
			continue
		}
		comp := []int{s}
		visited[s] = true
		for q := 0; q < len(comp); q++ {
			u := comp[q]
			for v := 0; v < n; v++ {
				if visited[v] {
					continue
				}
				if counts[u*n+v] > threshold || counts[v*n+u] > threshold {
					visited[v] = true
					comp = append(comp, v)
				}
			}
		}
		sets = append(sets, comp)
	}
	return sets
}

// stronglyConnected computes strongly connected components with
// Tarjan's algorithm.
func stronglyConnected(counts []float64, n int, threshold float64) [][]int {
	const unvisited = -1
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}
	var (
		stack []int
		next  int
		sets  [][]int
	)

	var strongconnect func(u int)
	strongconnect = func(u int) {
		index[u] = next
		low[u] = next
		next++
		stack = append(stack, u)
		onStack[u] = true

		for v := 0; v < n; v++ {
			if counts[u*n+v] <= threshold || v == u {
				continue
			}
			if index[v] == unvisited {
				strongconnect(v)
				if low[v] < low[u] {
					low[u] = low[v]
				}
			} else if onStack[v] && index[v] < low[u] {
				low[u] = index[v]
			}
		}

		if low[u] == index[u] {
			var comp []int
			for {
				v := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[v] = false
				comp = append(comp, v)
				if v == u {
					break
				}
			}
			sets = append(sets, comp)
		}
	}

	for u := 0; u < n; u++ {
		if index[u] == unvisited {
			strongconnect(u)
		}
	}
	return sets
}

// LargestConnectedSet returns the connected component with the most
// states.
func LargestConnectedSet(counts []float64, n int, threshold float64, directed bool) ([]int, error) {
	sets, err := ConnectedSets(counts, n, threshold, directed)
	if err != nil {
		return nil, err
	}
	return sets[0], nil
}

// PopulousConnectedSet returns the connected component with the largest
// total intra-set transition count.
func PopulousConnectedSet(counts []float64, n int, threshold float64, directed bool) ([]int, error) {
	sets, err := ConnectedSets(counts, n, threshold, directed)
	if err != nil {
		return nil, err
	}
	best, bestScore := 0, -1.0
	for i, s := range sets {
		var score float64
		for _, a := range s {
			for _, b := range s {
				score += counts[a*n+b]
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return sets[best], nil
}

// SubModel restricts the model to subsets of hidden states and
// observable symbols.  Transition rows and the initial distribution are
// renormalized over the retained states; nil obs keeps all symbols.
func (m *HiddenMarkovModel) SubModel(states, obs []int) (*HiddenMarkovModel, error) {
	if len(states) == 0 {
		return nil, ErrEmptySelection
	}
	n := m.NHiddenStates()
	if obs == nil {
		obs = make([]int, m.NObservationStates())
		for k := range obs {
			obs[k] = k
		}
	}

	ns := len(states)
	trans := make([]float64, ns*ns)
	for ii, i := range states {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("hmm: hidden state %d of %d: %w", i, n, ErrShapeMismatch)
		}
		row := trans[ii*ns : (ii+1)*ns]
		for jj, j := range states {
			row[jj] = m.Trans[i*n+j]
		}
		z := floats.Sum(row)
		if z == 0 {
			return nil, fmt.Errorf("hmm: state %d disconnected from selection: %w", i, ErrNotStochastic)
		}
		floats.Scale(1/z, row)
	}

	init := make([]float64, ns)
	for ii, i := range states {
		init[ii] = m.Init[i]
	}
	z := floats.Sum(init)
	if z == 0 {
		return nil, fmt.Errorf("hmm: selected states have zero initial probability: %w", ErrNotStochastic)
	}
	floats.Scale(1/z, init)

	output, err := m.Output.SubModel(states, obs)
	if err != nil {
		return nil, err
	}
	return New(trans, init, output)
}

// SubModelLargest restricts the model to the largest connected set of
// the thresholded count matrix.
func (m *HiddenMarkovModel) SubModelLargest(counts []float64, threshold float64, directed bool) (*HiddenMarkovModel, error) {
	states, err := LargestConnectedSet(counts, m.NHiddenStates(), threshold, directed)
	if err != nil {
		return nil, err
	}
	return m.SubModel(states, nil)
}

// SubModelPopulous restricts the model to the most populated connected
// set of the thresholded count matrix.
func (m *HiddenMarkovModel) SubModelPopulous(counts []float64, threshold float64, directed bool) (*HiddenMarkovModel, error) {
	states, err := PopulousConnectedSet(counts, m.NHiddenStates(), threshold, directed)
	if err != nil {
		return nil, err
	}
	return m.SubModel(states, nil)
}

// SubModelDisconnect drops states whose connections fall below the
// threshold by restricting to the largest strongly connected set.
func (m *HiddenMarkovModel) SubModelDisconnect(counts []float64, threshold float64) (*HiddenMarkovModel, error) {
	return m.SubModelLargest(counts, threshold, true)
}
