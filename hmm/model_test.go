package hmm

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func weatherModel(t *testing.T) *HiddenMarkovModel {
	t.Helper()
	om, err := NewDiscreteOutputModel(weatherOutput, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	m, err := New(weatherTrans, weatherInit, om)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewValidation(t *testing.T) {
	om, err := NewDiscreteOutputModel(weatherOutput, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := New(weatherTrans, weatherInit, nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("nil output model: %v", err)
	}
	if _, err := New(weatherTrans[:3], weatherInit, om); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("short transition matrix: %v", err)
	}
	if _, err := New([]float64{0.7, 0.1, 0.3, 0.7}, weatherInit, om); !errors.Is(err, ErrNotStochastic) {
		t.Errorf("non-stochastic row: %v", err)
	}
	if _, err := New(weatherTrans, []float64{0.9, 0.3}, om); !errors.Is(err, ErrNotStochastic) {
		t.Errorf("non-stochastic initial distribution: %v", err)
	}

	// A nil initial distribution defaults to uniform.
	m, err := New(weatherTrans, nil, om)
	if err != nil {
		t.Fatal(err)
	}
	checkClose(t, m.Init, []float64{0.5, 0.5}, 1e-15, "default init")
}

func TestStationaryDistribution(t *testing.T) {
	m := weatherModel(t)
	pi, err := m.StationaryDistribution()
	if err != nil {
		t.Fatal(err)
	}
	checkClose(t, pi, []float64{0.5, 0.5}, 1e-12, "pi")

	om, err := NewDiscreteOutputModel(weatherOutput, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := New([]float64{0.9, 0.1, 0.5, 0.5}, nil, om)
	if err != nil {
		t.Fatal(err)
	}
	pi2, err := m2.StationaryDistribution()
	if err != nil {
		t.Fatal(err)
	}
	checkClose(t, pi2, []float64{5.0 / 6, 1.0 / 6}, 1e-12, "pi2")
}

func TestSpectrum(t *testing.T) {
	m := weatherModel(t)

	ev, err := m.Eigenvalues()
	if err != nil {
		t.Fatal(err)
	}
	checkClose(t, ev, []float64{1, 0.4}, 1e-12, "eigenvalues")

	ts, err := m.Timescales(1)
	if err != nil {
		t.Fatal(err)
	}
	checkClose(t, ts, []float64{-1 / math.Log(0.4)}, 1e-12, "timescales")

	lt := m.Lifetimes(1)
	want := -1 / math.Log(0.7)
	checkClose(t, lt, []float64{want, want}, 1e-12, "lifetimes")
}

func TestStationaryDistributionObs(t *testing.T) {
	m := weatherModel(t)
	piObs, err := m.StationaryDistributionObs()
	if err != nil {
		t.Fatal(err)
	}
	checkClose(t, piObs, []float64{0.55, 0.45}, 1e-12, "piObs")
}

func TestMetastable(t *testing.T) {
	m := weatherModel(t)

	assign := m.MetastableAssignments()
	if assign[0] != 0 || assign[1] != 1 {
		t.Errorf("assignments = %v", assign)
	}

	sets := m.MetastableSets()
	if len(sets) != 2 || len(sets[0]) != 1 || sets[0][0] != 0 || sets[1][0] != 1 {
		t.Errorf("sets = %v", sets)
	}

	mem, err := m.MetastableMemberships()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{
		0.45 / 0.55, 0.1 / 0.55,
		0.05 / 0.45, 0.4 / 0.45,
	}
	checkClose(t, mem, want, 1e-12, "memberships")
}

func TestTransitionMatrixObs(t *testing.T) {
	m := weatherModel(t)
	p, err := m.TransitionMatrixObs(1)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{
		0.3515 / 0.55, 0.1985 / 0.55,
		0.1985 / 0.45, 0.2515 / 0.45,
	}
	checkClose(t, p, want, 1e-12, "observable transition matrix")

	for i := 0; i < 2; i++ {
		s := p[i*2] + p[i*2+1]
		if math.Abs(s-1) > 1e-12 {
			t.Errorf("row %d sums to %v", i, s)
		}
	}

	if _, err := m.TransitionMatrixObs(0); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("zero power: %v", err)
	}
}

func TestPropagate(t *testing.T) {
	m := weatherModel(t)

	// k = 0 only normalizes.
	p, err := m.Propagate([]float64{2, 2}, 0)
	if err != nil {
		t.Fatal(err)
	}
	checkClose(t, p, []float64{0.5, 0.5}, 1e-15, "normalized")

	// Propagating a point mass one step reproduces the corresponding row
	// of the observable transition matrix.
	pobs, err := m.TransitionMatrixObs(1)
	if err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 2; k++ {
		p0 := make([]float64, 2)
		p0[k] = 1
		pk, err := m.Propagate(p0, 1)
		if err != nil {
			t.Fatal(err)
		}
		checkClose(t, pk, pobs[k*2:(k+1)*2], 1e-12, "propagated point mass")
	}

	if _, err := m.Propagate([]float64{1}, 1); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("short distribution: %v", err)
	}
	if _, err := m.Propagate([]float64{-1, 2}, 1); !errors.Is(err, ErrNegativeEntry) {
		t.Errorf("negative entry: %v", err)
	}
}

func TestComputeViterbiPaths(t *testing.T) {
	m := weatherModel(t)
	paths, err := m.ComputeViterbiPaths([][]int{{0, 0, 1, 0, 0}, {1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d paths", len(paths))
	}
	for i, s := range paths[0] {
		if s != weatherPath[i] {
			t.Fatalf("path = %v, want %v", paths[0], weatherPath)
		}
	}
	for _, s := range paths[1] {
		if s != 1 {
			t.Fatalf("path = %v, want all 1", paths[1])
		}
	}
}

func TestSimulate(t *testing.T) {
	m := weatherModel(t)
	rng := rand.New(rand.NewSource(3))

	hidden, observed, err := m.Simulate(500, 0, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(hidden) != 500 || len(observed) != 500 {
		t.Fatalf("lengths %d, %d", len(hidden), len(observed))
	}
	if hidden[0] != 0 {
		t.Errorf("start state %d", hidden[0])
	}
	for t1 := range hidden {
		if hidden[t1] < 0 || hidden[t1] > 1 || observed[t1] < 0 || observed[t1] > 1 {
			t.Fatalf("state out of range at time %d", t1)
		}
	}

	// Negative start samples from the stationary distribution.
	if _, _, err := m.Simulate(10, -1, rng); err != nil {
		t.Fatal(err)
	}

	if _, _, err := m.Simulate(0, 0, rng); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("empty trajectory: %v", err)
	}
	if _, _, err := m.Simulate(10, 5, rng); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("start state out of range: %v", err)
	}
}
