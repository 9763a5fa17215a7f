package hmm

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
)

// Dataset bundles a model's parameters with simulated trajectories so
// that generation and decoding can run as separate programs.  It is
// persisted as a gzip-compressed gob file.
type Dataset struct {
	// Number of hidden states and observable symbols.
	NHidden     int
	NObservable int

	// Model parameters, flat row-major.
	Trans       []float64
	Init        []float64
	OutputProbs []float64

	// Observable trajectories.
	Trajectories [][]int

	// The true hidden paths, if known (set by the generator).
	HiddenPaths [][]int
}

// Model reconstructs the hidden Markov model described by the dataset.
func (ds *Dataset) Model() (*HiddenMarkovModel, error) {
	output, err := NewDiscreteOutputModel(ds.OutputProbs, ds.NHidden, ds.NObservable)
	if err != nil {
		return nil, err
	}
	return New(ds.Trans, ds.Init, output)
}

// Write stores the dataset as a gzip-compressed gob file.
func (ds *Dataset) Write(fname string) error {
	fid, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer fid.Close()

	gid := gzip.NewWriter(fid)
	if err := gob.NewEncoder(gid).Encode(ds); err != nil {
		gid.Close()
		return err
	}
	if err := gid.Close(); err != nil {
		return err
	}
	return fid.Close()
}

// ReadDataset loads a dataset written by Write.
func ReadDataset(fname string) (*Dataset, error) {
	fid, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fid.Close()

	gid, err := gzip.NewReader(fid)
	if err != nil {
		return nil, err
	}
	defer gid.Close()

	var ds Dataset
	if err := gob.NewDecoder(gid).Decode(&ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// CompareStates returns the number of positions where the state
// sequences x and y disagree, along with the number of compared
// positions.
func CompareStates(x, y []int) (int, int, error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("hmm: paths of length %d and %d: %w", len(x), len(y), ErrShapeMismatch)
	}
	var e int
	for t := range x {
		if x[t] != y[t] {
			e++
		}
	}
	return e, len(x), nil
}
