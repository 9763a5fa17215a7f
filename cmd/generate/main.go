package main

import (
	"flag"
	"math/rand"
	"time"

	"github.com/charygao/deeptime/hmm"
)

func main() {

	var outname string
	flag.StringVar(&outname, "outname", "", "Output file name")

	var nState, nObs, nTime, nTraj int
	flag.IntVar(&nState, "nstate", 0, "Number of hidden states")
	flag.IntVar(&nObs, "nobs", 0, "Number of observable symbols")
	flag.IntVar(&nTime, "ntime", 0, "Number of time points per trajectory")
	flag.IntVar(&nTraj, "ntraj", 1, "Number of trajectories")

	var seed int64
	flag.Int64Var(&seed, "seed", 0, "Random seed, 0 uses the clock")
	flag.Parse()

	if outname == "" {
		panic("'outname' is required")
	}
	if nState < 1 || nObs < nState || nTime < 1 || nTraj < 1 {
		panic("need nstate >= 1, nobs >= nstate, ntime >= 1, ntraj >= 1")
	}
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Diagonally dominant transition matrix, stickier for higher states.
	trans := make([]float64, nState*nState)
	if nState == 1 {
		trans[0] = 1
	} else {
		for i := 0; i < nState; i++ {
			p := 0.8 + 0.1*float64(i)/float64(nState-1)
			for j := 0; j < nState; j++ {
				if i == j {
					trans[i*nState+j] = p
				} else {
					trans[i*nState+j] = (1 - p) / float64(nState-1)
				}
			}
		}
	}

	init := make([]float64, nState)
	for i := range init {
		init[i] = 1 / float64(nState)
	}

	// Each hidden state concentrates on its own block of symbols.
	probs := make([]float64, nState*nObs)
	for i := 0; i < nState; i++ {
		for k := 0; k < nObs; k++ {
			if k%nState == i {
				probs[i*nObs+k] = 8
			} else {
				probs[i*nObs+k] = 1
			}
		}
		var z float64
		for k := 0; k < nObs; k++ {
			z += probs[i*nObs+k]
		}
		for k := 0; k < nObs; k++ {
			probs[i*nObs+k] /= z
		}
	}

	output, err := hmm.NewDiscreteOutputModel(probs, nState, nObs)
	if err != nil {
		panic(err)
	}
	model, err := hmm.New(trans, init, output)
	if err != nil {
		panic(err)
	}

	ds := &hmm.Dataset{
		NHidden:      nState,
		NObservable:  nObs,
		Trans:        trans,
		Init:         init,
		OutputProbs:  probs,
		Trajectories: make([][]int, nTraj),
		HiddenPaths:  make([][]int, nTraj),
	}
	for r := 0; r < nTraj; r++ {
		hidden, observed, err := model.Simulate(nTime, -1, rng)
		if err != nil {
			panic(err)
		}
		ds.HiddenPaths[r] = hidden
		ds.Trajectories[r] = observed
	}

	if err := ds.Write(outname); err != nil {
		panic(err)
	}
}
