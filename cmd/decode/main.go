package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/schollz/progressbar"

	"github.com/charygao/deeptime/hmm"
)

var (
	msglogger *log.Logger
	reslogger *log.Logger
)

// setLoggers opens the message and result logs, named by prefix.
func setLoggers(logname string) {

	fid, err := os.Create(logname + "_msg.log")
	if err != nil {
		panic(err)
	}
	msglogger = log.New(fid, "", log.Ltime)

	fid, err = os.Create(logname + "_res.log")
	if err != nil {
		panic(err)
	}
	reslogger = log.New(fid, "", 0)
}

// decoded holds the inference results for one trajectory.
type decoded struct {
	logLik float64
	gamma  []float64
	path   []int
	err    error
}

// confidence is the mean posterior probability of the most likely state
// per time step, a rough measure of how decodable the trajectory is.
func (d *decoded) confidence(n int) float64 {
	nt := len(d.gamma) / n
	var c float64
	for t := 0; t < nt; t++ {
		best := d.gamma[t*n]
		for i := 1; i < n; i++ {
			if d.gamma[t*n+i] > best {
				best = d.gamma[t*n+i]
			}
		}
		c += best
	}
	return c / float64(nt)
}

// decodeAll runs the full inference pass over every trajectory, one
// goroutine per trajectory.
func decodeAll(model *hmm.HiddenMarkovModel, dtrajs [][]int) []decoded {

	bar := progressbar.New(len(dtrajs))
	results := make([]decoded, len(dtrajs))

	var wg sync.WaitGroup
	n := model.NHiddenStates()

	for r := range dtrajs {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			defer func() { _ = bar.Add(1) }()

			b, err := model.Output.ToStateProbabilityTrajectory(dtrajs[r])
			if err != nil {
				results[r].err = err
				return
			}
			logLik, alpha, err := hmm.Forward(model.Trans, b, model.Init, n, nil)
			if err != nil {
				results[r].err = err
				return
			}
			beta, err := hmm.Backward(model.Trans, b, n, nil)
			if err != nil {
				results[r].err = err
				return
			}
			gamma, err := hmm.StateProbabilities(alpha, beta, n, nil)
			if err != nil {
				results[r].err = err
				return
			}
			path, err := hmm.Viterbi(model.Trans, b, model.Init, n, nil)
			if err != nil {
				results[r].err = err
				return
			}
			results[r] = decoded{logLik: logLik, gamma: gamma, path: path}
		}(r)
	}

	wg.Wait()
	fmt.Printf("\n") // returns the prompt in the usual place

	return results
}

func main() {

	gobname := flag.String("gobfile", "", "The data file")
	logname := flag.String("logname", "decode", "Prefix of log files")
	flag.Parse()

	if *gobname == "" {
		_, _ = io.WriteString(os.Stderr, "'gobfile' is a required argument")
		os.Exit(1)
	}
	setLoggers(*logname)

	ds, err := hmm.ReadDataset(*gobname)
	if err != nil {
		panic(err)
	}
	model, err := ds.Model()
	if err != nil {
		panic(err)
	}

	msglogger.Printf("%d trajectories\n", len(ds.Trajectories))
	msglogger.Printf("%d hidden states\n", ds.NHidden)
	msglogger.Printf("%d observable symbols\n", ds.NObservable)

	msglogger.Printf("Decoding state sequences...\n")
	results := decodeAll(model, ds.Trajectories)

	var t, tn int
	reslogger.Printf("Per-trajectory results:")
	for r, res := range results {
		if res.err != nil {
			msglogger.Printf("trajectory %d: %v\n", r, res.err)
			continue
		}
		reslogger.Printf("%d loglik=%f confidence=%f\n", r, res.logLik, res.confidence(ds.NHidden))
		if ds.HiddenPaths != nil {
			q, nn, err := hmm.CompareStates(res.path, ds.HiddenPaths[r])
			if err != nil {
				msglogger.Printf("trajectory %d: %v\n", r, err)
				continue
			}
			reslogger.Printf("%d %d/%d errors\n", r, q, nn)
			t += q
			tn += nn
		}
	}
	if tn > 0 {
		reslogger.Printf("%d/%d total errors\n", t, tn)
	}
	msglogger.Printf("Done\n")
}
