// Package hmm implements hidden Markov state models over discrete
// observations: the scaled forward-backward recursions, posterior state
// probabilities and Viterbi decoding, together with the model objects
// tying a hidden transition matrix, an initial distribution and a
// discrete output model into one value.
//
// Matrices are flat row-major float64 slices with an explicit state
// count, e.g. a T-by-N state probability trajectory is a slice of
// length T*N with entry t*N+i holding P(observation at t | hidden
// state i).  All inference functions are pure and may be called
// concurrently on distinct trajectories; optional *Out arguments let a
// caller reuse buffers across the many calls of a fitting loop.
package hmm
