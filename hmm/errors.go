package hmm

import "errors"

var (
	// ErrShapeMismatch indicates that slice lengths disagree with the
	// declared number of states, or that a supplied output buffer has
	// the wrong length.
	ErrShapeMismatch = errors.New("hmm: shape mismatch")

	// ErrNegativeEntry is returned when a probability input carries a
	// negative value.  Negative entries are a caller error and are never
	// silently coerced.
	ErrNegativeEntry = errors.New("hmm: negative entry in probability input")

	// ErrDegenerateObservation is returned by the inference functions
	// when an observation has zero probability under every hidden state,
	// so the recursion cannot be normalized.  EM drivers typically catch
	// this and reject the iteration.
	ErrDegenerateObservation = errors.New("hmm: observation has zero probability under every hidden state")

	// ErrNotStochastic indicates that a matrix row or distribution which
	// must sum to one does not, beyond the numeric tolerance.
	ErrNotStochastic = errors.New("hmm: rows must sum to one")

	// ErrSymbolRange indicates an observation symbol outside the output
	// model's symbol range.
	ErrSymbolRange = errors.New("hmm: observation symbol out of range")

	// ErrEmptySelection indicates that a submodel restriction selected
	// no states or no observable symbols.
	ErrEmptySelection = errors.New("hmm: empty state selection")
)
