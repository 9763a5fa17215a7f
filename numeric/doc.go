// Package numeric provides numerically robust linear algebra for
// correlation and covariance matrices arising in Markov state model
// analysis: rank-aware eigendecompositions of symmetric positive
// (semi-)definite matrices, pseudo-inverses and inverse square roots
// built on them, and a generalized eigenproblem solver for pairs of
// instantaneous and time-lagged covariance matrices.
//
// All functions are pure and safe for concurrent use on distinct inputs.
// Eigenvalue cutoffs are absolute: a direction survives rank truncation
// when the magnitude of its eigenvalue is at least epsilon.  If every
// direction is discarded the functions fail with *ZeroRankError.
package numeric
