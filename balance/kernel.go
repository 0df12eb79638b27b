// Package balance implements the dense balanced-reduction kernel used by the
// reduction package. The kernel balances the (stable part of the) system in
// the coordinates where the controllability and observability gramians
// coincide, and reduces it to a requested order by truncation or DC-matching
// residualization. Unstable modes are separated beforehand and reinserted
// unchanged, following Hsu and Hou (1991).
package balance

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnavailable is returned when no balanced-reduction kernel has
	// been provided.
	ErrUnavailable = errors.New("balance: no balanced-reduction kernel available")

	// ErrOrderInfeasible is returned when the requested order is smaller
	// than the number of unstable modes, which are never reduced.
	ErrOrderInfeasible = errors.New("balance: requested order is below the unstable mode count")
)

// Job describes one balanced-reduction request. The matrices are read-only
// inputs. Order is the requested total order of the result. Alpha is the
// stability boundary for the real part of A's eigenvalues. MatchDC selects
// residualization over truncation. SeparateUnstable requests the
// unstable-aware variant. Tol is the floor below which Hankel singular
// values are treated as zero; Tol = 0 applies a machine-precision floor.
type Job struct {
	A, B, C, D       *mat.Dense
	Order            int
	Alpha            float64
	MatchDC          bool
	SeparateUnstable bool
	Tol              float64
}

// Result carries the reduced realization. D is only meaningful for
// DC-matching jobs; truncation keeps the original feedthrough. HSV holds the
// Hankel singular values of the stable subsystem, and UnstableCount the
// number of modes passed through unreduced.
type Result struct {
	A, B, C, D    *mat.Dense
	Order         int
	UnstableCount int
	HSV           []float64
}

// Kernel is the balanced-reduction capability. A nil Kernel means the
// capability is unavailable.
type Kernel interface {
	Reduce(job Job) (Result, error)
}

// Default is the kernel used when a caller does not supply one. Setting it
// to nil makes balanced reduction report ErrUnavailable.
var Default Kernel = Dense{}
