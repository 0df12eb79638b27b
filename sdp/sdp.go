// Package sdp solves small dense semidefinite programs of the form
//
//	minimize    c^T x
//	subject to  H_k - sum_i x_i F_ki >= 0   (positive semidefinite, per block k)
//
// via a phase-1 slack minimization followed by a logarithmic-barrier Newton
// iteration. Coefficient matrices are supplied flattened, one per column of a
// block's G matrix, mirroring the (c, Gs, hs) convention of classic SDP
// solvers.
package sdp

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnavailable is returned when no solver capability has been
	// provided.
	ErrUnavailable = errors.New("sdp: no semidefinite solver available")

	// ErrInfeasible is returned when an optimization problem has no
	// feasible point. Pure feasibility questions report through
	// Solution.Feasible instead.
	ErrInfeasible = errors.New("sdp: problem is infeasible")

	// ErrUnbounded is returned when the objective decreases without limit
	// over the feasible set.
	ErrUnbounded = errors.New("sdp: objective is unbounded below")
)

// Block is one linear matrix inequality H - sum_i x_i F_i >= 0. Column i of
// G is the row-major flattening of the d by d coefficient matrix F_i; H is
// the d by d constant matrix.
type Block struct {
	G *mat.Dense
	H *mat.Dense
}

// Problem is a semidefinite feasibility or optimization problem. A zero cost
// vector asks only for a feasible point.
type Problem struct {
	C      []float64
	Blocks []Block
}

// Termination bundles the stopping parameters of the barrier iteration.
// Zero values select the documented defaults.
type Termination struct {
	// MaxOuter caps the number of barrier parameter increases.
	// Default 40.
	MaxOuter int
	// MaxNewton caps the Newton steps per barrier stage. Default 60.
	MaxNewton int
	// Tol is the duality-gap target of the phase-1 feasibility iteration.
	// Default 1e-9.
	Tol float64
	// GapTol is the duality-gap target of the index-optimization phase.
	// The optimum of an index problem sits on the boundary of the cone,
	// where Newton steps degrade, so this phase stops earlier than the
	// feasibility phase. Default 1e-3.
	GapTol float64
	// FeasTol is the slack threshold under which the phase-1 optimum
	// counts as feasible. Default 1e-6.
	FeasTol float64
}

func (t Termination) withDefaults() Termination {
	if t.MaxOuter == 0 {
		t.MaxOuter = 40
	}
	if t.MaxNewton == 0 {
		t.MaxNewton = 60
	}
	if t.Tol == 0 {
		t.Tol = 1e-9
	}
	if t.GapTol == 0 {
		t.GapTol = 1e-3
	}
	if t.FeasTol == 0 {
		t.FeasTol = 1e-6
	}
	return t
}

// Options configures one Solve call. A nil Logger suppresses all solver
// diagnostics; the solver never writes to any process-wide destination.
type Options struct {
	Term   Termination
	Logger *slog.Logger
}

// Solution is the outcome of a Solve call. X is the final point; for
// feasibility problems Feasible reports whether one exists.
type Solution struct {
	X        []float64
	Feasible bool
}

// Solver is the semidefinite-programming capability. A nil Solver means the
// capability is unavailable.
type Solver interface {
	Solve(p Problem, opts Options) (Solution, error)
}

// Default is the solver used when a caller does not supply one. Setting it
// to nil makes dependent operations report ErrUnavailable.
var Default Solver = Barrier{}

// validate checks block shapes against the variable count.
func (p Problem) validate() error {
	nv := len(p.C)
	if len(p.Blocks) == 0 {
		return errors.New("sdp: problem has no constraint blocks")
	}
	for k, blk := range p.Blocks {
		d, dc := blk.H.Dims()
		if d != dc {
			return fmt.Errorf("sdp: block %d constant is %dx%d, want square", k, d, dc)
		}
		gr, gc := blk.G.Dims()
		if gr != d*d || gc != nv {
			return fmt.Errorf("sdp: block %d coefficients are %dx%d, want %dx%d", k, gr, gc, d*d, nv)
		}
	}
	return nil
}
