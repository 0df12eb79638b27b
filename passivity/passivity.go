// Package passivity certifies energy-dissipation properties of linear
// time-invariant systems. Passivity is decided by assembling the
// Kalman-Yakubovich-Popov linear matrix inequality over a symmetric unknown
// P and asking a semidefinite solver for a feasible point; passivity indices
// are obtained from the same inequality by maximizing the free index as one
// extra optimization variable.
//
// References: McCourt and Antsaklis, "Demonstrating passivity and
// dissipativity using computational methods"; Kottenstette and Antsaklis,
// "Relationships Between Positive Real, Passive Dissipative, & Positive
// Systems", equation 36.
package passivity

import (
	"errors"
	"fmt"
	"math"

	"ltitools/sdp"
	"ltitools/ssm"
)

var (
	// ErrInvalidIndexSide is returned by GetPassiveIndex for a side other
	// than "input" or "output".
	ErrInvalidIndexSide = errors.New(`passivity: index side must be "input" or "output"`)

	// ErrIndexSelection is returned by PassiveIndex when not exactly one
	// of the two indices is fixed.
	ErrIndexSelection = errors.New("passivity: exactly one of Nu and Rho must be fixed")
)

// DefaultRegularization is the diagonal nudge applied to A and D before the
// LMI is formed: the smallest positive double, the same regularization the
// certification literature uses to avoid degenerate strictly-proper inputs.
var DefaultRegularization = math.Nextafter(0, 1)

// IndexBaseline is the small fixed value GetPassiveIndex assigns to the
// opposite index while optimizing the requested one.
const IndexBaseline = 1e-6

// Options configures a certification call. Nu and Rho fix the input and
// output passivity index respectively; nil leaves an index free. Fixed is a
// convenience for building the pointers.
type Options struct {
	Nu  *float64
	Rho *float64

	// Solver overrides sdp.Default for this call.
	Solver sdp.Solver
	// SolverOptions is passed through to the solver; its Logger controls
	// diagnostic output and is off when nil.
	SolverOptions sdp.Options
	// Regularization overrides DefaultRegularization when non-nil.
	Regularization *float64
}

// Fixed returns a pointer to v, for use in Options.
func Fixed(v float64) *float64 { return &v }

func (o *Options) solver() (sdp.Solver, error) {
	if o != nil && o.Solver != nil {
		return o.Solver, nil
	}
	if sdp.Default == nil {
		return nil, sdp.ErrUnavailable
	}
	return sdp.Default, nil
}

func (o *Options) regularization() float64 {
	if o != nil && o.Regularization != nil {
		return *o.Regularization
	}
	return DefaultRegularization
}

func (o *Options) indices() (nu, rho *float64) {
	if o == nil {
		return nil, nil
	}
	return o.Nu, o.Rho
}

func (o *Options) solverOptions() sdp.Options {
	if o == nil {
		return sdp.Options{}
	}
	return o.SolverOptions
}

// Ispassive reports whether sys is passive: whether a symmetric P > 0
// satisfying the KYP inequality exists. Fixing Nu and/or Rho in opts tightens
// the inequality by the corresponding index penalty, answering whether the
// system attains those index values; fixing both at once is continuous-time
// only. opts may be nil.
func Ispassive(sys ssm.System, opts *Options) (bool, error) {
	state, err := ssm.AsStateSpace(sys)
	if err != nil {
		return false, err
	}
	solver, err := opts.solver()
	if err != nil {
		return false, err
	}
	nu, rho := opts.indices()
	if state.IsDTime(true) && nu != nil && rho != nil {
		return false, fmt.Errorf("simultaneous index demands on a discrete-time system: %w", ssm.ErrNotSupported)
	}
	problem, err := buildProblem(state, nu, rho, opts.regularization(), false)
	if err != nil {
		return false, err
	}
	solution, err := solver.Solve(problem, opts.solverOptions())
	if err != nil {
		return false, err
	}
	return solution.Feasible, nil
}

// PassiveIndex computes the optimal value of the free passivity index while
// the other is held fixed: with Rho fixed it returns the largest input index
// nu, with Nu fixed the smallest admissible output index rho. Exactly one of
// the two must be fixed in opts. Discrete-time systems are not supported.
func PassiveIndex(sys ssm.System, opts *Options) (float64, error) {
	state, err := ssm.AsStateSpace(sys)
	if err != nil {
		return 0, err
	}
	nu, rho := opts.indices()
	if (nu == nil) == (rho == nil) {
		return 0, ErrIndexSelection
	}
	if state.IsDTime(true) {
		return 0, fmt.Errorf("passivity index: %w", ssm.ErrNotSupported)
	}
	solver, err := opts.solver()
	if err != nil {
		return 0, err
	}
	problem, err := buildProblem(state, nu, rho, opts.regularization(), true)
	if err != nil {
		return 0, err
	}
	solution, err := solver.Solve(problem, opts.solverOptions())
	if err != nil {
		return 0, err
	}
	return solution.X[len(solution.X)-1], nil
}

// GetPassiveIndex returns the named passivity index of sys: side "input"
// computes nu with the output index pinned to IndexBaseline, side "output"
// computes rho with the input index pinned likewise.
func GetPassiveIndex(sys ssm.System, side string) (float64, error) {
	switch side {
	case "input":
		return PassiveIndex(sys, &Options{Rho: Fixed(IndexBaseline)})
	case "output":
		return PassiveIndex(sys, &Options{Nu: Fixed(IndexBaseline)})
	default:
		return 0, fmt.Errorf("%w, got %q", ErrInvalidIndexSide, side)
	}
}
