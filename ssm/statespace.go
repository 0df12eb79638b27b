// Package ssm provides linear time-invariant system representations. The
// central type is StateSpace,
//
//	x'(t) = A x(t) + B u(t)
//	y(t)  = C x(t) + D u(t)
//
// with a sample period tag distinguishing continuous-time from discrete-time
// models. A SISO TransferFunction type is provided together with a conversion
// to the controllable canonical state-space realization.
package ssm

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensionMismatch is returned when the A, B, C, D matrices do not
	// describe a consistent state-space system, or when an operation
	// requires as many inputs as outputs.
	ErrDimensionMismatch = errors.New("ssm: dimension mismatch")

	// ErrNotSupported is returned by operations restricted to
	// continuous-time systems when handed a discrete-time one.
	ErrNotSupported = errors.New("ssm: not supported in discrete time")

	// ErrImproper is returned when a transfer function has a numerator of
	// higher degree than its denominator and therefore no state-space
	// realization.
	ErrImproper = errors.New("ssm: improper transfer function")
)

// System is any linear time-invariant system that can be brought to
// state-space form.
type System interface {
	StateSpace() (*StateSpace, error)
}

// StateSpace is a linear time-invariant state-space model. Ts is the sample
// period: 0 marks a continuous-time system, a positive value a discrete-time
// system with that period, and DiscreteUnspecified a discrete-time system
// with unknown period.
type StateSpace struct {
	A, B, C, D *mat.Dense
	Ts         float64
}

// DiscreteUnspecified tags a discrete-time system without a concrete sample
// period.
const DiscreteUnspecified = -1.0

// NewStateSpace creates a continuous-time state-space system from the given
// matrices. The matrices are copied. A nil D is taken as the zero
// feedthrough of matching shape.
func NewStateSpace(A, B, C, D mat.Matrix) (*StateSpace, error) {
	return newStateSpace(A, B, C, D, 0)
}

// NewDiscreteStateSpace creates a discrete-time state-space system with
// sample period ts, which must be positive or DiscreteUnspecified.
func NewDiscreteStateSpace(A, B, C, D mat.Matrix, ts float64) (*StateSpace, error) {
	if ts <= 0 && ts != DiscreteUnspecified {
		return nil, fmt.Errorf("ssm: invalid sample period %v", ts)
	}
	return newStateSpace(A, B, C, D, ts)
}

func newStateSpace(A, B, C, D mat.Matrix, ts float64) (*StateSpace, error) {
	n, nc := A.Dims()
	nb, m := B.Dims()
	p, pc := C.Dims()
	if n != nc || nb != n || pc != n {
		return nil, fmt.Errorf("%w: A is %dx%d, B has %d rows, C has %d columns",
			ErrDimensionMismatch, n, nc, nb, pc)
	}
	var dd *mat.Dense
	if D == nil {
		dd = mat.NewDense(p, m, nil)
	} else {
		pd, md := D.Dims()
		if pd != p || md != m {
			return nil, fmt.Errorf("%w: D is %dx%d, want %dx%d",
				ErrDimensionMismatch, pd, md, p, m)
		}
		dd = mat.DenseCopyOf(D)
	}
	return &StateSpace{
		A:  mat.DenseCopyOf(A),
		B:  mat.DenseCopyOf(B),
		C:  mat.DenseCopyOf(C),
		D:  dd,
		Ts: ts,
	}, nil
}

// StateSpace returns the receiver, satisfying System.
func (s *StateSpace) StateSpace() (*StateSpace, error) { return s, nil }

// NumStates returns the state dimension n.
func (s *StateSpace) NumStates() int {
	n, _ := s.A.Dims()
	return n
}

// NumInputs returns the input dimension m.
func (s *StateSpace) NumInputs() int {
	_, m := s.B.Dims()
	return m
}

// NumOutputs returns the output dimension p.
func (s *StateSpace) NumOutputs() int {
	p, _ := s.C.Dims()
	return p
}

// IsCTime reports whether the system is continuous-time.
func (s *StateSpace) IsCTime() bool { return s.Ts == 0 }

// IsDTime reports whether the system is discrete-time. With strict set, only
// systems carrying a discrete sample tag qualify; without it the predicate
// is the complement of IsCTime and behaves identically here.
func (s *StateSpace) IsDTime(strict bool) bool {
	if strict {
		return s.Ts > 0 || s.Ts == DiscreteUnspecified
	}
	return s.Ts != 0
}

// Poles returns the eigenvalues of A.
func (s *StateSpace) Poles() ([]complex128, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(s.A, mat.EigenNone); !ok {
		return nil, errors.New("ssm: eigenvalue computation failed")
	}
	return eig.Values(nil), nil
}

// DCGain returns the zero-frequency gain C(-A)^-1 B + D of a continuous-time
// system. It fails when A is singular (a pole at the origin).
func (s *StateSpace) DCGain() (*mat.Dense, error) {
	if s.IsDTime(true) {
		return nil, fmt.Errorf("dc gain: %w", ErrNotSupported)
	}
	negA := mat.DenseCopyOf(s.A)
	negA.Scale(-1, negA)
	var x mat.Dense
	if err := x.Solve(negA, s.B); err != nil {
		return nil, fmt.Errorf("ssm: dc gain undefined, A is singular: %w", err)
	}
	var gain mat.Dense
	gain.Mul(s.C, &x)
	gain.Add(&gain, s.D)
	return &gain, nil
}

// AsStateSpace brings any System to state-space form.
func AsStateSpace(sys System) (*StateSpace, error) {
	return sys.StateSpace()
}
