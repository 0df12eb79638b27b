// Package gram computes controllability and observability gramians of
// continuous-time state-space systems by solving the corresponding Lyapunov
// equation densely.
package gram

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"ltitools/ssm"
)

// ErrUnstable is returned when a gramian is requested for a system whose A
// matrix has an eigenvalue with nonnegative real part; the infinite-horizon
// gramian does not exist there.
var ErrUnstable = errors.New("gram: system is not asymptotically stable")

// Mode selects which gramian to compute.
type Mode int

const (
	// Controllability selects the solution of A W + W A^T + B B^T = 0.
	Controllability Mode = iota
	// Observability selects the solution of A^T W + W A + C^T C = 0.
	Observability
)

// Gramian computes the requested gramian of a continuous-time system.
func Gramian(sys *ssm.StateSpace, mode Mode) (*mat.SymDense, error) {
	if sys.IsDTime(true) {
		return nil, fmt.Errorf("gramian: %w", ssm.ErrNotSupported)
	}
	poles, err := sys.Poles()
	if err != nil {
		return nil, fmt.Errorf("gramian: %w", err)
	}
	for _, pole := range poles {
		if real(pole) >= 0 {
			return nil, ErrUnstable
		}
	}

	n := sys.NumStates()
	q := mat.NewDense(n, n, nil)
	var a mat.Dense
	switch mode {
	case Controllability:
		a.CloneFrom(sys.A)
		q.Mul(sys.B, sys.B.T())
	case Observability:
		a.CloneFrom(sys.A.T())
		q.Mul(sys.C.T(), sys.C)
	default:
		return nil, fmt.Errorf("gram: unknown mode %d", mode)
	}

	w, err := lyapunov(&a, q)
	if err != nil {
		return nil, fmt.Errorf("gramian: %w", err)
	}
	return w, nil
}

// lyapunov solves A X + X A^T + Q = 0 for symmetric Q by vectorizing the
// equation into an n^2 by n^2 linear system, factored once.
func lyapunov(a, q *mat.Dense) (*mat.SymDense, error) {
	n, _ := a.Dims()
	op := mat.NewDense(n*n, n*n, nil)
	// Row-major vectorization: vec(AX) = (A (x) I) vec(X) and
	// vec(X A^T) = (I (x) A) vec(X).
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			row := i*n + j
			for k := 0; k < n; k++ {
				op.Set(row, k*n+j, op.At(row, k*n+j)+a.At(i, k))
				op.Set(row, i*n+k, op.At(row, i*n+k)+a.At(j, k))
			}
		}
	}
	rhs := mat.NewVecDense(n*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rhs.SetVec(i*n+j, -q.At(i, j))
		}
	}
	var x mat.VecDense
	if err := x.SolveVec(op, rhs); err != nil {
		return nil, fmt.Errorf("lyapunov solve: %w", err)
	}
	w := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			// Symmetrize against roundoff.
			w.SetSym(i, j, 0.5*(x.AtVec(i*n+j)+x.AtVec(j*n+i)))
		}
	}
	return w, nil
}
