package reduction

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"ltitools/ssm"
)

// Markov estimates the first m Markov parameters [D, CB, CAB, ...] of a SISO
// system from measured input u and output y of equal length. The input
// history matrix is lower-triangular Toeplitz in u, so the estimate is the
// least-squares solution of one tall linear system.
func Markov(y, u []float64, m int) ([]float64, error) {
	n := len(u)
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d outputs for %d inputs", ssm.ErrDimensionMismatch, len(y), n)
	}
	if m <= 0 || m > n {
		return nil, fmt.Errorf("reduction: markov parameter count %d outside [1, %d]", m, n)
	}

	uu := mat.NewDense(n, m, nil)
	for j := 0; j < m; j++ {
		for i := j; i < n; i++ {
			uu.Set(i, j, u[i-j])
		}
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	var h mat.VecDense
	if err := h.SolveVec(uu, yv); err != nil {
		return nil, fmt.Errorf("reduction: markov least squares: %w", err)
	}
	out := make([]float64, m)
	for i := range out {
		out[i] = h.AtVec(i)
	}
	return out, nil
}

// ERA would identify a state-space model of the given order from
// multi-input multi-output impulse-response data via the eigensystem
// realization algorithm. It is declared for API completeness and not
// implemented.
func ERA(impulse [][][]float64, rows, cols, inputs, outputs, order int) (*ssm.StateSpace, error) {
	return nil, fmt.Errorf("era: %w", ErrNotImplemented)
}
