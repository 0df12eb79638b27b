package reduction

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"ltitools/ssm"
)

// ModRed eliminates the states listed in elim from a stable continuous-time
// system, producing a reduced system over the remaining states. Truncate
// discards the states; MatchDC residualizes them via the Schur complement of
// the A22 block, which keeps the zero-frequency gain of the original system
// exactly.
func ModRed(sys *ssm.StateSpace, elim []int, method Method) (*ssm.StateSpace, error) {
	if !method.valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMethod, method)
	}
	if sys.IsDTime(true) {
		return nil, fmt.Errorf("modred: %w", ssm.ErrNotSupported)
	}
	poles, err := sys.Poles()
	if err != nil {
		return nil, fmt.Errorf("modred: %w", err)
	}
	for _, pole := range poles {
		if real(pole) >= 0 {
			return nil, fmt.Errorf("%w: pole at %v", ErrUnstable, pole)
		}
	}

	n := sys.NumStates()
	elim = append([]int(nil), elim...)
	sort.Ints(elim)
	keep, err := complement(n, elim)
	if err != nil {
		return nil, err
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: cannot eliminate every state", ErrStateIndex)
	}

	a11 := gather(sys.A, keep, keep)
	a12 := gather(sys.A, keep, elim)
	a21 := gather(sys.A, elim, keep)
	a22 := gather(sys.A, elim, elim)
	b1 := gatherRows(sys.B, keep)
	b2 := gatherRows(sys.B, elim)
	c1 := gatherCols(sys.C, keep)
	c2 := gatherCols(sys.C, elim)

	if method == Truncate {
		return ssm.NewStateSpace(a11, b1, c1, sys.D)
	}

	// One factorization of A22 serves both right-hand sides A21 and B2.
	ne := len(elim)
	k := len(keep)
	m := sys.NumInputs()
	rhs := mat.NewDense(ne, k+m, nil)
	rhs.Slice(0, ne, 0, k).(*mat.Dense).Copy(a21)
	rhs.Slice(0, ne, k, k+m).(*mat.Dense).Copy(b2)

	var lu mat.LU
	lu.Factorize(a22)
	var solved mat.Dense
	if err := lu.SolveTo(&solved, false, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	xa := solved.Slice(0, ne, 0, k)
	xb := solved.Slice(0, ne, k, k+m)

	var tmp mat.Dense
	ar := mat.DenseCopyOf(a11)
	tmp.Mul(a12, xa)
	ar.Sub(ar, &tmp)

	br := mat.DenseCopyOf(b1)
	tmp.Reset()
	tmp.Mul(a12, xb)
	br.Sub(br, &tmp)

	cr := mat.DenseCopyOf(c1)
	tmp.Reset()
	tmp.Mul(c2, xa)
	cr.Sub(cr, &tmp)

	dr := mat.DenseCopyOf(sys.D)
	tmp.Reset()
	tmp.Mul(c2, xb)
	dr.Sub(dr, &tmp)

	return ssm.NewStateSpace(ar, br, cr, dr)
}

// complement returns the ascending indices of {0..n-1} not present in the
// sorted elim list, validating elim along the way.
func complement(n int, elim []int) ([]int, error) {
	inElim := make([]bool, n)
	for _, idx := range elim {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("%w: %d outside [0, %d)", ErrStateIndex, idx, n)
		}
		if inElim[idx] {
			return nil, fmt.Errorf("%w: %d listed twice", ErrStateIndex, idx)
		}
		inElim[idx] = true
	}
	keep := make([]int, 0, n-len(elim))
	for i := 0; i < n; i++ {
		if !inElim[i] {
			keep = append(keep, i)
		}
	}
	return keep, nil
}

func gather(m *mat.Dense, rows, cols []int) *mat.Dense {
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, m.At(r, c))
		}
	}
	return out
}

func gatherRows(m *mat.Dense, rows []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(r, j))
		}
	}
	return out
}

func gatherCols(m *mat.Dense, cols []int) *mat.Dense {
	r, _ := m.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for i := 0; i < r; i++ {
		for j, c := range cols {
			out.Set(i, j, m.At(i, c))
		}
	}
	return out
}
