package balance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// separate builds a similarity transformation T = [Vs Vu] from real bases of
// the stable and unstable invariant subspaces of a, where stability means an
// eigenvalue real part strictly below alpha. Complex conjugate eigenvector
// pairs contribute their real and imaginary parts as two columns; the pairs
// are adjacent in the LAPACK ordering.
func separate(a *mat.Dense, alpha float64) (t *mat.Dense, ns, nu int, err error) {
	n, _ := a.Dims()
	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenRight); !ok {
		return nil, 0, 0, errors.New("balance: eigendecomposition of A failed")
	}
	vals := eig.Values(nil)
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	var stable, unstable [][]float64
	for j := 0; j < n; {
		lambda := vals[j]
		if imag(lambda) == 0 {
			col := make([]float64, n)
			for i := 0; i < n; i++ {
				col[i] = real(vecs.At(i, j))
			}
			if real(lambda) < alpha {
				stable = append(stable, col)
			} else {
				unstable = append(unstable, col)
			}
			j++
			continue
		}
		re := make([]float64, n)
		im := make([]float64, n)
		for i := 0; i < n; i++ {
			re[i] = real(vecs.At(i, j))
			im[i] = imag(vecs.At(i, j))
		}
		if real(lambda) < alpha {
			stable = append(stable, re, im)
		} else {
			unstable = append(unstable, re, im)
		}
		j += 2
	}

	ns = len(stable)
	nu = len(unstable)
	if ns+nu != n {
		return nil, 0, 0, fmt.Errorf("balance: eigenvector basis has %d columns, want %d", ns+nu, n)
	}
	t = mat.NewDense(n, n, nil)
	for j, col := range append(stable, unstable...) {
		for i := 0; i < n; i++ {
			t.Set(i, j, col[i])
		}
	}

	// A defective A yields a rank-deficient eigenvector basis.
	if cond := mat.Cond(t, 1); math.IsInf(cond, 0) || cond > maxSeparationCond {
		return nil, 0, 0, errors.New("balance: A is defective, eigenvector separation failed")
	}
	return t, ns, nu, nil
}

const maxSeparationCond = 1e12
