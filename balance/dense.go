package balance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"ltitools/gonumext"
	"ltitools/gram"
	"ltitools/ssm"
)

// Dense is the in-process balanced-reduction kernel. It balances via the
// square-root algorithm: Cholesky-like factors of the two gramians, an SVD
// of their cross product, and the resulting contragredient transformation.
type Dense struct{}

// Reduce implements Kernel.
func (Dense) Reduce(job Job) (Result, error) {
	n, _ := job.A.Dims()
	if job.Order <= 0 {
		return Result{}, fmt.Errorf("balance: order must be positive, got %d", job.Order)
	}
	if job.Order >= n {
		// Nothing to reduce.
		return Result{
			A: mat.DenseCopyOf(job.A), B: mat.DenseCopyOf(job.B),
			C: mat.DenseCopyOf(job.C), D: mat.DenseCopyOf(job.D),
			Order: n,
		}, nil
	}

	as, bs, cs := job.A, job.B, job.C
	var au, bu, cu *mat.Dense
	nu := 0
	if job.SeparateUnstable {
		t, ns, nuSep, err := separate(job.A, job.Alpha)
		if err != nil {
			return Result{}, err
		}
		nu = nuSep
		if job.Order < nu {
			return Result{}, fmt.Errorf("%w: %d unstable modes, order %d requested",
				ErrOrderInfeasible, nu, job.Order)
		}
		at, bt, ct, err := similarity(job.A, job.B, job.C, t)
		if err != nil {
			return Result{}, err
		}
		if nu > 0 {
			au = slice(at, ns, n, ns, n)
			bu = slice(bt, ns, n, 0, cols(bt))
			cu = slice(ct, 0, rows(ct), ns, n)
		}
		if ns == 0 {
			// All modes unstable; the order check above guarantees
			// job.Order >= n, handled earlier.
			return Result{}, fmt.Errorf("%w: all %d modes unstable", ErrOrderInfeasible, nu)
		}
		as = slice(at, 0, ns, 0, ns)
		bs = slice(bt, 0, ns, 0, cols(bt))
		cs = slice(ct, 0, rows(ct), 0, ns)
	}

	hsv, tb, tbInv, err := balanceTransform(as, bs, cs, job.Tol)
	if err != nil {
		return Result{}, err
	}
	ab, bb, cb, err := similarityWithInverse(as, bs, cs, tb, tbInv)
	if err != nil {
		return Result{}, err
	}
	// Vanishing Hankel values make the balancing transform blow up.
	if gonumext.NaNOrInf(ab) || gonumext.NaNOrInf(bb) || gonumext.NaNOrInf(cb) {
		return Result{}, errors.New("balance: balanced realization is not finite")
	}

	ns, _ := as.Dims()
	r := job.Order - nu
	if r > ns {
		r = ns
	}

	ar, br, cr, dr, err := reduceBalanced(ab, bb, cb, job.D, r, job.MatchDC)
	if err != nil {
		return Result{}, err
	}

	if nu > 0 {
		if r == 0 {
			ar, br, cr = au, bu, cu
		} else {
			ar = blockDiag(ar, au)
			br = stack(br, bu)
			cr = augment(cr, cu)
		}
	}
	return Result{A: ar, B: br, C: cr, D: dr, Order: r + nu, UnstableCount: nu, HSV: hsv}, nil
}

// balanceTransform computes the Hankel singular values of the stable
// realization (a, b, c) together with the balancing transformation T and its
// inverse.
func balanceTransform(a, b, c *mat.Dense, tol float64) (hsv []float64, t, tInv *mat.Dense, err error) {
	sys, err := ssm.NewStateSpace(a, b, c, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	wc, err := gram.Gramian(sys, gram.Controllability)
	if err != nil {
		return nil, nil, nil, err
	}
	wo, err := gram.Gramian(sys, gram.Observability)
	if err != nil {
		return nil, nil, nil, err
	}
	lc, err := symSqrtFactor(wc)
	if err != nil {
		return nil, nil, nil, err
	}
	lo, err := symSqrtFactor(wo)
	if err != nil {
		return nil, nil, nil, err
	}

	var cross mat.Dense
	cross.Mul(lo.T(), lc)
	var svd mat.SVD
	if ok := svd.Factorize(&cross, mat.SVDThin); !ok {
		return nil, nil, nil, errors.New("balance: SVD of gramian cross product failed")
	}
	hsv = svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	floor := tol
	if floor <= 0 {
		floor = math.Sqrt(math.SmallestNonzeroFloat64)
	}
	n := len(hsv)
	invSqrt := mat.NewDense(n, n, nil)
	for i, sv := range hsv {
		invSqrt.Set(i, i, 1/math.Sqrt(math.Max(sv, floor)))
	}

	// T = Lc V S^(-1/2), T^-1 = S^(-1/2) U^T Lo^T.
	t = &mat.Dense{}
	t.Mul(lc, &v)
	t.Mul(t, invSqrt)
	tInv = &mat.Dense{}
	tInv.Mul(invSqrt, u.T())
	tInv.Mul(tInv, lo.T())
	return hsv, t, tInv, nil
}

// symSqrtFactor returns L with W = L L^T, built from the eigendecomposition
// of the positive-semidefinite W. Small negative eigenvalues from roundoff
// are clamped to zero.
func symSqrtFactor(w *mat.SymDense) (*mat.Dense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(w, true); !ok {
		return nil, errors.New("balance: gramian eigendecomposition failed")
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	n := len(vals)
	l := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		root := math.Sqrt(math.Max(vals[j], 0))
		for i := 0; i < n; i++ {
			l.Set(i, j, vecs.At(i, j)*root)
		}
	}
	return l, nil
}

// reduceBalanced keeps the first r states of a balanced realization and
// either discards or residualizes the rest.
func reduceBalanced(a, b, c, d *mat.Dense, r int, matchDC bool) (ar, br, cr, dr *mat.Dense, err error) {
	n, _ := a.Dims()
	m := cols(b)
	p := rows(c)
	dr = mat.DenseCopyOf(d)
	if r == n {
		return mat.DenseCopyOf(a), mat.DenseCopyOf(b), mat.DenseCopyOf(c), dr, nil
	}
	if !matchDC {
		if r == 0 {
			return nil, nil, nil, dr, nil
		}
		return slice(a, 0, r, 0, r), slice(b, 0, r, 0, m), slice(c, 0, p, 0, r), dr, nil
	}

	a22 := a.Slice(r, n, r, n)
	b2 := b.Slice(r, n, 0, m)
	c2 := c.Slice(0, p, r, n)

	if r == 0 {
		// Residualize everything into the feedthrough: D - C A^-1 B.
		var x mat.Dense
		if err := x.Solve(a22, b2); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("balance: residualization solve: %w", err)
		}
		var corr mat.Dense
		corr.Mul(c2, &x)
		dr.Sub(dr, &corr)
		return nil, nil, nil, dr, nil
	}

	a12 := a.Slice(0, r, r, n)
	a21 := a.Slice(r, n, 0, r)
	rhs := mat.NewDense(n-r, r+m, nil)
	rhs.Slice(0, n-r, 0, r).(*mat.Dense).Copy(a21)
	rhs.Slice(0, n-r, r, r+m).(*mat.Dense).Copy(b2)
	var x mat.Dense
	if err := x.Solve(a22, rhs); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("balance: residualization solve: %w", err)
	}
	xa := x.Slice(0, n-r, 0, r)
	xb := x.Slice(0, n-r, r, r+m)

	ar = slice(a, 0, r, 0, r)
	var tmp mat.Dense
	tmp.Mul(a12, xa)
	ar.Sub(ar, &tmp)

	br = slice(b, 0, r, 0, m)
	tmp.Reset()
	tmp.Mul(a12, xb)
	br.Sub(br, &tmp)

	cr = slice(c, 0, p, 0, r)
	tmp.Reset()
	tmp.Mul(c2, xa)
	cr.Sub(cr, &tmp)

	tmp.Reset()
	tmp.Mul(c2, xb)
	dr.Sub(dr, &tmp)
	return ar, br, cr, dr, nil
}

// similarity applies the state transformation z = T^-1 x, solving with T
// once for both A T and B.
func similarity(a, b, c, t *mat.Dense) (at, bt, ct *mat.Dense, err error) {
	n, _ := a.Dims()
	m := cols(b)
	var rhsAT mat.Dense
	rhsAT.Mul(a, t)
	rhs := mat.NewDense(n, n+m, nil)
	rhs.Slice(0, n, 0, n).(*mat.Dense).Copy(&rhsAT)
	rhs.Slice(0, n, n, n+m).(*mat.Dense).Copy(b)
	var lu mat.LU
	lu.Factorize(t)
	var x mat.Dense
	if err := lu.SolveTo(&x, false, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, nil, nil, fmt.Errorf("balance: transformation is singular: %w", err)
		}
	}
	at = slice(&x, 0, n, 0, n)
	bt = slice(&x, 0, n, n, n+m)
	ct = &mat.Dense{}
	ct.Mul(c, t)
	return at, bt, ct, nil
}

// similarityWithInverse applies z = T^-1 x when the inverse is already
// known, as it is for the balancing transformation.
func similarityWithInverse(a, b, c, t, tInv *mat.Dense) (at, bt, ct *mat.Dense, err error) {
	at = &mat.Dense{}
	at.Mul(tInv, a)
	at.Mul(at, t)
	bt = &mat.Dense{}
	bt.Mul(tInv, b)
	ct = &mat.Dense{}
	ct.Mul(c, t)
	return at, bt, ct, nil
}

func rows(m *mat.Dense) int { r, _ := m.Dims(); return r }
func cols(m *mat.Dense) int { _, c := m.Dims(); return c }

func slice(m mat.Matrix, i, j, k, l int) *mat.Dense {
	d := m.(*mat.Dense)
	return mat.DenseCopyOf(d.Slice(i, j, k, l))
}

func blockDiag(a, b *mat.Dense) *mat.Dense {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	res := mat.NewDense(ra+rb, ca+cb, nil)
	res.Slice(0, ra, 0, ca).(*mat.Dense).Copy(a)
	res.Slice(ra, ra+rb, ca, ca+cb).(*mat.Dense).Copy(b)
	return res
}

func stack(top, bottom *mat.Dense) *mat.Dense {
	var res mat.Dense
	res.Stack(top, bottom)
	return &res
}

func augment(left, right *mat.Dense) *mat.Dense {
	var res mat.Dense
	res.Augment(left, right)
	return &res
}
