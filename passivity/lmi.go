package passivity

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"ltitools/gonumext"
	"ltitools/sdp"
	"ltitools/ssm"
)

// regularize copies the system matrices with the stability nudge applied:
// eps is added on the generalized diagonal of D and subtracted from the
// diagonal of A. This guards strictly proper and marginally stable inputs
// against degenerate LMIs without changing the model semantically.
func regularize(sys *ssm.StateSpace, eps float64) (a, b, c, d *mat.Dense) {
	n := sys.NumStates()
	p := sys.NumOutputs()
	m := sys.NumInputs()
	a = mat.DenseCopyOf(sys.A)
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)-eps)
	}
	d = mat.DenseCopyOf(sys.D)
	for i := 0; i < p && i < m; i++ {
		d.Set(i, i, d.At(i, i)+eps)
	}
	return a, mat.DenseCopyOf(sys.B), mat.DenseCopyOf(sys.C), d
}

// kypMatrix evaluates the Kalman-Yakubovich-Popov block matrix at a concrete
// symmetric P.
func kypMatrix(ctime bool, a, b *mat.Dense, p *mat.Dense, outputs int) *mat.Dense {
	_, m := b.Dims()
	if ctime {
		// [[A^T P + P A, P B], [B^T P, 0]]
		topLeft := &mat.Dense{}
		topLeft.Mul(a.T(), p)
		var pa mat.Dense
		pa.Mul(p, a)
		topLeft.Add(topLeft, &pa)
		topRight := &mat.Dense{}
		topRight.Mul(p, b)
		bottomLeft := &mat.Dense{}
		bottomLeft.Mul(b.T(), p)
		return gonumext.Block([][]mat.Matrix{
			{topLeft, topRight},
			{bottomLeft, mat.NewDense(outputs, m, nil)},
		})
	}
	// 2 [[A^T P A - P, A^T P B], [(A^T P B)^T, B^T P B]]
	var atp mat.Dense
	atp.Mul(a.T(), p)
	topLeft := &mat.Dense{}
	topLeft.Mul(&atp, a)
	topLeft.Sub(topLeft, p)
	topRight := &mat.Dense{}
	topRight.Mul(&atp, b)
	bottomRight := &mat.Dense{}
	bottomRight.Mul(b.T(), p)
	bottomRight.Mul(bottomRight, b)
	out := gonumext.Block([][]mat.Matrix{
		{topLeft, topRight},
		{topRight.T(), bottomRight},
	})
	out.Scale(2, out)
	return out
}

// symmetricBasis enumerates the n(n+1)/2 generators of a symmetric n by n P,
// one per on-or-below-diagonal entry, and returns the flattened KYP image of
// each as one column of the coefficient matrix.
func symmetricBasis(ctime bool, a, b *mat.Dense, outputs int) *mat.Dense {
	n, _ := a.Dims()
	dim := n + outputs
	nvars := n * (n + 1) / 2
	coeffs := mat.NewDense(dim*dim, nvars, nil)
	col := 0
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			p := mat.NewDense(n, n, nil)
			p.Set(i, j, 1)
			p.Set(j, i, 1)
			coeffs.SetCol(col, gonumext.Flatten(kypMatrix(ctime, a, b, p, outputs)))
			col++
		}
	}
	return coeffs
}

// positiveDefiniteBasis returns the constraint block enforcing P > 0: the
// negated generator set so that 0 - sum x_i (-E_i) = P(x) must stay in the
// cone.
func positiveDefiniteBasis(n int) *mat.Dense {
	nvars := n * (n + 1) / 2
	coeffs := mat.NewDense(n*n, nvars, nil)
	col := 0
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			p := mat.NewDense(n, n, nil)
			p.Set(i, j, -1)
			p.Set(j, i, -1)
			coeffs.SetCol(col, gonumext.Flatten(p))
			col++
		}
	}
	return coeffs
}

// constantBlock assembles the constant side of the system LMI, folding in
// the fixed-index penalty terms.
func constantBlock(c, d *mat.Dense, nu, rho *float64) *mat.Dense {
	n := colsOf(c)
	p, m := d.Dims()

	ct := mat.DenseCopyOf(c.T())
	ct.Scale(-1, ct)
	negC := mat.DenseCopyOf(c)
	negC.Scale(-1, negC)
	dSym := &mat.Dense{}
	dSym.Add(d, d.T())
	dSym.Scale(-1, dSym)
	constants := gonumext.Block([][]mat.Matrix{
		{mat.NewDense(n, n, nil), ct},
		{negC, dSym},
	})
	constants.Scale(-1, constants)

	if nu != nil {
		nuEye := gonumext.Eye(m, m, 0)
		nuEye.Scale(-*nu, nuEye)
		add := gonumext.Block([][]mat.Matrix{
			{mat.NewDense(n, n, nil), mat.NewDense(n, m, nil)},
			{mat.NewDense(p, n, nil), nuEye},
		})
		constants.Add(constants, add)
	}
	if rho != nil {
		ctc := &mat.Dense{}
		ctc.Mul(c.T(), c)
		ctd := &mat.Dense{}
		ctd.Mul(c.T(), d)
		dtd := &mat.Dense{}
		dtd.Mul(d.T(), d)
		ctc.Scale(-*rho, ctc)
		scaledCtd := mat.DenseCopyOf(ctd)
		scaledCtd.Scale(-*rho, scaledCtd)
		dtd.Scale(-*rho, dtd)
		add := gonumext.Block([][]mat.Matrix{
			{ctc, scaledCtd},
			{scaledCtd.T(), dtd},
		})
		constants.Add(constants, add)
	}
	if nu != nil && rho != nil {
		// Joint cross term for simultaneously fixed indices.
		ctd := &mat.Dense{}
		ctd.Mul(c.T(), d)
		ctd.Scale(-*rho, ctd)
		dtd := &mat.Dense{}
		dtd.Mul(d.T(), d)
		dtd.Scale(-*rho, dtd)
		add := gonumext.Block([][]mat.Matrix{
			{mat.NewDense(n, n, nil), ctd},
			{ctd.T(), dtd},
		})
		constants.Add(constants, add)
	}
	return constants
}

// indexColumn builds the coefficient matrix of the free index variable: when
// nu is fixed the column encodes rho's quadratic form, and vice versa. The
// constant side of the inequality carries the supply rate twice over (its
// feedthrough block is D+D^T, not (D+D^T)/2), so the index forms enter
// doubled and the optimized variable stays in ordinary index units.
func indexColumn(c, d *mat.Dense, nu, rho *float64) []float64 {
	var col *mat.Dense
	if nu != nil {
		// Coefficients for the free rho.
		ctc := &mat.Dense{}
		ctc.Mul(c.T(), c)
		mixed := mat.DenseCopyOf(c.T())
		mixed.Scale(0.5*(*nu), mixed)
		ctd := &mat.Dense{}
		ctd.Mul(c.T(), d)
		mixed.Add(mixed, ctd)
		dtd := &mat.Dense{}
		dtd.Mul(d.T(), d)
		dSym := &mat.Dense{}
		dSym.Add(d, d.T())
		dSym.Scale(*nu, dSym)
		dtd.Sub(dtd, dSym)
		col = gonumext.Block([][]mat.Matrix{
			{ctc, mixed},
			{mixed.T(), dtd},
		})
	} else {
		// Coefficients for the free nu.
		n := colsOf(c)
		top := mat.DenseCopyOf(c.T())
		top.Scale(0.5*(*rho), top)
		dtd := &mat.Dense{}
		dtd.Mul(d.T(), d)
		dtd.Scale(*rho, dtd)
		col = gonumext.Block([][]mat.Matrix{
			{mat.NewDense(n, n, nil), top},
			{top.T(), dtd},
		})
	}
	col.Scale(2, col)
	return gonumext.Flatten(col)
}

// buildProblem assembles the SDP. When optimize is set, exactly one of nu
// and rho must be nil; the free index becomes one extra variable with cost
// -1 so that minimization maximizes it.
func buildProblem(sys *ssm.StateSpace, nu, rho *float64, eps float64, optimize bool) (sdp.Problem, error) {
	if sys.NumInputs() != sys.NumOutputs() {
		return sdp.Problem{}, fmt.Errorf("%w: %d inputs, %d outputs",
			ssm.ErrDimensionMismatch, sys.NumInputs(), sys.NumOutputs())
	}
	a, b, c, d := regularize(sys, eps)
	n := sys.NumStates()
	p := sys.NumOutputs()

	sysCoeffs := symmetricBasis(sys.IsCTime(), a, b, p)
	sysConstants := constantBlock(c, d, nu, rho)
	pCoeffs := positiveDefiniteBasis(n)

	nvars := n * (n + 1) / 2
	cost := make([]float64, nvars)
	if optimize {
		extra := indexColumn(c, d, nu, rho)
		var grown mat.Dense
		grown.Augment(sysCoeffs, mat.NewDense(len(extra), 1, extra))
		sysCoeffs = &grown
		var grownP mat.Dense
		grownP.Augment(pCoeffs, mat.NewDense(n*n, 1, nil))
		pCoeffs = &grownP
		cost = append(cost, -1)
	}

	return sdp.Problem{
		C: cost,
		Blocks: []sdp.Block{
			{G: sysCoeffs, H: sysConstants},
			{G: pCoeffs, H: mat.NewDense(n, n, nil)},
		},
	}, nil
}

func colsOf(m *mat.Dense) int { _, c := m.Dims(); return c }
