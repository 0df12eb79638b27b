package sdp

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Barrier is the in-process interior-point solver. It is deterministic: the
// iteration starts from the origin and uses no randomization.
type Barrier struct{}

// block is a preprocessed constraint: symmetrized coefficient and constant
// matrices.
type block struct {
	d int
	h *mat.SymDense
	f []*mat.SymDense
}

// Solve implements Solver.
func (Barrier) Solve(p Problem, opts Options) (Solution, error) {
	if err := p.validate(); err != nil {
		return Solution{}, err
	}
	term := opts.Term.withDefaults()
	nv := len(p.C)

	blocks := make([]*block, len(p.Blocks))
	for k, raw := range p.Blocks {
		blocks[k] = preprocess(raw, nv)
	}

	hasObjective := false
	for _, ci := range p.C {
		if ci != 0 {
			hasObjective = true
			break
		}
	}

	// Phase 1: minimize the slack s subject to S_k(x) + s I >= 0, starting
	// from x = 0 with s large enough to be strictly interior.
	aug := make([]*block, len(blocks))
	for k, blk := range blocks {
		aug[k] = blk.withSlackVariable()
	}
	s0 := 1.0
	for _, blk := range blocks {
		if lo := minEig(blk.h); -lo+1 > s0 {
			s0 = -lo + 1
		}
	}
	x0 := make([]float64, nv+1)
	x0[nv] = s0
	cPhase1 := make([]float64, nv+1)
	cPhase1[nv] = 1

	var stop func(x []float64) bool
	if hasObjective {
		// An interior point is all phase 1 must deliver here; the
		// optimal slack itself is not needed.
		stop = func(x []float64) bool { return x[nv] < -1e-4 }
	}
	x1, err := barrierMinimize(aug, cPhase1, x0, term, term.Tol, opts.Logger, "phase1", stop)
	if err != nil {
		return Solution{}, err
	}
	slack := x1[nv]
	x := x1[:nv]
	feasible := slack < term.FeasTol

	if !hasObjective {
		return Solution{X: x, Feasible: feasible}, nil
	}
	if !feasible {
		return Solution{}, ErrInfeasible
	}
	if slack >= 0 {
		return Solution{}, fmt.Errorf("%w: no strictly feasible point for index optimization", ErrInfeasible)
	}

	x2, err := barrierMinimize(blocks, p.C, x, term, term.GapTol, opts.Logger, "phase2", nil)
	if err != nil {
		return Solution{}, err
	}
	return Solution{X: x2, Feasible: true}, nil
}

func preprocess(raw Block, nv int) *block {
	d, _ := raw.H.Dims()
	blk := &block{d: d, h: symmetrize(raw.H), f: make([]*mat.SymDense, nv)}
	fd := mat.NewDense(d, d, nil)
	for i := 0; i < nv; i++ {
		for a := 0; a < d; a++ {
			for b := 0; b < d; b++ {
				fd.Set(a, b, raw.G.At(a*d+b, i))
			}
		}
		blk.f[i] = symmetrize(fd)
	}
	return blk
}

func symmetrize(m mat.Matrix) *mat.SymDense {
	d, _ := m.Dims()
	s := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return s
}

// withSlackVariable appends the slack coefficient -I so that
// S(x) + s I >= 0 becomes the block's inequality in the augmented variable
// (x, s).
func (b *block) withSlackVariable() *block {
	fs := make([]*mat.SymDense, len(b.f)+1)
	copy(fs, b.f)
	negEye := mat.NewSymDense(b.d, nil)
	for i := 0; i < b.d; i++ {
		negEye.SetSym(i, i, -1)
	}
	fs[len(b.f)] = negEye
	return &block{d: b.d, h: b.h, f: fs}
}

// slab evaluates S(x) = H - sum_i x_i F_i.
func (b *block) slab(x []float64) *mat.SymDense {
	s := mat.NewSymDense(b.d, nil)
	s.CopySym(b.h)
	for i, fi := range b.f {
		if x[i] == 0 {
			continue
		}
		for a := 0; a < b.d; a++ {
			for c := a; c < b.d; c++ {
				s.SetSym(a, c, s.At(a, c)-x[i]*fi.At(a, c))
			}
		}
	}
	return s
}

func minEig(s *mat.SymDense) float64 {
	var es mat.EigenSym
	if ok := es.Factorize(s, false); !ok {
		return math.Inf(-1)
	}
	vals := es.Values(nil)
	return vals[0]
}

// barrierMinimize runs the outer barrier loop for
// min t c^T x - sum_k log det S_k(x), increasing t until the gap bound
// drops below gapTol.
func barrierMinimize(blocks []*block, c, x0 []float64, term Termination, gapTol float64, logger *slog.Logger, phase string, stop func(x []float64) bool) ([]float64, error) {
	x := append([]float64(nil), x0...)
	totalDim := 0
	for _, blk := range blocks {
		totalDim += blk.d
	}
	t := 1.0
	for outer := 0; outer < term.MaxOuter; outer++ {
		var err error
		x, err = newtonMinimize(blocks, c, x, t, term)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Debug("sdp barrier stage",
				slog.String("phase", phase),
				slog.Int("outer", outer),
				slog.Float64("t", t),
				slog.Float64("objective", dot(c, x)),
				slog.Float64("gap", float64(totalDim)/t))
		}
		if stop != nil && stop(x) {
			break
		}
		if float64(totalDim)/t < gapTol {
			break
		}
		t *= 10
	}
	return x, nil
}

// newtonMinimize performs damped Newton steps on the barrier objective for a
// fixed barrier parameter t.
func newtonMinimize(blocks []*block, c, x0 []float64, t float64, term Termination) ([]float64, error) {
	nv := len(c)
	x := append([]float64(nil), x0...)
	for iter := 0; iter < term.MaxNewton; iter++ {
		grad := make([]float64, nv)
		for i := range grad {
			grad[i] = t * c[i]
		}
		hess := mat.NewSymDense(nv, nil)
		objBarrier := 0.0

		for _, blk := range blocks {
			s := blk.slab(x)
			var chol mat.Cholesky
			if ok := chol.Factorize(s); !ok {
				return nil, errors.New("sdp: iterate left the cone")
			}
			objBarrier -= chol.LogDet()
			var sInv mat.SymDense
			if err := chol.InverseTo(&sInv); err != nil {
				// Iterates hug the cone boundary as the barrier
				// tightens; an ill-conditioned slab still yields a
				// usable inverse.
				var cond mat.Condition
				if !errors.As(err, &cond) {
					return nil, fmt.Errorf("sdp: slab inverse: %w", err)
				}
			}
			// M_i = S^-1 F_i; grad_i += tr(M_i), hess_ij += tr(M_i M_j).
			ms := make([]*mat.Dense, nv)
			for i, fi := range blk.f {
				m := &mat.Dense{}
				m.Mul(&sInv, fi)
				ms[i] = m
				grad[i] += trace(m)
			}
			for i := 0; i < nv; i++ {
				for j := i; j < nv; j++ {
					hess.SetSym(i, j, hess.At(i, j)+traceProduct(ms[i], ms[j]))
				}
			}
		}

		step, err := solveNewtonStep(hess, grad)
		if err != nil {
			return nil, err
		}
		decrement := -dot(grad, step)
		if decrement/2 < 1e-12 {
			break
		}

		phi0 := t*dot(c, x) + objBarrier
		alpha := 1.0
		improved := false
		for alpha > 1e-13 {
			trial := make([]float64, nv)
			for i := range trial {
				trial[i] = x[i] + alpha*step[i]
			}
			phi, ok := barrierValue(blocks, c, trial, t)
			if ok && phi < phi0-0.25*alpha*decrement {
				x = trial
				improved = true
				break
			}
			alpha *= 0.5
		}
		if !improved {
			break
		}
		for i := range x {
			if math.Abs(x[i]) > divergenceBound {
				return nil, fmt.Errorf("%w: iterate diverged", ErrUnbounded)
			}
		}
	}
	return x, nil
}

// divergenceBound is the iterate magnitude past which the feasible set is
// treated as unbounded in the descent direction.
const divergenceBound = 1e30

func barrierValue(blocks []*block, c, x []float64, t float64) (float64, bool) {
	phi := t * dot(c, x)
	for _, blk := range blocks {
		s := blk.slab(x)
		var chol mat.Cholesky
		if ok := chol.Factorize(s); !ok {
			return 0, false
		}
		phi -= chol.LogDet()
	}
	return phi, true
}

// solveNewtonStep solves hess * step = -grad with a small ridge for
// numerical safety.
func solveNewtonStep(hess *mat.SymDense, grad []float64) ([]float64, error) {
	nv := len(grad)
	ridge := 0.0
	for i := 0; i < nv; i++ {
		if d := math.Abs(hess.At(i, i)); d > ridge {
			ridge = d
		}
	}
	ridge = math.Max(ridge*1e-14, 1e-14)
	reg := mat.NewSymDense(nv, nil)
	reg.CopySym(hess)
	for i := 0; i < nv; i++ {
		reg.SetSym(i, i, reg.At(i, i)+ridge)
	}
	neg := mat.NewVecDense(nv, nil)
	for i := 0; i < nv; i++ {
		neg.SetVec(i, -grad[i])
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(reg); !ok {
		return nil, errors.New("sdp: Newton system is not positive definite")
	}
	var step mat.VecDense
	if err := chol.SolveVecTo(&step, neg); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("sdp: Newton solve: %w", err)
		}
	}
	out := make([]float64, nv)
	for i := 0; i < nv; i++ {
		out[i] = step.AtVec(i)
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func trace(m *mat.Dense) float64 {
	n, _ := m.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += m.At(i, i)
	}
	return sum
}

func traceProduct(a, b *mat.Dense) float64 {
	n, _ := a.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum += a.At(i, j) * b.At(j, i)
		}
	}
	return sum
}
