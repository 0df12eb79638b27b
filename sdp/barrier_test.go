package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// scalarBlock builds a one-variable scalar inequality h - f*x >= 0.
func scalarBlock(f, h float64) Block {
	return Block{
		G: mat.NewDense(1, 1, []float64{f}),
		H: mat.NewDense(1, 1, []float64{h}),
	}
}

func TestBarrierScalarOptimum(t *testing.T) {
	// maximize x subject to x <= 2 and x >= 0.
	p := Problem{
		C: []float64{-1},
		Blocks: []Block{
			scalarBlock(1, 2),
			scalarBlock(-1, 0),
		},
	}
	sol, err := Barrier{}.Solve(p, Options{Term: Termination{GapTol: 1e-9}})
	require.NoError(t, err)
	require.Len(t, sol.X, 1)
	assert.InDelta(t, 2, sol.X[0], 1e-6)
}

func TestBarrierLargestEigenvalue(t *testing.T) {
	// minimize t subject to t*I - M >= 0 for a symmetric M with eigenvalues
	// 1 and 3; the optimum is the largest eigenvalue.
	p := Problem{
		C: []float64{1},
		Blocks: []Block{{
			G: mat.NewDense(4, 1, []float64{-1, 0, 0, -1}),
			H: mat.NewDense(2, 2, []float64{-2, -1, -1, -2}),
		}},
	}
	sol, err := Barrier{}.Solve(p, Options{Term: Termination{GapTol: 1e-9}})
	require.NoError(t, err)
	assert.InDelta(t, 3, sol.X[0], 1e-5)
}

func TestBarrierUnboundedObjective(t *testing.T) {
	// maximize x subject only to x >= 0.
	p := Problem{
		C:      []float64{-1},
		Blocks: []Block{scalarBlock(-1, 0)},
	}
	_, err := Barrier{}.Solve(p, Options{})
	assert.ErrorIs(t, err, ErrUnbounded)
}

func TestBarrierFeasibility(t *testing.T) {
	feasible := Problem{
		C: []float64{0},
		Blocks: []Block{
			scalarBlock(1, 2),
			scalarBlock(-1, 0),
		},
	}
	sol, err := Barrier{}.Solve(feasible, Options{})
	require.NoError(t, err)
	assert.True(t, sol.Feasible)

	// x <= 2 together with x >= 3 has no solution.
	infeasible := Problem{
		C: []float64{0},
		Blocks: []Block{
			scalarBlock(1, 2),
			scalarBlock(-1, -3),
		},
	}
	sol, err = Barrier{}.Solve(infeasible, Options{})
	require.NoError(t, err)
	assert.False(t, sol.Feasible)
}

func TestBarrierOptimizationInfeasible(t *testing.T) {
	p := Problem{
		C: []float64{-1},
		Blocks: []Block{
			scalarBlock(1, 2),
			scalarBlock(-1, -3),
		},
	}
	_, err := Barrier{}.Solve(p, Options{})
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestBarrierValidation(t *testing.T) {
	_, err := Barrier{}.Solve(Problem{C: []float64{1}}, Options{})
	assert.Error(t, err)

	bad := Problem{
		C: []float64{1},
		Blocks: []Block{{
			G: mat.NewDense(2, 1, []float64{1, 0}),
			H: mat.NewDense(2, 2, nil),
		}},
	}
	_, err = Barrier{}.Solve(bad, Options{})
	assert.Error(t, err)
}

func TestBarrierDeterministic(t *testing.T) {
	p := Problem{
		C: []float64{-1},
		Blocks: []Block{
			scalarBlock(1, 2),
			scalarBlock(-1, 0),
		},
	}
	first, err := Barrier{}.Solve(p, Options{})
	require.NoError(t, err)
	second, err := Barrier{}.Solve(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.X, second.X)
}
