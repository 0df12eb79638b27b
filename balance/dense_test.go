package balance

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func stableJob(order int, matchDC bool) Job {
	return Job{
		A: mat.NewDense(3, 3, []float64{
			-1, 0.5, 0,
			0, -4, 0.2,
			0.1, 0, -6,
		}),
		B:       mat.NewDense(3, 1, []float64{1, 1, 0.5}),
		C:       mat.NewDense(1, 3, []float64{1, 0.5, 1}),
		D:       mat.NewDense(1, 1, []float64{0.2}),
		Order:   order,
		MatchDC: matchDC,
	}
}

func TestDenseReduceStableTruncate(t *testing.T) {
	res, err := Dense{}.Reduce(stableJob(2, false))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Order)
	assert.Equal(t, 0, res.UnstableCount)
	r, c := res.A.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	require.Len(t, res.HSV, 3)
	assert.True(t, sort.IsSorted(sort.Reverse(sort.Float64Slice(res.HSV))))
}

func TestDenseReduceMatchDCGain(t *testing.T) {
	job := stableJob(1, true)
	res, err := Dense{}.Reduce(job)
	require.NoError(t, err)

	orig := dcGain(t, job.A, job.B, job.C, job.D)
	got := dcGain(t, res.A, res.B, res.C, res.D)
	assert.InDelta(t, orig, got, 1e-8)
}

func TestDenseReduceFullOrderIsIdentity(t *testing.T) {
	job := stableJob(3, false)
	res, err := Dense{}.Reduce(job)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Order)
	assert.True(t, mat.EqualApprox(job.A, res.A, 0))
}

func TestDenseReduceSeparatesUnstableModes(t *testing.T) {
	job := Job{
		A:                mat.NewDense(2, 2, []float64{2, 0, 0.3, -1}),
		B:                mat.NewDense(2, 1, []float64{1, 1}),
		C:                mat.NewDense(1, 2, []float64{1, 1}),
		D:                mat.NewDense(1, 1, nil),
		Order:            1,
		SeparateUnstable: true,
	}
	res, err := Dense{}.Reduce(job)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UnstableCount)
	assert.Equal(t, 1, res.Order)
	// The single surviving state is the untouched unstable mode.
	assert.InDelta(t, 2, res.A.At(0, 0), 1e-10)
}

func TestDenseReduceOrderInfeasible(t *testing.T) {
	job := Job{
		A:                mat.NewDense(2, 2, []float64{1, 0, 0, 3}),
		B:                mat.NewDense(2, 1, []float64{1, 1}),
		C:                mat.NewDense(1, 2, []float64{1, 1}),
		D:                mat.NewDense(1, 1, nil),
		Order:            1,
		SeparateUnstable: true,
	}
	_, err := Dense{}.Reduce(job)
	assert.ErrorIs(t, err, ErrOrderInfeasible)
}

func dcGain(t *testing.T, a, b, c, d *mat.Dense) float64 {
	t.Helper()
	negA := mat.DenseCopyOf(a)
	negA.Scale(-1, negA)
	var x mat.Dense
	require.NoError(t, x.Solve(negA, b))
	var gain mat.Dense
	gain.Mul(c, &x)
	gain.Add(&gain, d)
	return gain.At(0, 0)
}
