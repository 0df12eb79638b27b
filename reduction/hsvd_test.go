package reduction

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"ltitools/ssm"
)

func TestHSVScalarSystem(t *testing.T) {
	// Both gramians of x' = -x + u, y = x are 1/2, so the single Hankel
	// singular value is 1/2.
	one := mat.NewDense(1, 1, []float64{1})
	sys, err := ssm.NewStateSpace(mat.NewDense(1, 1, []float64{-1}), one, one, nil)
	require.NoError(t, err)
	hsv, err := HSV(sys)
	require.NoError(t, err)
	require.Len(t, hsv, 1)
	assert.InDelta(t, 0.5, hsv[0], 1e-12)
}

func TestHSVProperties(t *testing.T) {
	sys, err := ssm.NewStateSpace(
		mat.NewDense(4, 4, []float64{
			-1, 0.3, 0, 0.2,
			0, -2, 0.5, 0,
			0, 0, -3, 0.1,
			0, 0, 0, -4,
		}),
		mat.NewDense(4, 2, []float64{1, 0, 0, 1, 1, 1, 0.5, 0}),
		mat.NewDense(2, 4, []float64{1, 0, 1, 0, 0, 1, 0, 1}),
		nil,
	)
	require.NoError(t, err)
	hsv, err := HSV(sys)
	require.NoError(t, err)
	require.Len(t, hsv, 4)
	assert.True(t, sort.IsSorted(sort.Reverse(sort.Float64Slice(hsv))), "hsv not descending: %v", hsv)
	for _, sv := range hsv {
		assert.GreaterOrEqual(t, sv, 0.0)
	}
}

func TestHSVDiscreteNotSupported(t *testing.T) {
	one := mat.NewDense(1, 1, []float64{1})
	sys, err := ssm.NewDiscreteStateSpace(mat.NewDense(1, 1, []float64{0.5}), one, one, nil, 1)
	require.NoError(t, err)
	_, err = HSV(sys)
	assert.ErrorIs(t, err, ssm.ErrNotSupported)
}
