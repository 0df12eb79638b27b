package reduction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"ltitools/ssm"
)

func twoModeSystem(t *testing.T) *ssm.StateSpace {
	t.Helper()
	// Two well-separated stable modes; the fast one carries a tenth of the
	// DC gain.
	sys, err := ssm.NewStateSpace(
		mat.NewDense(2, 2, []float64{-1, 0, 0, -10}),
		mat.NewDense(2, 1, []float64{1, 1}),
		mat.NewDense(1, 2, []float64{1, 1}),
		nil,
	)
	require.NoError(t, err)
	return sys
}

func TestModRedStateCounts(t *testing.T) {
	sys, err := ssm.NewStateSpace(
		mat.NewDense(4, 4, []float64{
			-1, 0.1, 0, 0,
			0, -2, 0.1, 0,
			0, 0, -3, 0.1,
			0, 0, 0, -4,
		}),
		mat.NewDense(4, 1, []float64{1, 1, 1, 1}),
		mat.NewDense(1, 4, []float64{1, 1, 1, 1}),
		nil,
	)
	require.NoError(t, err)
	for _, method := range []Method{Truncate, MatchDC} {
		reduced, err := ModRed(sys, []int{3, 1}, method)
		require.NoError(t, err, method.String())
		assert.Equal(t, 2, reduced.NumStates(), method.String())
		assert.Equal(t, 1, reduced.NumInputs())
		assert.Equal(t, 1, reduced.NumOutputs())
	}
}

func TestModRedMatchDCPreservesDCGain(t *testing.T) {
	sys := twoModeSystem(t)
	orig, err := sys.DCGain()
	require.NoError(t, err)

	matched, err := ModRed(sys, []int{1}, MatchDC)
	require.NoError(t, err)
	matchedGain, err := matched.DCGain()
	require.NoError(t, err)
	assert.InDelta(t, orig.At(0, 0), matchedGain.At(0, 0), 1e-10)

	truncated, err := ModRed(sys, []int{1}, Truncate)
	require.NoError(t, err)
	truncatedGain, err := truncated.DCGain()
	require.NoError(t, err)
	// Truncation drops the fast mode's 0.1 contribution to the DC gain.
	assert.Greater(t, orig.At(0, 0)-truncatedGain.At(0, 0), 0.05)
}

func TestModRedUnstable(t *testing.T) {
	sys, err := ssm.NewStateSpace(
		mat.NewDense(2, 2, []float64{1, 0, 0, -1}),
		mat.NewDense(2, 1, []float64{1, 1}),
		mat.NewDense(1, 2, []float64{1, 1}),
		nil,
	)
	require.NoError(t, err)
	_, err = ModRed(sys, []int{1}, Truncate)
	assert.ErrorIs(t, err, ErrUnstable)
}

func TestModRedInvalidMethod(t *testing.T) {
	sys := twoModeSystem(t)
	_, err := ModRed(sys, []int{1}, Method(0))
	assert.ErrorIs(t, err, ErrInvalidMethod)
	_, err = ModRed(sys, []int{1}, Method(9))
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestModRedSingularA22(t *testing.T) {
	// Stable (trace -1, det 1) with a zero A22 entry for state 1.
	sys, err := ssm.NewStateSpace(
		mat.NewDense(2, 2, []float64{-1, 1, -1, 0}),
		mat.NewDense(2, 1, []float64{1, 0}),
		mat.NewDense(1, 2, []float64{1, 0}),
		nil,
	)
	require.NoError(t, err)
	_, err = ModRed(sys, []int{1}, MatchDC)
	assert.ErrorIs(t, err, ErrSingular)
	// Truncation does not touch A22.
	_, err = ModRed(sys, []int{1}, Truncate)
	assert.NoError(t, err)
}

func TestModRedIndexValidation(t *testing.T) {
	sys := twoModeSystem(t)
	_, err := ModRed(sys, []int{2}, Truncate)
	assert.ErrorIs(t, err, ErrStateIndex)
	_, err = ModRed(sys, []int{0, 0}, Truncate)
	assert.ErrorIs(t, err, ErrStateIndex)
	_, err = ModRed(sys, []int{0, 1}, Truncate)
	assert.ErrorIs(t, err, ErrStateIndex)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("truncate")
	require.NoError(t, err)
	assert.Equal(t, Truncate, m)
	m, err = ParseMethod("matchdc")
	require.NoError(t, err)
	assert.Equal(t, MatchDC, m)
	_, err = ParseMethod("residualize")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}
