package reduction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkovRecoversConvolutionKernel(t *testing.T) {
	h := []float64{1, 0.5, 0.25, 0.125}
	u := []float64{1, -0.3, 0.8, 0.1, -0.5, 0.2, 0.9, -0.1}
	y := make([]float64, len(u))
	for i := range y {
		for j, hj := range h {
			if i-j >= 0 {
				y[i] += hj * u[i-j]
			}
		}
	}
	got, err := Markov(y, u, len(h))
	require.NoError(t, err)
	for i, want := range h {
		assert.InDelta(t, want, got[i], 1e-10)
	}
}

func TestMarkovValidation(t *testing.T) {
	_, err := Markov([]float64{1, 2}, []float64{1}, 1)
	assert.Error(t, err)
	_, err = Markov([]float64{1, 2}, []float64{1, 2}, 0)
	assert.Error(t, err)
	_, err = Markov([]float64{1, 2}, []float64{1, 2}, 3)
	assert.Error(t, err)
}

func TestERANotImplemented(t *testing.T) {
	_, err := ERA(nil, 2, 2, 1, 1, 2)
	assert.ErrorIs(t, err, ErrNotImplemented)
}
