package ssm

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// TransferFunction is a SISO continuous-time transfer function with
// polynomial coefficients in descending powers of s,
//
//	H(s) = (Num[0] s^k + ... + Num[k]) / (Den[0] s^l + ... + Den[l]).
type TransferFunction struct {
	Num, Den []float64
}

// NewTransferFunction creates a transfer function from numerator and
// denominator coefficients in descending powers of s.
func NewTransferFunction(num, den []float64) (*TransferFunction, error) {
	num = trimLeadingZeros(num)
	den = trimLeadingZeros(den)
	if len(den) == 0 {
		return nil, errors.New("ssm: zero denominator")
	}
	if len(num) == 0 {
		num = []float64{0}
	}
	return &TransferFunction{Num: num, Den: den}, nil
}

func trimLeadingZeros(coeffs []float64) []float64 {
	for len(coeffs) > 0 && coeffs[0] == 0 {
		coeffs = coeffs[1:]
	}
	return coeffs
}

// StateSpace realizes the transfer function in controllable canonical form.
// The transfer function must be proper.
func (tf *TransferFunction) StateSpace() (*StateSpace, error) {
	if len(tf.Num) > len(tf.Den) {
		return nil, fmt.Errorf("%w: numerator degree %d exceeds denominator degree %d",
			ErrImproper, len(tf.Num)-1, len(tf.Den)-1)
	}
	n := len(tf.Den) - 1

	// Normalize to a monic denominator s^n + a1 s^(n-1) + ... + an and pad
	// the numerator to b0 s^n + b1 s^(n-1) + ... + bn.
	a := make([]float64, n+1)
	for i, c := range tf.Den {
		a[i] = c / tf.Den[0]
	}
	b := make([]float64, n+1)
	copy(b[n+1-len(tf.Num):], tf.Num)
	for i := range b {
		b[i] /= tf.Den[0]
	}

	if n == 0 {
		return nil, errors.New("ssm: static gain has no state-space realization")
	}

	// Top-companion A with B = e1; C absorbs the feedthrough b0.
	A := mat.NewDense(n, n, nil)
	for col := 0; col < n; col++ {
		A.Set(0, col, -a[col+1])
	}
	for row := 1; row < n; row++ {
		A.Set(row, row-1, 1)
	}
	B := mat.NewDense(n, 1, nil)
	B.Set(0, 0, 1)
	C := mat.NewDense(1, n, nil)
	for col := 0; col < n; col++ {
		C.Set(0, col, b[col+1]-a[col+1]*b[0])
	}
	D := mat.NewDense(1, 1, []float64{b[0]})
	return NewStateSpace(A, B, C, D)
}
