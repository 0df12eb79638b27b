package reduction

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"ltitools/gram"
	"ltitools/ssm"
)

// HSVTolerance is the relative gate on eigenvalue residues of the gramian
// product. The product Wo Wc is not symmetric, so roundoff can leave its
// eigenvalues with tiny imaginary or negative parts; residues within the
// gate are clamped to the real nonnegative axis, residues beyond it are an
// error.
const HSVTolerance = 1e-8

// HSV returns the Hankel singular values of a continuous-time system: the
// square roots of the eigenvalues of the product of the observability and
// controllability gramians, sorted in descending order. The result has
// exactly as many entries as the system has states.
func HSV(sys *ssm.StateSpace) ([]float64, error) {
	if sys.IsDTime(true) {
		return nil, fmt.Errorf("hankel singular values: %w", ssm.ErrNotSupported)
	}
	wc, err := gram.Gramian(sys, gram.Controllability)
	if err != nil {
		return nil, err
	}
	wo, err := gram.Gramian(sys, gram.Observability)
	if err != nil {
		return nil, err
	}

	var product mat.Dense
	product.Mul(wo, wc)
	var eig mat.Eigen
	if ok := eig.Factorize(&product, mat.EigenNone); !ok {
		return nil, fmt.Errorf("hankel singular values: eigendecomposition of gramian product failed")
	}
	values := eig.Values(nil)

	scale := 0.0
	for _, v := range values {
		if a := cmplxAbs(v); a > scale {
			scale = a
		}
	}
	gate := HSVTolerance * math.Max(scale, 1)

	hsv := make([]float64, len(values))
	for i, v := range values {
		if math.Abs(imag(v)) > gate {
			return nil, fmt.Errorf("hankel singular values: eigenvalue %v has a non-negligible imaginary part", v)
		}
		re := real(v)
		if re < -gate {
			return nil, fmt.Errorf("hankel singular values: eigenvalue %v is negative beyond tolerance", v)
		}
		hsv[i] = math.Sqrt(math.Max(re, 0))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(hsv)))
	return hsv, nil
}

func cmplxAbs(v complex128) float64 {
	return math.Hypot(real(v), imag(v))
}
