// Package gonumext collects small dense-matrix helpers used across the
// reduction and passivity packages.
package gonumext

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Eye returns a (m by n) matrix with ones on the k-th diagonal. k = 0 is the
// main diagonal, k > 0 lies above it and k < 0 below.
func Eye(m, n, k int) *mat.Dense {
	res := mat.NewDense(m, n, nil)
	for row := 0; row < m; row++ {
		col := row + k
		if col >= 0 && col < n {
			res.Set(row, col, 1)
		}
	}
	return res
}

// Flatten returns the entries of matrix in row-major order.
func Flatten(matrix mat.Matrix) []float64 {
	m, n := matrix.Dims()
	data := make([]float64, m*n)
	for row := 0; row < m; row++ {
		for col := 0; col < n; col++ {
			data[row*n+col] = matrix.At(row, col)
		}
	}
	return data
}

// Block assembles a dense matrix from a 2D grid of blocks. All blocks in a
// grid row must share their row count and all blocks in a grid column their
// column count.
func Block(blocks [][]mat.Matrix) *mat.Dense {
	var rows, cols int
	for _, blockRow := range blocks {
		m, _ := blockRow[0].Dims()
		rows += m
	}
	for _, block := range blocks[0] {
		_, n := block.Dims()
		cols += n
	}
	res := mat.NewDense(rows, cols, nil)
	rowOffset := 0
	for _, blockRow := range blocks {
		colOffset := 0
		var height int
		for _, block := range blockRow {
			m, n := block.Dims()
			height = m
			res.Slice(rowOffset, rowOffset+m, colOffset, colOffset+n).(*mat.Dense).Copy(block)
			colOffset += n
		}
		rowOffset += height
	}
	return res
}

// NaNOrInf checks if there are any NaN or Inf entries in matrix.
func NaNOrInf(matrix mat.Matrix) bool {
	m, n := matrix.Dims()
	for row := 0; row < m; row++ {
		for col := 0; col < n; col++ {
			if math.IsNaN(matrix.At(row, col)) || math.IsInf(matrix.At(row, col), 0) {
				return true
			}
		}
	}
	return false
}
