package math

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Eye returns the n by n identity matrix scaled by the given factor.
func Eye(n int, scale float64) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, scale)
	}
	return s
}

// Asymmetry returns the largest absolute difference between mirrored entries.
// Non-square matrices are reported as infinitely asymmetric.
func Asymmetry(m mat.Matrix) float64 {
	r, c := m.Dims()
	if r != c {
		return math.Inf(1)
	}
	var d float64
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			d = math.Max(d, math.Abs(m.At(i, j)-m.At(j, i)))
		}
	}
	return d
}

// Finite checks that there is no NaN or Inf in the matrix.
func Finite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Rows copies the matrix into a slice of rows.
func Rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, m)
	}
	return rows
}

// Vector copies the vector into a slice.
func Vector(v mat.Vector) []float64 {
	vv := make([]float64, v.Len())
	for i := range vv {
		vv[i] = v.AtVec(i)
	}
	return vv
}
