package bayes

import (
	"fmt"

	coinmath "github.com/drakos74/free-bayes/internal/math"
	"gonum.org/v1/gonum/mat"
)

const (
	LinearBasis     = "linear"
	PolynomialBasis = "polynomial"
)

// Basis maps a raw scalar input to the feature vector the linear model is defined on.
type Basis interface {
	Name() string
	// Dim is the width M of the feature vector.
	Dim() int
	Features(x float64) []float64
}

// Designer is implemented by bases that can build the whole design matrix at once.
type Designer interface {
	Design(xs []float64) *mat.Dense
}

// Linear is the bias plus slope basis [1, x].
type Linear struct{}

func (Linear) Name() string {
	return LinearBasis
}

func (Linear) Dim() int {
	return 2
}

func (Linear) Features(x float64) []float64 {
	return []float64{1, x}
}

func (Linear) Design(xs []float64) *mat.Dense {
	return coinmath.Vandermonde(xs, 1)
}

// Polynomial is the basis [1, x, x^2, ..., x^Degree].
type Polynomial struct {
	Degree int
}

func (p Polynomial) Name() string {
	return PolynomialBasis
}

func (p Polynomial) Dim() int {
	return p.Degree + 1
}

func (p Polynomial) Features(x float64) []float64 {
	ff := make([]float64, p.Dim())
	for j, v := 0, 1.; j < len(ff); j, v = j+1, v*x {
		ff[j] = v
	}
	return ff
}

func (p Polynomial) Design(xs []float64) *mat.Dense {
	return coinmath.Vandermonde(xs, p.Degree)
}

// BasisFor resolves a basis by name.
// The degree is only taken into account for the polynomial basis.
func BasisFor(name string, degree int) (Basis, error) {
	switch name {
	case "", LinearBasis:
		return Linear{}, nil
	case PolynomialBasis:
		if degree < 0 {
			return nil, fmt.Errorf("negative polynomial degree %d: %w", degree, InvalidParameterErr)
		}
		return Polynomial{Degree: degree}, nil
	}
	return nil, fmt.Errorf("unknown basis '%s': %w", name, InvalidParameterErr)
}

// DesignMatrix builds the N by M design matrix for the given inputs.
// Row i holds the basis features of xs[i]. It returns nil for an empty input.
func DesignMatrix(basis Basis, xs []float64) *mat.Dense {
	if len(xs) == 0 {
		return nil
	}
	if d, ok := basis.(Designer); ok {
		return d.Design(xs)
	}
	phi := mat.NewDense(len(xs), basis.Dim(), nil)
	for i, x := range xs {
		phi.SetRow(i, basis.Features(x))
	}
	return phi
}
