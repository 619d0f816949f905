// Package bayes implements sequential bayesian inference for linear models
// with a gaussian prior over the weights and known gaussian observation noise.
//
// The posterior over the weights is kept in closed form (mean and covariance)
// and is fully recomputed on every update, the previous posterior acting as the
// prior for the next batch of observations.
package bayes

import (
	"fmt"
	"math"

	coinmath "github.com/drakos74/free-bayes/internal/math"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// symmetryTolerance is the relative asymmetry accepted for a prior covariance.
const symmetryTolerance = 1e-9

// Model is a bayesian linear model with a gaussian belief over its weights.
// It is not safe for concurrent use; updates must be serialised by the caller
// and must not overlap with predictions.
type Model struct {
	basis Basis
	beta  float64
	mean  *mat.VecDense
	cov   *mat.SymDense
	count int
}

// New creates a model on the linear [1, x] basis with the given prior and noise precision.
func New(mean []float64, cov mat.Matrix, beta float64) (*Model, error) {
	return NewWithBasis(Linear{}, mean, cov, beta)
}

// NewWithBasis creates a model on the given basis with the given prior and noise precision.
// The prior mean must have the width of the basis and the covariance must be a symmetric
// square matrix of the same size.
func NewWithBasis(basis Basis, mean []float64, cov mat.Matrix, beta float64) (*Model, error) {
	if basis == nil {
		return nil, fmt.Errorf("no basis given: %w", InvalidParameterErr)
	}
	if beta <= 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return nil, fmt.Errorf("noise precision must be positive and finite, got %v: %w", beta, InvalidParameterErr)
	}
	if cov == nil {
		return nil, fmt.Errorf("no prior covariance given: %w", ShapeMismatchErr)
	}
	r, c := cov.Dims()
	if r != c {
		return nil, fmt.Errorf("prior covariance is not square [ %d x %d ]: %w", r, c, ShapeMismatchErr)
	}
	if len(mean) != r {
		return nil, fmt.Errorf("prior mean length %d does not match covariance [ %d x %d ]: %w", len(mean), r, c, ShapeMismatchErr)
	}
	if m := basis.Dim(); m != r {
		return nil, fmt.Errorf("basis '%s' has width %d but prior has %d: %w", basis.Name(), m, r, ShapeMismatchErr)
	}
	if !coinmath.Finite(cov) || !coinmath.Finite(mat.NewVecDense(len(mean), mean)) {
		return nil, fmt.Errorf("prior contains non-finite values: %w", InvalidParameterErr)
	}
	if d := coinmath.Asymmetry(cov); d > symmetryTolerance*math.Max(1, mat.Norm(cov, math.Inf(1))) {
		return nil, fmt.Errorf("prior covariance is not symmetric (%v): %w", d, InvalidParameterErr)
	}

	s := symmetric(cov)
	if err := semiDefinite(s); err != nil {
		return nil, err
	}

	m0 := make([]float64, len(mean))
	copy(m0, mean)

	return &Model{
		basis: basis,
		beta:  beta,
		mean:  mat.NewVecDense(len(m0), m0),
		cov:   s,
	}, nil
}

// semiDefinite rejects a covariance with negative eigenvalues.
// A singular but semi-definite covariance is accepted and fails on the first update.
func semiDefinite(s *mat.SymDense) error {
	var eig mat.EigenSym
	if ok := eig.Factorize(s, false); !ok {
		return fmt.Errorf("could not factorize prior covariance: %w", SingularMatrixErr)
	}
	floor := -symmetryTolerance * math.Max(1, mat.Norm(s, math.Inf(1)))
	for _, v := range eig.Values(nil) {
		if v < floor {
			return fmt.Errorf("prior covariance is not positive semi-definite (eigenvalue %v): %w", v, SingularMatrixErr)
		}
	}
	return nil
}

// symmetric copies the matrix into a symmetric one, averaging mirrored entries.
func symmetric(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return s
}

// Basis returns the feature map of the model.
func (m *Model) Basis() Basis {
	return m.basis
}

// Dim returns the number of weights.
func (m *Model) Dim() int {
	return m.basis.Dim()
}

// Beta returns the noise precision.
func (m *Model) Beta() float64 {
	return m.beta
}

// Observations returns the number of observations absorbed by the posterior.
func (m *Model) Observations() int {
	return m.count
}

// Mean returns a copy of the current posterior mean.
func (m *Model) Mean() *mat.VecDense {
	return mat.VecDenseCopyOf(m.mean)
}

// Covariance returns a copy of the current posterior covariance.
func (m *Model) Covariance() *mat.SymDense {
	c := mat.NewSymDense(m.Dim(), nil)
	c.CopySym(m.cov)
	return c
}

// Update conditions the posterior on the given observations.
//
//	SN = (S0^-1 + beta * Phi' * Phi)^-1
//	mN = SN * (S0^-1 * m0 + beta * Phi' * t)
//
// The posterior is replaced only if the whole computation succeeds.
// An empty batch leaves the model untouched.
func (m *Model) Update(xs, ts []float64) error {
	if len(xs) != len(ts) {
		return fmt.Errorf("inputs and targets have different lengths [ %d | %d ]: %w", len(xs), len(ts), ShapeMismatchErr)
	}
	if len(xs) == 0 {
		return nil
	}
	if !finite(xs) || !finite(ts) {
		return fmt.Errorf("observations contain non-finite values: %w", InvalidParameterErr)
	}

	dim := m.Dim()
	phi := DesignMatrix(m.basis, xs)
	if _, c := phi.Dims(); c != dim {
		return fmt.Errorf("design matrix has %d columns for %d weights: %w", c, dim, ShapeMismatchErr)
	}
	phiT := mat.DenseCopyOf(phi.T())

	var prior mat.Cholesky
	if ok := prior.Factorize(m.cov); !ok {
		return fmt.Errorf("prior covariance is not positive definite: %w", SingularMatrixErr)
	}
	precision := mat.NewSymDense(dim, nil)
	if err := prior.InverseTo(precision); err != nil {
		return fmt.Errorf("could not invert prior covariance: %v: %w", err, SingularMatrixErr)
	}

	// S0^-1 + beta * Phi' * Phi
	a := mat.NewSymDense(dim, nil)
	a.SymOuterK(m.beta, phiT)
	a.AddSym(a, precision)

	// S0^-1 * m0 + beta * Phi' * t
	t := mat.NewVecDense(len(ts), append([]float64(nil), ts...))
	b := mat.NewVecDense(dim, nil)
	b.MulVec(precision, m.mean)
	pt := mat.NewVecDense(dim, nil)
	pt.MulVec(phiT, t)
	b.AddScaledVec(b, m.beta, pt)

	var posterior mat.Cholesky
	if ok := posterior.Factorize(a); !ok {
		return fmt.Errorf("posterior precision is not positive definite: %w", SingularMatrixErr)
	}
	cov := mat.NewSymDense(dim, nil)
	if err := posterior.InverseTo(cov); err != nil {
		return fmt.Errorf("could not invert posterior precision: %v: %w", err, SingularMatrixErr)
	}
	mean := mat.NewVecDense(dim, nil)
	if err := posterior.SolveVecTo(mean, b); err != nil {
		return fmt.Errorf("could not solve for posterior mean: %v: %w", err, SingularMatrixErr)
	}
	if !coinmath.Finite(cov) || !coinmath.Finite(mean) {
		return fmt.Errorf("posterior contains non-finite values: %w", SingularMatrixErr)
	}
	if mean.Len() != dim {
		return fmt.Errorf("posterior mean has length %d for %d weights: %w", mean.Len(), dim, ShapeMismatchErr)
	}

	m.mean = mean
	m.cov = cov
	m.count += len(xs)

	log.Debug().
		Int("batch", len(xs)).
		Int("observations", m.count).
		Floats64("mean", coinmath.Vector(mean)).
		Float64("trace", mat.Trace(cov)).
		Msg("updated posterior")
	return nil
}

func finite(ff []float64) bool {
	for _, f := range ff {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
