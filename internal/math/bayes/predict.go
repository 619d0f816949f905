package bayes

import (
	"fmt"
	"math"

	coinmath "github.com/drakos74/free-bayes/internal/math"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Predict returns the mean and variance of the predictive distribution for a new observation at x.
// The variance accounts for the observation noise and the uncertainty of the weights.
//
//	mean     = mN' * phi(x)
//	variance = 1/beta + phi(x)' * SN * phi(x)
func (m *Model) Predict(x float64) (mean, variance float64) {
	phi := mat.NewVecDense(m.Dim(), m.basis.Features(x))
	mean = mat.Dot(m.mean, phi)
	variance = 1/m.beta + mat.Inner(phi, m.cov, phi)
	return mean, variance
}

// PredictiveMean returns the predictive mean at each of the given inputs.
func (m *Model) PredictiveMean(xs []float64) []float64 {
	mm := make([]float64, len(xs))
	for i, x := range xs {
		mm[i], _ = m.Predict(x)
	}
	return mm
}

// PredictiveVariance returns the predictive variance at each of the given inputs.
func (m *Model) PredictiveVariance(xs []float64) []float64 {
	vv := make([]float64, len(xs))
	for i, x := range xs {
		_, vv[i] = m.Predict(x)
	}
	return vv
}

// PredictionLimit returns the predictive mean shifted by the given number of standard deviations
// at each of the given inputs. A negative multiplier gives the lower limit.
func (m *Model) PredictionLimit(xs []float64, stdevs float64) []float64 {
	ll := make([]float64, len(xs))
	for i, x := range xs {
		mean, variance := m.Predict(x)
		ll[i] = mean + stdevs*math.Sqrt(variance)
	}
	return ll
}

// GenerateData draws one simulated observation per input from the predictive distribution.
func (m *Model) GenerateData(xs []float64, src rand.Source) ([]float64, error) {
	if src == nil {
		return nil, fmt.Errorf("no random source given: %w", InvalidParameterErr)
	}
	tt := make([]float64, len(xs))
	for i, x := range xs {
		mean, variance := m.Predict(x)
		tt[i] = distuv.Normal{
			Mu:    mean,
			Sigma: math.Sqrt(variance),
			Src:   src,
		}.Rand()
	}
	return tt, nil
}

// SampleWeights draws count independent weight vectors from the current posterior.
func (m *Model) SampleWeights(count int, src rand.Source) ([][]float64, error) {
	if count < 0 {
		return nil, fmt.Errorf("negative sample count %d: %w", count, InvalidParameterErr)
	}
	if src == nil {
		return nil, fmt.Errorf("no random source given: %w", InvalidParameterErr)
	}
	normal, ok := distmv.NewNormal(coinmath.Vector(m.mean), m.cov, src)
	if !ok {
		return nil, fmt.Errorf("posterior covariance is not positive definite: %w", SingularMatrixErr)
	}
	ww := make([][]float64, count)
	for i := range ww {
		ww[i] = normal.Rand(nil)
	}
	return ww, nil
}
