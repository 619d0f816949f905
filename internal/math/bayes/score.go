package bayes

import (
	"fmt"
	"math"
)

// Score summarises how well the current predictive distribution anticipates a batch of observations.
type Score struct {
	Count int `json:"count"`
	// MSE is the mean squared error of the predictive mean.
	MSE float64 `json:"mse"`
	// Z is the mean standardized residual.
	Z float64 `json:"z"`
	// Coverage is the fraction of targets within the prediction limits.
	Coverage float64 `json:"coverage"`
	// Residuals are the standardized residuals of each observation.
	Residuals []float64 `json:"residuals"`
}

// Score evaluates the observations against the current posterior without absorbing them.
// Coverage counts the targets within stdevs standard deviations of the predictive mean.
func (m *Model) Score(xs, ts []float64, stdevs float64) (Score, error) {
	if len(xs) != len(ts) {
		return Score{}, fmt.Errorf("inputs and targets have different lengths [ %d | %d ]: %w", len(xs), len(ts), ShapeMismatchErr)
	}
	score := Score{
		Count:     len(xs),
		Residuals: make([]float64, len(xs)),
	}
	if len(xs) == 0 {
		return score, nil
	}
	var inside int
	for i, x := range xs {
		mean, variance := m.Predict(x)
		r := ts[i] - mean
		z := r / math.Sqrt(variance)
		score.MSE += r * r
		score.Z += z
		score.Residuals[i] = z
		if math.Abs(z) <= math.Abs(stdevs) {
			inside++
		}
	}
	n := float64(len(xs))
	score.MSE /= n
	score.Z /= n
	score.Coverage = float64(inside) / n
	return score, nil
}
