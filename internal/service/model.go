package service

import (
	"time"

	"github.com/drakos74/free-bayes/internal/buffer"
	"github.com/drakos74/free-bayes/internal/math/bayes"
)

// Info describes a registered model.
type Info struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Basis        string    `json:"basis"`
	Created      time.Time `json:"created"`
	Observations int       `json:"observations"`
}

// Posterior is the current belief over the weights of a model.
type Posterior struct {
	Info
	Beta       float64     `json:"beta"`
	Mean       []float64   `json:"mean"`
	Covariance [][]float64 `json:"covariance"`
}

// Observation is the outcome of absorbing a batch of observations.
type Observation struct {
	// Score is the predictive check of the batch against the posterior before the update.
	Score     bayes.Score `json:"score"`
	Posterior Posterior   `json:"posterior"`
}

// Limits are the prediction limits at the requested inputs.
type Limits struct {
	X        []float64 `json:"x"`
	Stdevs   float64   `json:"stdevs"`
	Mean     []float64 `json:"mean"`
	Variance []float64 `json:"variance"`
	Lower    []float64 `json:"lower"`
	Upper    []float64 `json:"upper"`
}

// Stats are the accumulated predictive scores of a model.
type Stats struct {
	Batches   map[string]buffer.Summary `json:"batches"`
	Residuals buffer.Summary            `json:"residuals"`
}

// record is the persisted form of a model.
type record struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Stdevs   float64        `json:"stdevs"`
	Created  time.Time      `json:"created"`
	Snapshot bayes.Snapshot `json:"snapshot"`
}
