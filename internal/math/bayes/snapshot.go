package bayes

import (
	"fmt"

	coinmath "github.com/drakos74/free-bayes/internal/math"
	"gonum.org/v1/gonum/mat"
)

// Snapshot is the serialisable state of a model.
type Snapshot struct {
	Basis        string      `json:"basis"`
	Degree       int         `json:"degree,omitempty"`
	Beta         float64     `json:"beta"`
	Mean         []float64   `json:"mean"`
	Covariance   [][]float64 `json:"covariance"`
	Observations int         `json:"observations"`
}

// Snapshot captures the current posterior of the model.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		Basis:        m.basis.Name(),
		Beta:         m.beta,
		Mean:         coinmath.Vector(m.mean),
		Covariance:   coinmath.Rows(m.cov),
		Observations: m.count,
	}
	if p, ok := m.basis.(Polynomial); ok {
		s.Degree = p.Degree
	}
	return s
}

// FromSnapshot restores a model from its snapshot.
func FromSnapshot(s Snapshot) (*Model, error) {
	basis, err := BasisFor(s.Basis, s.Degree)
	if err != nil {
		return nil, fmt.Errorf("could not restore basis: %w", err)
	}
	n := len(s.Covariance)
	if n == 0 {
		return nil, fmt.Errorf("empty covariance in snapshot: %w", ShapeMismatchErr)
	}
	cov := mat.NewDense(n, n, nil)
	for i, row := range s.Covariance {
		if len(row) != n {
			return nil, fmt.Errorf("covariance row %d has length %d for %d rows: %w", i, len(row), n, ShapeMismatchErr)
		}
		cov.SetRow(i, row)
	}
	m, err := NewWithBasis(basis, s.Mean, cov, s.Beta)
	if err != nil {
		return nil, err
	}
	if s.Observations < 0 {
		return nil, fmt.Errorf("negative observation count %d: %w", s.Observations, InvalidParameterErr)
	}
	m.count = s.Observations
	return m, nil
}
