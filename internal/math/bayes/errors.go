package bayes

import "errors"

var (
	// ShapeMismatchErr signals inconsistent dimensions between vectors and matrices.
	ShapeMismatchErr = errors.New("shape mismatch")
	// SingularMatrixErr signals a matrix that could not be inverted within numerical tolerance.
	SingularMatrixErr = errors.New("singular matrix")
	// InvalidParameterErr signals a scalar parameter outside of its domain.
	InvalidParameterErr = errors.New("invalid parameter")
)
