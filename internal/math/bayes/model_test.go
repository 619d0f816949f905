package bayes

import (
	"math"
	"testing"

	coinmath "github.com/drakos74/free-bayes/internal/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-9

func newReference(t *testing.T) *Model {
	m, err := New([]float64{0, 0}, coinmath.Eye(2, 2), 25)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {

	type test struct {
		basis Basis
		mean  []float64
		cov   mat.Matrix
		beta  float64
		err   error
	}

	tests := map[string]test{
		"reference": {
			basis: Linear{},
			mean:  []float64{0, 0},
			cov:   coinmath.Eye(2, 2),
			beta:  25,
		},
		"dense-covariance": {
			basis: Linear{},
			mean:  []float64{1, -1},
			cov:   mat.NewDense(2, 2, []float64{2, 0.5, 0.5, 1}),
			beta:  1,
		},
		"mean-length": {
			basis: Linear{},
			mean:  []float64{0, 0, 0},
			cov:   coinmath.Eye(2, 2),
			beta:  25,
			err:   ShapeMismatchErr,
		},
		"non-square": {
			basis: Linear{},
			mean:  []float64{0, 0},
			cov:   mat.NewDense(2, 3, nil),
			beta:  25,
			err:   ShapeMismatchErr,
		},
		"basis-width": {
			basis: Polynomial{Degree: 2},
			mean:  []float64{0, 0},
			cov:   coinmath.Eye(2, 2),
			beta:  25,
			err:   ShapeMismatchErr,
		},
		"nil-covariance": {
			basis: Linear{},
			mean:  []float64{0, 0},
			beta:  25,
			err:   ShapeMismatchErr,
		},
		"zero-beta": {
			basis: Linear{},
			mean:  []float64{0, 0},
			cov:   coinmath.Eye(2, 2),
			beta:  0,
			err:   InvalidParameterErr,
		},
		"negative-beta": {
			basis: Linear{},
			mean:  []float64{0, 0},
			cov:   coinmath.Eye(2, 2),
			beta:  -1,
			err:   InvalidParameterErr,
		},
		"nan-beta": {
			basis: Linear{},
			mean:  []float64{0, 0},
			cov:   coinmath.Eye(2, 2),
			beta:  math.NaN(),
			err:   InvalidParameterErr,
		},
		"asymmetric": {
			basis: Linear{},
			mean:  []float64{0, 0},
			cov:   mat.NewDense(2, 2, []float64{1, 0.5, 0.1, 1}),
			beta:  25,
			err:   InvalidParameterErr,
		},
		"indefinite": {
			basis: Linear{},
			mean:  []float64{0, 0},
			cov:   mat.NewSymDense(2, []float64{1, 2, 2, 1}),
			beta:  25,
			err:   SingularMatrixErr,
		},
		"negative-definite": {
			basis: Linear{},
			mean:  []float64{0, 0},
			cov:   coinmath.Eye(2, -1),
			beta:  25,
			err:   SingularMatrixErr,
		},
		"zero-covariance": {
			basis: Linear{},
			mean:  []float64{0, 0},
			cov:   mat.NewSymDense(2, nil),
			beta:  25,
		},
		"non-finite-mean": {
			basis: Linear{},
			mean:  []float64{math.Inf(1), 0},
			cov:   coinmath.Eye(2, 2),
			beta:  25,
			err:   InvalidParameterErr,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := NewWithBasis(tt.basis, tt.mean, tt.cov, tt.beta)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mean, coinmath.Vector(m.Mean()))
			assert.Equal(t, coinmath.Rows(tt.cov), coinmath.Rows(m.Covariance()))
			assert.Equal(t, tt.beta, m.Beta())
			assert.Equal(t, 0, m.Observations())
		})
	}
}

func TestModel_DoesNotAliasPrior(t *testing.T) {
	mean := []float64{1, 2}
	m, err := New(mean, coinmath.Eye(2, 1), 1)
	require.NoError(t, err)
	mean[0] = 100
	assert.Equal(t, 1.0, m.Mean().AtVec(0))

	out := m.Mean()
	out.SetVec(1, 100)
	assert.Equal(t, 2.0, m.Mean().AtVec(1))
}

func TestDesignMatrix(t *testing.T) {

	t.Run("linear", func(t *testing.T) {
		phi := DesignMatrix(Linear{}, []float64{-1, 0, 2.5})
		assert.Equal(t, [][]float64{{1, -1}, {1, 0}, {1, 2.5}}, coinmath.Rows(phi))
	})

	t.Run("polynomial", func(t *testing.T) {
		phi := DesignMatrix(Polynomial{Degree: 3}, []float64{2})
		assert.Equal(t, [][]float64{{1, 2, 4, 8}}, coinmath.Rows(phi))
	})

	t.Run("generic", func(t *testing.T) {
		phi := DesignMatrix(bumps{}, []float64{0, 1})
		assert.Equal(t, [][]float64{{1, 0, 0}, {1, 1, 1}}, coinmath.Rows(phi))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, DesignMatrix(Linear{}, nil))
	})
}

// bumps is a basis without a fast design matrix path.
type bumps struct{}

func (bumps) Name() string { return "bumps" }
func (bumps) Dim() int { return 3 }
func (bumps) Features(x float64) []float64 {
	return []float64{1, x, x * x * x}
}

func TestBasisFor(t *testing.T) {
	b, err := BasisFor("", 0)
	require.NoError(t, err)
	assert.Equal(t, Linear{}, b)

	b, err = BasisFor(PolynomialBasis, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Dim())

	_, err = BasisFor(PolynomialBasis, -1)
	assert.ErrorIs(t, err, InvalidParameterErr)

	_, err = BasisFor("fourier", 1)
	assert.ErrorIs(t, err, InvalidParameterErr)
}

func TestModel_Update(t *testing.T) {

	m := newReference(t)
	require.NoError(t, m.Update([]float64{1.0}, []float64{0.2}))

	// (0.5*I + 25*[1 1; 1 1])^-1 = [25.5 -25; -25 25.5] / 25.25
	assert.InDeltaSlice(t, []float64{0.099009900990099, 0.099009900990099}, coinmath.Vector(m.Mean()), tolerance)
	assert.InDeltaSlice(t, []float64{1.00990099009901, -0.99009900990099}, coinmath.Rows(m.Covariance())[0], tolerance)
	assert.InDeltaSlice(t, []float64{-0.99009900990099, 1.00990099009901}, coinmath.Rows(m.Covariance())[1], tolerance)
	assert.Equal(t, 1, m.Observations())
}

func TestModel_UpdateEmpty(t *testing.T) {
	m := newReference(t)
	before := m.Snapshot()
	require.NoError(t, m.Update(nil, nil))
	require.NoError(t, m.Update([]float64{}, []float64{}))
	assert.Equal(t, before, m.Snapshot())
}

func TestModel_UpdateErrors(t *testing.T) {

	type test struct {
		cov mat.Matrix
		xs  []float64
		ts  []float64
		err error
	}

	tests := map[string]test{
		"length-mismatch": {
			cov: coinmath.Eye(2, 2),
			xs:  []float64{1, 2},
			ts:  []float64{1},
			err: ShapeMismatchErr,
		},
		"non-finite-target": {
			cov: coinmath.Eye(2, 2),
			xs:  []float64{1},
			ts:  []float64{math.NaN()},
			err: InvalidParameterErr,
		},
		"zero-covariance": {
			cov: mat.NewSymDense(2, nil),
			xs:  []float64{1},
			ts:  []float64{0.2},
			err: SingularMatrixErr,
		},
		"singular-covariance": {
			cov: mat.NewSymDense(2, []float64{1, 1, 1, 1}),
			xs:  []float64{1},
			ts:  []float64{0.2},
			err: SingularMatrixErr,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := New([]float64{0.5, -0.5}, tt.cov, 25)
			require.NoError(t, err)
			before := m.Snapshot()
			err = m.Update(tt.xs, tt.ts)
			assert.ErrorIs(t, err, tt.err)
			// nothing changes on failure
			assert.Equal(t, before, m.Snapshot())
			for _, v := range coinmath.Vector(m.Mean()) {
				assert.False(t, math.IsNaN(v))
			}
		})
	}
}

func TestModel_SequentialEqualsBatch(t *testing.T) {

	xs := coinmath.Series(-1, 0.1, 21)
	ts := coinmath.Line([]float64{-0.3, 0.5}, xs, 0.2, rand.NewSource(1))

	for _, split := range []int{0, 1, 7, 20, 21} {
		batch := newReference(t)
		require.NoError(t, batch.Update(xs, ts))

		sequential := newReference(t)
		require.NoError(t, sequential.Update(xs[:split], ts[:split]))
		require.NoError(t, sequential.Update(xs[split:], ts[split:]))

		assert.InDeltaSlice(t, coinmath.Vector(batch.Mean()), coinmath.Vector(sequential.Mean()), 1e-9)
		for i, row := range coinmath.Rows(batch.Covariance()) {
			assert.InDeltaSlice(t, row, coinmath.Rows(sequential.Covariance())[i], 1e-9)
		}
		assert.Equal(t, batch.Observations(), sequential.Observations())
	}

	// one observation at a time
	single := newReference(t)
	for i := range xs {
		require.NoError(t, single.Update(xs[i:i+1], ts[i:i+1]))
	}
	batch := newReference(t)
	require.NoError(t, batch.Update(xs, ts))
	assert.InDeltaSlice(t, coinmath.Vector(batch.Mean()), coinmath.Vector(single.Mean()), 1e-9)
}

func TestModel_CovarianceShrinks(t *testing.T) {

	m := newReference(t)
	src := rand.NewSource(3)
	for i := 0; i < 20; i++ {
		before := m.Covariance()
		xs := coinmath.Series(float64(i%5)-2, 0.3, i%3+1)
		ts := coinmath.Line([]float64{-0.3, 0.5}, xs, 0.2, src)
		require.NoError(t, m.Update(xs, ts))
		after := m.Covariance()

		// S0 - SN must be positive semi-definite
		diff := mat.NewSymDense(2, nil)
		for r := 0; r < 2; r++ {
			for c := r; c < 2; c++ {
				diff.SetSym(r, c, before.At(r, c)-after.At(r, c))
			}
		}
		var eig mat.EigenSym
		require.True(t, eig.Factorize(diff, false))
		for _, v := range eig.Values(nil) {
			assert.GreaterOrEqual(t, v, -1e-12)
		}
		for j := 0; j < 2; j++ {
			assert.LessOrEqual(t, after.At(j, j), before.At(j, j))
		}
		assert.Less(t, coinmath.Asymmetry(after), 1e-9)
	}
}

func TestModel_ConvergesToLeastSquares(t *testing.T) {

	// a flat prior gives back the maximum likelihood solution
	m, err := New([]float64{0, 0}, coinmath.Eye(2, 1e8), 25)
	require.NoError(t, err)

	xs := coinmath.Series(-1, 0.05, 41)
	ts := coinmath.Line([]float64{-0.3, 0.5}, xs, 0.2, rand.NewSource(5))
	require.NoError(t, m.Update(xs, ts))

	c, err := coinmath.Fit(xs, ts, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, c, coinmath.Vector(m.Mean()), 1e-6)
}

func TestModel_Polynomial(t *testing.T) {

	m, err := NewWithBasis(Polynomial{Degree: 2}, []float64{0, 0, 0}, coinmath.Eye(3, 10), 1e6)
	require.NoError(t, err)

	xs := coinmath.Series(-2, 0.1, 41)
	ts := coinmath.Line([]float64{1, -2, 0.5}, xs, 0.001, rand.NewSource(11))
	require.NoError(t, m.Update(xs, ts))

	assert.InDeltaSlice(t, []float64{1, -2, 0.5}, coinmath.Vector(m.Mean()), 0.01)
}

func TestModel_Predict(t *testing.T) {

	t.Run("prior", func(t *testing.T) {
		m, err := New([]float64{0.5, -1}, coinmath.Eye(2, 2), 25)
		require.NoError(t, err)
		for _, x := range []float64{-3, -1, 0, 0.5, 2} {
			mean, variance := m.Predict(x)
			assert.InDelta(t, 0.5-x, mean, tolerance)
			assert.InDelta(t, 1.0/25+2*(1+x*x), variance, tolerance)
		}
	})

	t.Run("posterior", func(t *testing.T) {
		m := newReference(t)
		require.NoError(t, m.Update([]float64{1.0}, []float64{0.2}))
		mean, variance := m.Predict(1)
		// phi' SN phi = (25.5 - 50 + 25.5) / 25.25
		assert.InDelta(t, 2*0.099009900990099, mean, tolerance)
		assert.InDelta(t, 0.04+1/25.25, variance, tolerance)

		assert.InDeltaSlice(t, []float64{mean}, m.PredictiveMean([]float64{1}), tolerance)
		assert.InDeltaSlice(t, []float64{variance}, m.PredictiveVariance([]float64{1}), tolerance)
	})

	t.Run("shrinks-with-data", func(t *testing.T) {
		m := newReference(t)
		xs := coinmath.Series(-1, 0.1, 21)
		_, before := m.Predict(0.3)
		require.NoError(t, m.Update(xs, coinmath.Line([]float64{-0.3, 0.5}, xs, 0.2, rand.NewSource(9))))
		_, after := m.Predict(0.3)
		assert.Less(t, after, before)
		assert.Greater(t, after, 1.0/25)
	})
}

func TestModel_PredictionLimit(t *testing.T) {

	m := newReference(t)
	xs := coinmath.Series(-1, 0.25, 9)
	require.NoError(t, m.Update(xs, coinmath.Line([]float64{-0.3, 0.5}, xs, 0.2, rand.NewSource(2))))

	mean := m.PredictiveMean(xs)
	for _, s := range []float64{0, 0.5, 1, 2, 3.5} {
		upper := m.PredictionLimit(xs, s)
		lower := m.PredictionLimit(xs, -s)
		for i := range xs {
			assert.InDelta(t, upper[i]-mean[i], -(lower[i] - mean[i]), tolerance)
			assert.GreaterOrEqual(t, upper[i], lower[i])
		}
	}

	zero := m.PredictionLimit(xs, 0)
	assert.InDeltaSlice(t, mean, zero, tolerance)

	one := m.PredictionLimit(xs, 1)
	for i, v := range m.PredictiveVariance(xs) {
		assert.InDelta(t, math.Sqrt(v), one[i]-mean[i], tolerance)
	}

	assert.Empty(t, m.PredictionLimit(nil, 1))
}

func TestModel_GenerateData(t *testing.T) {

	m := newReference(t)
	require.NoError(t, m.Update([]float64{-1, 0, 1}, []float64{-0.8, -0.3, 0.2}))

	t.Run("seeded", func(t *testing.T) {
		xs := []float64{-1, 0, 1}
		a, err := m.GenerateData(xs, rand.NewSource(13))
		require.NoError(t, err)
		b, err := m.GenerateData(xs, rand.NewSource(13))
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a, 3)
	})

	t.Run("distribution", func(t *testing.T) {
		xs := coinmath.Series(0.5, 0, 20000)
		tt, err := m.GenerateData(xs, rand.NewSource(17))
		require.NoError(t, err)
		mean, variance := m.Predict(0.5)
		var sum, sq float64
		for _, v := range tt {
			sum += v
			sq += (v - mean) * (v - mean)
		}
		assert.InDelta(t, mean, sum/float64(len(tt)), 0.01)
		assert.InDelta(t, variance, sq/float64(len(tt)), 0.01*variance*10)
	})

	t.Run("no-source", func(t *testing.T) {
		_, err := m.GenerateData([]float64{1}, nil)
		assert.ErrorIs(t, err, InvalidParameterErr)
	})
}

func TestModel_SampleWeights(t *testing.T) {

	m := newReference(t)
	xs := coinmath.Series(-1, 0.2, 11)
	require.NoError(t, m.Update(xs, coinmath.Line([]float64{-0.3, 0.5}, xs, 0.2, rand.NewSource(19))))

	t.Run("empty", func(t *testing.T) {
		ww, err := m.SampleWeights(0, rand.NewSource(1))
		require.NoError(t, err)
		assert.Empty(t, ww)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := m.SampleWeights(-1, rand.NewSource(1))
		assert.ErrorIs(t, err, InvalidParameterErr)
	})

	t.Run("seeded", func(t *testing.T) {
		a, err := m.SampleWeights(5, rand.NewSource(23))
		require.NoError(t, err)
		b, err := m.SampleWeights(5, rand.NewSource(23))
		require.NoError(t, err)
		assert.Equal(t, a, b)
		for _, w := range a {
			assert.Len(t, w, 2)
		}
	})

	t.Run("moments", func(t *testing.T) {
		k := 20000
		ww, err := m.SampleWeights(k, rand.NewSource(29))
		require.NoError(t, err)
		mean := coinmath.Vector(m.Mean())
		cov := m.Covariance()
		var s0, s1, c01 float64
		for _, w := range ww {
			s0 += w[0]
			s1 += w[1]
			c01 += (w[0] - mean[0]) * (w[1] - mean[1])
		}
		n := float64(k)
		assert.InDelta(t, mean[0], s0/n, 0.01)
		assert.InDelta(t, mean[1], s1/n, 0.01)
		assert.InDelta(t, cov.At(0, 1), c01/n, 0.005)
	})

	t.Run("singular", func(t *testing.T) {
		z, err := New([]float64{0, 0}, mat.NewSymDense(2, nil), 25)
		require.NoError(t, err)
		_, err = z.SampleWeights(3, rand.NewSource(1))
		assert.ErrorIs(t, err, SingularMatrixErr)
	})
}

func TestModel_Snapshot(t *testing.T) {

	m, err := NewWithBasis(Polynomial{Degree: 2}, []float64{0, 0, 0}, coinmath.Eye(3, 1), 4)
	require.NoError(t, err)
	require.NoError(t, m.Update([]float64{-1, 0, 1}, []float64{1, 0, 1}))

	restored, err := FromSnapshot(m.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, m.Snapshot(), restored.Snapshot())

	// both continue identically
	require.NoError(t, m.Update([]float64{2}, []float64{4}))
	require.NoError(t, restored.Update([]float64{2}, []float64{4}))
	assert.InDeltaSlice(t, coinmath.Vector(m.Mean()), coinmath.Vector(restored.Mean()), tolerance)
	assert.Equal(t, 4, restored.Observations())

	t.Run("bad", func(t *testing.T) {
		_, err := FromSnapshot(Snapshot{Basis: LinearBasis, Beta: 1, Mean: []float64{0, 0}})
		assert.ErrorIs(t, err, ShapeMismatchErr)
		_, err = FromSnapshot(Snapshot{Basis: LinearBasis, Beta: 1, Mean: []float64{0, 0}, Covariance: [][]float64{{1, 0}, {0}}})
		assert.ErrorIs(t, err, ShapeMismatchErr)
		_, err = FromSnapshot(Snapshot{Basis: "unknown", Beta: 1})
		assert.ErrorIs(t, err, InvalidParameterErr)
	})
}

func TestModel_Score(t *testing.T) {

	m := newReference(t)
	xs := coinmath.Series(-1, 0.1, 21)
	require.NoError(t, m.Update(xs, coinmath.Line([]float64{-0.3, 0.5}, xs, 0.2, rand.NewSource(31))))

	t.Run("calibrated", func(t *testing.T) {
		qs := coinmath.Series(-1, 0.0004, 5000)
		ts, err := m.GenerateData(qs, rand.NewSource(37))
		require.NoError(t, err)
		score, err := m.Score(qs, ts, 2)
		require.NoError(t, err)
		assert.Equal(t, 5000, score.Count)
		assert.InDelta(t, 0.954, score.Coverage, 0.02)
		assert.InDelta(t, 0, score.Z, 0.05)
		assert.Len(t, score.Residuals, 5000)
	})

	t.Run("exact", func(t *testing.T) {
		mean, variance := m.Predict(0.5)
		score, err := m.Score([]float64{0.5}, []float64{mean + 3*math.Sqrt(variance)}, 2)
		require.NoError(t, err)
		assert.InDelta(t, 3, score.Z, tolerance)
		assert.InDelta(t, 9*variance, score.MSE, tolerance)
		assert.Equal(t, 0.0, score.Coverage)
	})

	t.Run("does-not-update", func(t *testing.T) {
		before := m.Snapshot()
		_, err := m.Score([]float64{0}, []float64{10}, 1)
		require.NoError(t, err)
		assert.Equal(t, before, m.Snapshot())
	})

	t.Run("mismatch", func(t *testing.T) {
		_, err := m.Score([]float64{0}, nil, 1)
		assert.ErrorIs(t, err, ShapeMismatchErr)
	})
}
