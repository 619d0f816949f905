package math

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Series returns n evenly spaced values starting at start.
func Series(start, step float64, n int) []float64 {
	xx := make([]float64, n)
	for i := 0; i < n; i++ {
		xx[i] = start + step*float64(i)
	}
	return xx
}

// Polynomial evaluates c[0] + c[1]x + c[2]x^2 + ... at x.
func Polynomial(c []float64, x float64) float64 {
	var y float64
	for i := len(c) - 1; i >= 0; i-- {
		y = y*x + c[i]
	}
	return y
}

// Line generates noisy observations of the polynomial with the given weights at each x.
// The noise is normal with zero mean and the given standard deviation, drawn from src.
func Line(weights []float64, xs []float64, sigma float64, src rand.Source) []float64 {
	noise := distuv.Normal{
		Mu:    0,
		Sigma: sigma,
		Src:   src,
	}
	tt := make([]float64, len(xs))
	for i, x := range xs {
		tt[i] = Polynomial(weights, x)
		if sigma > 0 {
			tt[i] += noise.Rand()
		}
	}
	return tt
}
