package svm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Kernel names.
const (
	KernelRBF    = "rbf"
	KernelLinear = "linear"
	KernelPoly   = "poly"
)

// Gamma presets.
const (
	GammaScale = "scale"
	GammaAuto  = "auto"
)

type kernelFunc func(a, b []float64) float64

func newKernel(name string, gamma float64, degree int, coef0 float64) kernelFunc {
	switch name {
	case KernelLinear:
		return func(a, b []float64) float64 { return floats.Dot(a, b) }
	case KernelPoly:
		return func(a, b []float64) float64 {
			return math.Pow(gamma*floats.Dot(a, b)+coef0, float64(degree))
		}
	default:
		return func(a, b []float64) float64 {
			var d2 float64
			for i := range a {
				d := a[i] - b[i]
				d2 += d * d
			}
			return math.Exp(-gamma * d2)
		}
	}
}

// resolveGamma turns "scale", "auto" or a number into a concrete gamma.
// scale uses 1 / (n_features · Var(X)) over every element of X.
func resolveGamma(gamma any, rows [][]float64) float64 {
	d := len(rows[0])
	switch g := gamma.(type) {
	case float64:
		return g
	case string:
		if g == GammaAuto {
			return 1 / float64(d)
		}
	}
	all := make([]float64, 0, len(rows)*d)
	for _, r := range rows {
		all = append(all, r...)
	}
	v := stat.PopVariance(all, nil)
	if v == 0 {
		return 1
	}
	return 1 / (float64(d) * v)
}
