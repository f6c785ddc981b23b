package svm

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

func sineData(n int, seed uint64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := rng.Float64()*6 - 3
		X.Set(i, 0, x)
		y.SetVec(i, math.Sin(x)+rng.NormFloat64()*0.05)
	}
	return X, y
}

func TestSVRRBFFitsNonLinear(t *testing.T) {
	X, y := sineData(200, 1)

	svr := NewSVR()
	require.NoError(t, svr.SetParams(model.Params{"C": 10.0, "gamma": "scale"}))
	require.NoError(t, svr.Fit(X, y))

	Xt, yt := sineData(100, 2)
	score, err := svr.Score(Xt, yt)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)
	assert.Greater(t, svr.NSupport, 0)
	assert.LessOrEqual(t, svr.NSupport, 200)
}

func TestSVRLinearKernel(t *testing.T) {
	n := 100
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	rng := rand.New(rand.NewPCG(3, 3))
	for i := 0; i < n; i++ {
		a, b := rng.Float64()*2-1, rng.Float64()*2-1
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.SetVec(i, 2*a-b+0.5)
	}

	svr := NewSVR()
	require.NoError(t, svr.SetParams(model.Params{"kernel": "linear", "C": 10.0, "epsilon": 0.01}))
	require.NoError(t, svr.Fit(X, y))

	score, err := svr.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.99)
}

func TestSVRWideEpsilonHasNoSupportVectors(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewVecDense(4, []float64{0.1, -0.1, 0.05, 0})

	svr := NewSVR()
	svr.Epsilon = 1
	require.NoError(t, svr.Fit(X, y))
	assert.Equal(t, 0, svr.NSupport)

	pred, err := svr.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0.0, pred.At(i, 0))
	}
}

func TestResolveGamma(t *testing.T) {
	rows := [][]float64{{0, 2}, {2, 0}}
	// elements 0,2,2,0 have variance 1.
	assert.InDelta(t, 0.5, resolveGamma(GammaScale, rows), 1e-12)
	assert.InDelta(t, 0.5, resolveGamma(GammaAuto, rows), 1e-12)
	assert.Equal(t, 0.2, resolveGamma(0.2, rows))
	assert.Equal(t, 1.0, resolveGamma(GammaScale, [][]float64{{1}, {1}}))
}

func TestSVRParams(t *testing.T) {
	svr := NewSVR()
	assert.NoError(t, svr.SetParams(model.Params{"gamma": 0.5, "kernel": "poly", "degree": 2}))
	assert.Equal(t, 0.5, svr.GetParams()["gamma"])
	assert.Error(t, svr.SetParams(model.Params{"gamma": "huge"}))
	assert.Error(t, svr.SetParams(model.Params{"gamma": -1.0}))
	assert.Error(t, svr.SetParams(model.Params{"kernel": "sigmoid"}))
	assert.Error(t, svr.SetParams(model.Params{"nu": 0.5}))

	svr.C = 0
	err := svr.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewVecDense(2, []float64{0, 1}))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}
