package tree

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

func TestDecisionTreeStepFunction(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 10, 11, 12})
	y := mat.NewVecDense(6, []float64{5, 5, 5, 20, 20, 20})

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 1, dt.Depth())
	root := dt.Nodes()[0]
	assert.Equal(t, 0, root.Feature)
	assert.InDelta(t, 6.5, root.Threshold, 1e-12)

	pred, err := dt.Predict(mat.NewDense(2, 1, []float64{0, 100}))
	require.NoError(t, err)
	assert.InDelta(t, 5.0, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 20.0, pred.At(1, 0), 1e-12)
}

func TestDecisionTreeMaxDepthAndLeafSize(t *testing.T) {
	n := 200
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.SetVec(i, math.Sin(float64(i)/10))
	}

	shallow := NewDecisionTreeRegressor(WithMaxDepth(2))
	require.NoError(t, shallow.Fit(X, y))
	assert.LessOrEqual(t, shallow.Depth(), 2)

	leafy := NewDecisionTreeRegressor(WithMinSamplesLeaf(40))
	require.NoError(t, leafy.Fit(X, y))
	for _, node := range leafy.Nodes() {
		if node.Feature < 0 {
			assert.GreaterOrEqual(t, node.NSamples, 40)
		}
	}

	full := NewDecisionTreeRegressor()
	require.NoError(t, full.Fit(X, y))
	score, err := full.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestDecisionTreeFeatureImportances(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	n := 300
	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			X.Set(i, j, rng.Float64())
		}
		y.SetVec(i, 10*X.At(i, 1))
	}

	dt := NewDecisionTreeRegressor(WithMaxDepth(4))
	require.NoError(t, dt.Fit(X, y))
	imp := dt.FeatureImportances()
	require.Len(t, imp, 3)
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
	assert.Greater(t, imp[1], 0.99)
}

func TestDecisionTreeBootstrapIndices(t *testing.T) {
	cols := [][]float64{{0, 1, 2, 3}}
	y := []float64{0, 0, 10, 10}

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.FitColumns(cols, y, []int{0, 0, 3, 3, 3}))
	assert.InDelta(t, 0.0, dt.PredictRow([]float64{0.5}), 1e-12)
	assert.InDelta(t, 10.0, dt.PredictRow([]float64{2.5}), 1e-12)
}

func TestDecisionTreeParams(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	assert.Nil(t, dt.GetParams()["max_depth"])

	require.NoError(t, dt.SetParams(model.Params{"max_depth": 10, "min_samples_leaf": 4, "min_samples_split": 5}))
	assert.Equal(t, 10, dt.MaxDepth)
	assert.Equal(t, 4, dt.MinSamplesLeaf)
	assert.Equal(t, 5, dt.MinSamplesSplit)

	require.NoError(t, dt.SetParams(model.Params{"max_depth": nil}))
	assert.Equal(t, -1, dt.MaxDepth)

	err := dt.SetParams(model.Params{"criterion": "gini"})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestDecisionTreeNotFitted(t *testing.T) {
	_, err := NewDecisionTreeRegressor().Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}
