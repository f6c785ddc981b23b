package lightgbm

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

// friedmanLike returns a smooth non-linear target over three features with
// a little noise.
func friedmanLike(n int, seed uint64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, 3))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a, b, c := rng.Float64(), rng.Float64(), rng.Float64()
		X.SetRow(i, []float64{a, b, c})
		y.SetVec(i, 10*math.Sin(math.Pi*a)+20*(b-0.5)*(b-0.5)+5*c+0.1*rng.NormFloat64())
	}
	return X, y
}

func TestLGBMRegressorLeafBound(t *testing.T) {
	X, y := friedmanLike(600, 1)
	Xt, yt := friedmanLike(200, 2)

	lgbm := NewLGBMRegressor()
	require.NoError(t, lgbm.SetParams(model.Params{"n_estimators": 100, "num_leaves": 8, "max_depth": -1}))
	require.NoError(t, lgbm.Fit(X, y))
	assert.Equal(t, 100, lgbm.NumTrees())
	assert.LessOrEqual(t, lgbm.MaxLeavesPerTree(), 8)
	assert.Greater(t, lgbm.MaxLeavesPerTree(), 2)

	score, err := lgbm.Score(Xt, yt)
	require.NoError(t, err)
	assert.Greater(t, score, 0.85)

	imp := lgbm.FeatureImportances()
	require.Len(t, imp, 3)
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
	assert.Greater(t, imp[0], imp[2])
}

func TestLGBMRegressorMaxDepth(t *testing.T) {
	X, y := friedmanLike(400, 5)

	lgbm := NewLGBMRegressor().WithNumLeaves(31).WithMaxDepth(2).WithNumIterations(10)
	require.NoError(t, lgbm.Fit(X, y))
	assert.LessOrEqual(t, lgbm.MaxLeavesPerTree(), 4)

	leaves, err := lgbm.Predictor.PredictLeafIndex(X.Slice(0, 5, 0, 3))
	require.NoError(t, err)
	require.Len(t, leaves, 5)
	for _, row := range leaves {
		require.Len(t, row, 10)
		for k, node := range row {
			assert.True(t, lgbm.Model.Trees[k].Nodes[node].IsLeaf())
		}
	}
}

func TestLGBMPredictionsStartFromInitScore(t *testing.T) {
	X, _ := friedmanLike(100, 7)
	y := mat.NewVecDense(100, nil)
	for i := 0; i < 100; i++ {
		y.SetVec(i, 5)
	}

	lgbm := NewLGBMRegressor().WithNumIterations(5)
	require.NoError(t, lgbm.Fit(X, y))
	assert.InDelta(t, 5.0, lgbm.Model.InitScore, 1e-12)
	assert.Equal(t, 1, lgbm.MaxLeavesPerTree())

	pred, err := lgbm.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		assert.InDelta(t, 5.0, pred.At(i, 0), 1e-9)
	}
}

func TestLGBMObjectives(t *testing.T) {
	X, y := friedmanLike(500, 11)

	t.Run("quantile", func(t *testing.T) {
		lgbm := NewLGBMRegressor().WithObjective("quantile")
		require.NoError(t, lgbm.SetParams(model.Params{"alpha": 0.9, "n_estimators": 50}))
		require.NoError(t, lgbm.Fit(X, y))
		pred, err := lgbm.Predict(X)
		require.NoError(t, err)
		below := 0
		for i := 0; i < 500; i++ {
			if y.AtVec(i) <= pred.At(i, 0) {
				below++
			}
		}
		coverage := float64(below) / 500
		assert.Greater(t, coverage, 0.8)
		assert.Less(t, coverage, 0.98)
	})

	t.Run("poisson", func(t *testing.T) {
		lgbm := NewLGBMRegressor().WithObjective("poisson").WithNumIterations(30)
		require.NoError(t, lgbm.Fit(X, y))
		pred, err := lgbm.Predict(X)
		require.NoError(t, err)
		for i := 0; i < 500; i++ {
			assert.Greater(t, pred.At(i, 0), 0.0)
		}
	})

	t.Run("poisson rejects negative targets", func(t *testing.T) {
		neg := mat.VecDenseCopyOf(y)
		neg.SetVec(3, -1)
		err := NewLGBMRegressor().WithObjective("poisson").Fit(X, neg)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	for _, obj := range []string{"regression_l1", "huber", "fair"} {
		t.Run(obj, func(t *testing.T) {
			lgbm := NewLGBMRegressor().WithObjective(obj).WithNumIterations(200)
			require.NoError(t, lgbm.Fit(X, y))
			score, err := lgbm.Score(X, y)
			require.NoError(t, err)
			assert.Greater(t, score, 0.5)
		})
	}
}

func TestObjectiveGradients(t *testing.T) {
	tests := []struct {
		name       string
		objective  ObjectiveFunction
		pred, tgt  float64
		grad, hess float64
	}{
		{"l2", &L2Objective{}, 3, 1, 2, 1},
		{"l1 over", &L1Objective{epsilon: 1e-7}, 3, 1, 1, 1},
		{"l1 under", &L1Objective{epsilon: 1e-7}, 1, 3, -1, 1},
		{"huber inside", &HuberObjective{delta: 1}, 1.5, 1, 0.5, 1},
		{"huber outside", &HuberObjective{delta: 1}, 4, 1, 1, 1},
		{"quantile over", &QuantileObjective{alpha: 0.9}, 2, 1, 0.1, 1},
		{"quantile under", &QuantileObjective{alpha: 0.9}, 1, 2, -0.9, 1},
		{"poisson", &PoissonObjective{maxOutputExp: 700}, 0, 3, -2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.grad, tt.objective.CalculateGradient(tt.pred, tt.tgt), 1e-12)
			assert.InDelta(t, tt.hess, tt.objective.CalculateHessian(tt.pred, tt.tgt), 1e-12)
		})
	}

	assert.InDelta(t, 2.5, calculateQuantile([]float64{4, 1, 3, 2}, 0.5), 1e-12)
	assert.Equal(t, 4.0, calculateQuantile([]float64{4, 1, 3, 2}, 1))
}

func TestCreateObjectiveFunction(t *testing.T) {
	obj, err := CreateObjectiveFunction(&TrainingParams{Objective: "mae"})
	require.NoError(t, err)
	assert.Equal(t, RegressionL1, obj.Name())

	var ve *errors.ValidationError
	_, err = CreateObjectiveFunction(&TrainingParams{Objective: "binary"})
	assert.True(t, errors.As(err, &ve))
	_, err = CreateObjectiveFunction(&TrainingParams{Objective: "quantile", QuantileAlpha: 1.5})
	assert.True(t, errors.As(err, &ve))
}

func TestHistogramBinning(t *testing.T) {
	hb := NewHistogramBuilder(&TrainingParams{MaxBin: 255})
	bounds := hb.findBinBoundaries([]float64{3, 1, 2, 2, 1})
	require.Len(t, bounds, 3)
	assert.Equal(t, []float64{1.5, 2.5}, bounds[:2])
	assert.True(t, math.IsInf(bounds[2], 1))

	assert.Equal(t, 0, findBinIndex(1, bounds))
	assert.Equal(t, 0, findBinIndex(1.5, bounds))
	assert.Equal(t, 1, findBinIndex(2, bounds))
	assert.Equal(t, 2, findBinIndex(99, bounds))

	many := make([]float64, 1000)
	for i := range many {
		many[i] = float64(i)
	}
	hb = NewHistogramBuilder(&TrainingParams{MaxBin: 16})
	assert.LessOrEqual(t, len(hb.findBinBoundaries(many)), 16)
}

func TestHistogramSubtraction(t *testing.T) {
	X, _ := friedmanLike(50, 9)
	hb := NewHistogramBuilder(&TrainingParams{MaxBin: 8})
	cols := make([][]float64, 3)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}
	hb.Bin(cols)

	grad := make([]float64, 50)
	hess := make([]float64, 50)
	all := make([]int, 50)
	for i := range all {
		all[i] = i
		grad[i] = float64(i%7) - 3
		hess[i] = 1
	}
	features := []int{0, 1, 2}
	parent := hb.BuildHistograms(all, features, grad, hess)
	left := hb.BuildHistograms(all[:20], features, grad, hess)
	right := hb.BuildHistograms(all[20:], features, grad, hess)

	derived := hb.HistogramSubtraction(parent, left)
	for f := range features {
		for b := range right[f].Bins {
			assert.Equal(t, right[f].Bins[b].Count, derived[f].Bins[b].Count)
			assert.InDelta(t, right[f].Bins[b].SumGrad, derived[f].Bins[b].SumGrad, 1e-9)
		}
	}
}

func TestLGBMFeatureNames(t *testing.T) {
	X, y := friedmanLike(100, 3)

	lgbm := NewLGBMRegressor().WithNumIterations(5)
	assert.Nil(t, lgbm.FeatureNames())

	require.NoError(t, lgbm.Fit(X, y))
	assert.Equal(t, []string{"Column_0", "Column_1", "Column_2"}, lgbm.FeatureNames())

	var de *errors.DimensionError
	assert.True(t, errors.As(lgbm.SetFeatureNames([]string{"a"}), &de))

	require.NoError(t, lgbm.SetFeatureNames([]string{"price", "promo", "season"}))
	require.NoError(t, lgbm.Fit(X, y))
	assert.Equal(t, []string{"price", "promo", "season"}, lgbm.FeatureNames())

	var _ model.FeatureNamer = lgbm
	var _ model.Regressor = lgbm
}

func TestLGBMParams(t *testing.T) {
	lgbm := NewLGBMRegressor()
	require.NoError(t, lgbm.SetParams(model.Params{
		"n_estimators":     50,
		"learning_rate":    0.05,
		"max_depth":        nil,
		"colsample_bytree": 0.5,
		"objective":        "huber",
	}))
	p := lgbm.GetParams()
	assert.Equal(t, 50, p["n_estimators"])
	assert.Equal(t, -1, p["max_depth"])
	assert.Equal(t, "huber", p["objective"])

	var ve *errors.ValidationError
	assert.True(t, errors.As(lgbm.SetParams(model.Params{"boosting": "dart"}), &ve))
	assert.True(t, errors.As(lgbm.SetParams(model.Params{"objective": "binary"}), &ve))

	X, y := friedmanLike(60, 4)
	bad := NewLGBMRegressor().WithNumLeaves(1)
	assert.True(t, errors.As(bad.Fit(X, y), &ve))
	assert.Zero(t, bad.NumTrees())
}

func TestLGBMBaggingIsSeeded(t *testing.T) {
	X, y := friedmanLike(300, 8)
	params := model.Params{"n_estimators": 20, "subsample": 0.7, "colsample_bytree": 0.67, "random_state": 3}

	a, b := NewLGBMRegressor(), NewLGBMRegressor()
	require.NoError(t, a.SetParams(params))
	require.NoError(t, b.SetParams(params))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))
}

func TestLGBMNotFitted(t *testing.T) {
	X := mat.NewDense(1, 3, []float64{1, 2, 3})
	var nf *errors.NotFittedError
	_, err := NewLGBMRegressor().Predict(X)
	assert.True(t, errors.As(err, &nf))
}
