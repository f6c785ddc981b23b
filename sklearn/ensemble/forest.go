// Package ensemble provides tree ensembles for regression: a bagged random
// forest and an XGBoost-style histogram gradient boosting regressor.
package ensemble

import (
	"math/rand/v2"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/core/parallel"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
	"github.com/mirzakinn/sales-prediction/sklearn/tree"
)

// RandomForestRegressor averages regression trees fitted on bootstrap samples.
type RandomForestRegressor struct {
	NEstimators     int
	MaxDepth        int // -1 means no limit
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 means all features
	Bootstrap       bool
	RandomState     uint64

	trees  []*tree.DecisionTreeRegressor
	state  *model.StateManager
	logger log.Logger
}

// NewRandomForestRegressor returns a forest of 100 unlimited-depth trees.
func NewRandomForestRegressor() *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators:     100,
		MaxDepth:        -1,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     42,
		state:           model.NewStateManager(),
		logger:          log.GetLoggerWithName("ensemble.random_forest"),
	}
}

// Fit grows NEstimators trees concurrently. Each tree draws its bootstrap
// sample from its own seed so the result does not depend on scheduling.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")
	rf.state.Reset()
	if rf.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.NEstimators)
	}
	n, d, target, err := model.CheckXY("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	cols := tree.ColumnMajor(X)

	seeder := rand.New(rand.NewPCG(rf.RandomState, 0))
	seeds := make([]uint64, rf.NEstimators)
	for i := range seeds {
		seeds[i] = seeder.Uint64()
	}

	trees := make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	p := pool.New().WithErrors().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for i := range trees {
		p.Go(func() error {
			rng := rand.New(rand.NewPCG(seeds[i], uint64(i)))
			samples := make([]int, n)
			for j := range samples {
				if rf.Bootstrap {
					samples[j] = rng.IntN(n)
				} else {
					samples[j] = j
				}
			}
			t := tree.NewDecisionTreeRegressor(
				tree.WithMaxDepth(rf.MaxDepth),
				tree.WithMinSamplesSplit(rf.MinSamplesSplit),
				tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
				tree.WithMaxFeatures(rf.MaxFeatures),
				tree.WithRandomState(seeds[i]),
			)
			if err := t.FitColumns(cols, target, samples); err != nil {
				return err
			}
			trees[i] = t
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	rf.trees = trees
	rf.state.MarkFitted(n, d)
	rf.logger.Debug("forest fitted", log.SamplesKey, n, log.FeaturesKey, d, "trees", len(trees))
	return nil
}

// Predict returns the mean of the tree predictions for each row of X.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestRegressor", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), 1, nil)
	scale := 1 / float64(len(rf.trees))
	parallel.ParallelizeWithThreshold(len(rows), 256, func(start, end int) {
		for i := start; i < end; i++ {
			var sum float64
			for _, t := range rf.trees {
				sum += t.PredictRow(rows[i])
			}
			out.Set(i, 0, sum*scale)
		}
	})
	return out, nil
}

// Score は R² を返す。
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(rf, X, y)
}

// Estimators returns the fitted trees.
func (rf *RandomForestRegressor) Estimators() []*tree.DecisionTreeRegressor {
	return rf.trees
}

// FeatureImportances averages the per-tree importances.
func (rf *RandomForestRegressor) FeatureImportances() []float64 {
	if len(rf.trees) == 0 {
		return nil
	}
	var imp []float64
	for _, t := range rf.trees {
		ti := t.FeatureImportances()
		if imp == nil {
			imp = make([]float64, len(ti))
		}
		for i, v := range ti {
			imp[i] += v / float64(len(rf.trees))
		}
	}
	return imp
}

// GetParams implements model.ParameterGetter.
func (rf *RandomForestRegressor) GetParams() model.Params {
	var depth any = rf.MaxDepth
	if rf.MaxDepth < 0 {
		depth = nil
	}
	return model.Params{
		"n_estimators":      rf.NEstimators,
		"max_depth":         depth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"bootstrap":         rf.Bootstrap,
		"random_state":      int(rf.RandomState),
	}
}

// SetParams implements model.ParameterSetter.
func (rf *RandomForestRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "n_estimators":
			rf.NEstimators, err = model.ParamInt(k, v)
		case "max_depth":
			rf.MaxDepth, err = model.ParamOptionalInt(k, v)
		case "min_samples_split":
			rf.MinSamplesSplit, err = model.ParamInt(k, v)
		case "min_samples_leaf":
			rf.MinSamplesLeaf, err = model.ParamInt(k, v)
		case "max_features":
			rf.MaxFeatures, err = model.ParamInt(k, v)
		case "bootstrap":
			rf.Bootstrap, err = model.ParamBool(k, v)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(k, v)
			rf.RandomState = uint64(seed)
		default:
			err = model.UnknownParam("RandomForestRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
