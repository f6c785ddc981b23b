package lightgbm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// LGBMRegressor is a LightGBM-style gradient boosting regressor: histogram
// split finding, leaf-wise trees bounded by NumLeaves, and a choice of
// regression objectives. It keeps the feature names it was trained with.
type LGBMRegressor struct {
	Model     *Model
	Predictor *Predictor

	NumLeaves       int
	MaxDepth        int // -1 means no limit
	LearningRate    float64
	NumIterations   int
	MinChildSamples int
	MinChildWeight  float64
	Subsample       float64
	ColsampleBytree float64
	RegAlpha        float64
	RegLambda       float64
	MaxBin          int
	RandomState     int
	Objective       string
	Alpha           float64 // quantile level, or huber delta

	featureNames []string
	state        *model.StateManager
	logger       log.Logger
}

// NewLGBMRegressor returns a regressor with LightGBM's defaults:
// n_estimators=100, learning_rate=0.1, num_leaves=31, min_child_samples=20.
func NewLGBMRegressor() *LGBMRegressor {
	return &LGBMRegressor{
		NumLeaves:       31,
		MaxDepth:        -1,
		LearningRate:    0.1,
		NumIterations:   100,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		Subsample:       1,
		ColsampleBytree: 1,
		MaxBin:          255,
		RandomState:     42,
		Objective:       string(RegressionL2),
		Alpha:           0.9,
		state:           model.NewStateManager(),
		logger:          log.GetLoggerWithName("lightgbm"),
	}
}

// WithNumLeaves sets the number of leaves.
func (lgb *LGBMRegressor) WithNumLeaves(n int) *LGBMRegressor {
	lgb.NumLeaves = n
	return lgb
}

// WithMaxDepth sets the maximum depth.
func (lgb *LGBMRegressor) WithMaxDepth(d int) *LGBMRegressor {
	lgb.MaxDepth = d
	return lgb
}

// WithLearningRate sets the learning rate.
func (lgb *LGBMRegressor) WithLearningRate(lr float64) *LGBMRegressor {
	lgb.LearningRate = lr
	return lgb
}

// WithNumIterations sets the number of boosting rounds.
func (lgb *LGBMRegressor) WithNumIterations(n int) *LGBMRegressor {
	lgb.NumIterations = n
	return lgb
}

// WithObjective sets the objective function.
func (lgb *LGBMRegressor) WithObjective(obj string) *LGBMRegressor {
	lgb.Objective = obj
	return lgb
}

func (lgb *LGBMRegressor) trainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:       lgb.NumIterations,
		LearningRate:        lgb.LearningRate,
		NumLeaves:           lgb.NumLeaves,
		MaxDepth:            lgb.MaxDepth,
		MinDataInLeaf:       max(lgb.MinChildSamples, 1),
		Lambda:              lgb.RegLambda,
		Alpha:               lgb.RegAlpha,
		MinSumHessianInLeaf: lgb.MinChildWeight,
		BaggingFraction:     lgb.Subsample,
		FeatureFraction:     lgb.ColsampleBytree,
		MaxBin:              lgb.MaxBin,
		Objective:           lgb.Objective,
		HuberDelta:          lgb.Alpha,
		QuantileAlpha:       lgb.Alpha,
		FairC:               1,
		Seed:                lgb.RandomState,
	}
}

// SetFeatureNames implements model.FeatureNamer.
func (lgb *LGBMRegressor) SetFeatureNames(names []string) error {
	if lgb.state.IsFitted() {
		nFeatures, _ := lgb.state.Dimensions()
		if len(names) != nFeatures {
			return errors.NewDimensionError("LGBMRegressor.SetFeatureNames", nFeatures, len(names), 1)
		}
	}
	lgb.featureNames = append([]string(nil), names...)
	return nil
}

// FeatureNames implements model.FeatureNamer. Without explicit names a
// fitted model reports Column_0, Column_1, ...
func (lgb *LGBMRegressor) FeatureNames() []string {
	if lgb.featureNames != nil {
		return append([]string(nil), lgb.featureNames...)
	}
	if !lgb.state.IsFitted() {
		return nil
	}
	nFeatures, _ := lgb.state.Dimensions()
	names := make([]string, nFeatures)
	for i := range names {
		names[i] = fmt.Sprintf("Column_%d", i)
	}
	return names
}

// Fit trains the booster on X, y.
func (lgb *LGBMRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LGBMRegressor.Fit")
	lgb.state.Reset()
	lgb.Model, lgb.Predictor = nil, nil

	rows, cols := X.Dims()
	if lgb.featureNames != nil && len(lgb.featureNames) != cols {
		return errors.NewDimensionError("LGBMRegressor.Fit", len(lgb.featureNames), cols, 1)
	}

	trainer := NewTrainer(lgb.trainingParams())
	if err := trainer.Fit(X, y); err != nil {
		return err
	}
	lgb.Model = trainer.GetModel()
	lgb.Predictor = NewPredictor(lgb.Model)
	lgb.state.MarkFitted(rows, cols)

	lgb.logger.Debug("model fitted",
		log.ModelNameKey, "lightgbm",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"trees", lgb.Model.NumIteration,
		"max_leaves", lgb.Model.MaxLeaves(),
	)
	return nil
}

// Predict returns the prediction for each row of X.
func (lgb *LGBMRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lgb.state.RequireFitted("LGBMRegressor", X); err != nil {
		return nil, err
	}
	return lgb.Predictor.Predict(X)
}

// Score は R² を返す。
func (lgb *LGBMRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(lgb, X, y)
}

// NumTrees returns the number of fitted trees.
func (lgb *LGBMRegressor) NumTrees() int {
	if lgb.Model == nil {
		return 0
	}
	return len(lgb.Model.Trees)
}

// MaxLeavesPerTree returns the largest leaf count among the fitted trees.
func (lgb *LGBMRegressor) MaxLeavesPerTree() int {
	if lgb.Model == nil {
		return 0
	}
	return lgb.Model.MaxLeaves()
}

// FeatureImportances returns normalised total gain per feature.
func (lgb *LGBMRegressor) FeatureImportances() []float64 {
	if lgb.Model == nil {
		return nil
	}
	return lgb.Model.GetFeatureImportance("gain")
}

// GetParams implements model.ParameterGetter.
func (lgb *LGBMRegressor) GetParams() model.Params {
	return model.Params{
		"n_estimators":      lgb.NumIterations,
		"learning_rate":     lgb.LearningRate,
		"max_depth":         lgb.MaxDepth,
		"num_leaves":        lgb.NumLeaves,
		"min_child_samples": lgb.MinChildSamples,
		"min_child_weight":  lgb.MinChildWeight,
		"subsample":         lgb.Subsample,
		"colsample_bytree":  lgb.ColsampleBytree,
		"reg_alpha":         lgb.RegAlpha,
		"reg_lambda":        lgb.RegLambda,
		"max_bin":           lgb.MaxBin,
		"random_state":      lgb.RandomState,
		"objective":         lgb.Objective,
		"alpha":             lgb.Alpha,
	}
}

// SetParams implements model.ParameterSetter.
func (lgb *LGBMRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "n_estimators", "num_iterations":
			lgb.NumIterations, err = model.ParamInt(k, v)
		case "learning_rate":
			lgb.LearningRate, err = model.ParamFloat(k, v)
		case "max_depth":
			lgb.MaxDepth, err = model.ParamOptionalInt(k, v)
		case "num_leaves":
			lgb.NumLeaves, err = model.ParamInt(k, v)
		case "min_child_samples":
			lgb.MinChildSamples, err = model.ParamInt(k, v)
		case "min_child_weight":
			lgb.MinChildWeight, err = model.ParamFloat(k, v)
		case "subsample":
			lgb.Subsample, err = model.ParamFloat(k, v)
		case "colsample_bytree":
			lgb.ColsampleBytree, err = model.ParamFloat(k, v)
		case "reg_alpha":
			lgb.RegAlpha, err = model.ParamFloat(k, v)
		case "reg_lambda":
			lgb.RegLambda, err = model.ParamFloat(k, v)
		case "max_bin":
			lgb.MaxBin, err = model.ParamInt(k, v)
		case "random_state":
			lgb.RandomState, err = model.ParamInt(k, v)
		case "objective":
			lgb.Objective, err = model.ParamChoice(k, v,
				string(RegressionL2), string(RegressionL1), "mae",
				string(RegressionHuber), string(RegressionFair),
				string(RegressionPoisson), string(RegressionQuantile))
		case "alpha":
			lgb.Alpha, err = model.ParamFloat(k, v)
		default:
			err = model.UnknownParam("LGBMRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
