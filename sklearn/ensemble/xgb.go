package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// XGBRegressor is gradient boosting with depth-wise histogram trees and an
// L2 penalty on leaf weights.
type XGBRegressor struct {
	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	Subsample      float64
	RegLambda      float64
	MinChildWeight float64
	Gamma          float64
	RandomState    uint64

	state   *model.StateManager
	booster *booster
	logger  log.Logger
}

// NewXGBRegressor returns a regressor with n_estimators=100,
// learning_rate=0.3, max_depth=6 and reg_lambda=1.
func NewXGBRegressor() *XGBRegressor {
	return &XGBRegressor{
		NEstimators:    100,
		LearningRate:   0.3,
		MaxDepth:       6,
		Subsample:      1,
		RegLambda:      1,
		MinChildWeight: 1,
		RandomState:    42,
		state:          model.NewStateManager(),
		logger:         log.GetLoggerWithName("ensemble.xgboost"),
	}
}

func (x *XGBRegressor) config() boostConfig {
	return boostConfig{
		nEstimators:  x.NEstimators,
		learningRate: x.LearningRate,
		subsample:    x.Subsample,
		maxBin:       DefaultMaxBin,
		seed:         x.RandomState,
		tree: treeParams{
			maxDepth:        x.MaxDepth,
			lambda:          x.RegLambda,
			minChildWeight:  x.MinChildWeight,
			minChildSamples: 1,
			minSplitGain:    x.Gamma,
		},
	}
}

// Fit boosts NEstimators trees on X, y.
func (x *XGBRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "XGBRegressor.Fit")
	x.state.Reset()
	b, err := fitBooster("XGBRegressor.Fit", x.config(), X, y, x.logger)
	if err != nil {
		return err
	}
	x.booster = b
	r, c := X.Dims()
	x.state.MarkFitted(r, c)
	return nil
}

// Predict returns the boosted prediction for each row of X.
func (x *XGBRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := x.state.RequireFitted("XGBRegressor", X); err != nil {
		return nil, err
	}
	return x.booster.predict(X), nil
}

// Score は R² を返す。
func (x *XGBRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(x, X, y)
}

// NumTrees returns the number of fitted trees.
func (x *XGBRegressor) NumTrees() int {
	if x.booster == nil {
		return 0
	}
	return len(x.booster.trees)
}

// FeatureImportances returns normalised total gain per feature.
func (x *XGBRegressor) FeatureImportances() []float64 {
	if x.booster == nil {
		return nil
	}
	return x.booster.gainImportances()
}

// GetParams implements model.ParameterGetter.
func (x *XGBRegressor) GetParams() model.Params {
	return model.Params{
		"n_estimators":     x.NEstimators,
		"learning_rate":    x.LearningRate,
		"max_depth":        x.MaxDepth,
		"subsample":        x.Subsample,
		"reg_lambda":       x.RegLambda,
		"min_child_weight": x.MinChildWeight,
		"gamma":            x.Gamma,
		"random_state":     int(x.RandomState),
	}
}

// SetParams implements model.ParameterSetter.
func (x *XGBRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "n_estimators":
			x.NEstimators, err = model.ParamInt(k, v)
		case "learning_rate":
			x.LearningRate, err = model.ParamFloat(k, v)
		case "max_depth":
			x.MaxDepth, err = model.ParamOptionalInt(k, v)
		case "subsample":
			x.Subsample, err = model.ParamFloat(k, v)
		case "reg_lambda":
			x.RegLambda, err = model.ParamFloat(k, v)
		case "min_child_weight":
			x.MinChildWeight, err = model.ParamFloat(k, v)
		case "gamma":
			x.Gamma, err = model.ParamFloat(k, v)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(k, v)
			x.RandomState = uint64(seed)
		default:
			err = model.UnknownParam("XGBRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
