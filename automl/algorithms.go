package automl

import (
	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/linear"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/sklearn/ensemble"
	"github.com/mirzakinn/sales-prediction/sklearn/lightgbm"
	"github.com/mirzakinn/sales-prediction/sklearn/neighbors"
	"github.com/mirzakinn/sales-prediction/sklearn/svm"
	"github.com/mirzakinn/sales-prediction/sklearn/tree"
)

// Algorithm is the catalogue name of a regression algorithm.
type Algorithm string

const (
	LinearRegression Algorithm = "linear_regression"
	Ridge            Algorithm = "ridge"
	Lasso            Algorithm = "lasso"
	ElasticNet       Algorithm = "elasticnet"
	KNN              Algorithm = "knn"
	SVR              Algorithm = "svr"
	DecisionTree     Algorithm = "decision_tree"
	RandomForest     Algorithm = "random_forest"
	// XGBoost is gradient boosting with depth-wise trees.
	XGBoost Algorithm = "xgboost"
	// LightGBM is gradient boosting with leaf-wise trees.
	LightGBM Algorithm = "lightgbm"
)

// DefaultOrder is the priority order of a search, fastest expected first.
var DefaultOrder = []Algorithm{
	LinearRegression,
	Ridge,
	Lasso,
	DecisionTree,
	ElasticNet,
	RandomForest,
	LightGBM,
	XGBoost,
	KNN,
	SVR,
}

var displayNames = map[Algorithm]string{
	LinearRegression: "Linear Regression",
	Ridge:            "Ridge Regression",
	Lasso:            "Lasso Regression",
	ElasticNet:       "ElasticNet",
	KNN:              "K-Nearest Neighbors",
	SVR:              "SVR (Support Vector Regression)",
	DecisionTree:     "Decision Tree",
	RandomForest:     "Random Forest",
	XGBoost:          "XGBoost",
	LightGBM:         "LightGBM",
}

// DisplayName returns the human-readable name of alg, or alg itself when
// it has none.
func DisplayName(alg Algorithm) string {
	if name, ok := displayNames[alg]; ok {
		return name
	}
	return string(alg)
}

// AlgorithmSpec names an algorithm and builds unfitted estimators for it.
type AlgorithmSpec struct {
	Name Algorithm
	New  func(params model.Params) (model.Regressor, error)
}

// Build returns a fresh estimator configured with params.
func (s AlgorithmSpec) Build(params model.Params) (model.Regressor, error) {
	if s.New == nil {
		return nil, errors.NewValidationError("algorithm", "has no constructor", string(s.Name))
	}
	return s.New(params)
}

func configured(est model.Regressor, params model.Params) (model.Regressor, error) {
	if err := est.SetParams(params); err != nil {
		return nil, err
	}
	return est, nil
}

// DefaultAlgorithms returns the specs of the ten catalogue algorithms.
func DefaultAlgorithms() map[Algorithm]AlgorithmSpec {
	ctors := map[Algorithm]func() model.Regressor{
		LinearRegression: func() model.Regressor { return linear.NewLinearRegression() },
		Ridge:            func() model.Regressor { return linear.NewRidge() },
		Lasso:            func() model.Regressor { return linear.NewLasso() },
		ElasticNet:       func() model.Regressor { return linear.NewElasticNet() },
		KNN:              func() model.Regressor { return neighbors.NewKNeighborsRegressor() },
		SVR:              func() model.Regressor { return svm.NewSVR() },
		DecisionTree:     func() model.Regressor { return tree.NewDecisionTreeRegressor() },
		RandomForest:     func() model.Regressor { return ensemble.NewRandomForestRegressor() },
		XGBoost:          func() model.Regressor { return ensemble.NewXGBRegressor() },
		LightGBM:         func() model.Regressor { return lightgbm.NewLGBMRegressor() },
	}
	specs := make(map[Algorithm]AlgorithmSpec, len(ctors))
	for alg, ctor := range ctors {
		specs[alg] = AlgorithmSpec{
			Name: alg,
			New: func(params model.Params) (model.Regressor, error) {
				return configured(ctor(), params)
			},
		}
	}
	return specs
}
