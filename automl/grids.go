package automl

import (
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/sklearn/model_selection"
)

// ParamGrid maps a hyperparameter name to its candidate values. nil stands
// for "unbounded", as in max_depth None.
type ParamGrid = model_selection.ParamGrid

// GridCatalogue holds one grid per algorithm for every grid tier.
type GridCatalogue map[GridTier]map[Algorithm]ParamGrid

// GridsFor returns a fresh copy of the default grids of tier.
func GridsFor(tier GridTier) map[Algorithm]ParamGrid {
	return DefaultGridCatalogue()[tier]
}

// DefaultGridCatalogue returns the four grid tables. Each call builds new
// maps so callers may modify the result.
func DefaultGridCatalogue() GridCatalogue {
	return GridCatalogue{
		GridDetailed: {
			LinearRegression: {"fit_intercept": {true, false}, "positive": {true, false}},
			Ridge: {
				"alpha":  {0.01, 0.1, 0.5, 1.0, 5.0, 10.0, 50.0, 100.0},
				"solver": {"auto", "svd", "cholesky", "lsqr"},
			},
			Lasso: {
				"alpha":    {0.01, 0.1, 0.5, 1.0, 5.0, 10.0, 50.0, 100.0},
				"max_iter": {1000, 2000, 3000, 5000, 8000},
			},
			ElasticNet: {
				"alpha":    {0.01, 0.1, 0.5, 1.0, 5.0, 10.0},
				"l1_ratio": {0.1, 0.3, 0.5, 0.7, 0.9, 0.95},
			},
			KNN: {
				"n_neighbors": {3, 5, 7, 9, 11, 15, 20},
				"weights":     {"uniform", "distance"},
				"algorithm":   {"auto", "ball_tree", "kd_tree"},
			},
			SVR: {
				"C":      {0.1, 0.5, 1.0, 5.0, 10.0, 50.0, 100.0},
				"gamma":  {"scale", "auto"},
				"kernel": {"rbf", "linear", "poly"},
			},
			DecisionTree: {
				"max_depth":         {nil, 3, 5, 7, 10, 15, 20},
				"min_samples_leaf":  {1, 2, 4, 6, 8, 12},
				"min_samples_split": {2, 5, 10, 15},
			},
			RandomForest: {
				"n_estimators":     {50, 100, 150, 200, 300, 400},
				"max_depth":        {nil, 5, 10, 15, 20, 25},
				"min_samples_leaf": {1, 2, 4, 6},
			},
			XGBoost: {
				"n_estimators":  {50, 100, 150, 200, 300, 400},
				"learning_rate": {0.01, 0.05, 0.1, 0.15, 0.2, 0.3},
				"max_depth":     {3, 4, 5, 6, 7, 8, 9},
				"subsample":     {0.8, 0.9, 1.0},
			},
			LightGBM: {
				"n_estimators":  {50, 100, 150, 200, 300, 400},
				"learning_rate": {0.01, 0.05, 0.1, 0.15, 0.2, 0.3},
				"max_depth":     {-1, 5, 7, 10, 15, 20},
				"num_leaves":    {31, 50, 100, 150},
			},
		},
		GridFast: {
			LinearRegression: {"fit_intercept": {true, false}, "positive": {true, false}},
			Ridge: {
				"alpha":  {0.1, 1.0, 10.0, 100.0},
				"solver": {"auto", "svd", "cholesky"},
			},
			Lasso: {
				"alpha":    {0.1, 1.0, 10.0, 100.0},
				"max_iter": {1000, 2000, 5000},
			},
			ElasticNet: {
				"alpha":    {0.1, 1.0, 10.0},
				"l1_ratio": {0.1, 0.5, 0.7, 0.9},
			},
			KNN: {
				"n_neighbors": {3, 5, 7, 10},
				"weights":     {"uniform", "distance"},
			},
			SVR: {
				"C":     {0.1, 1.0, 10.0},
				"gamma": {"scale", "auto"},
			},
			DecisionTree: {
				"max_depth":        {nil, 5, 10, 15},
				"min_samples_leaf": {1, 2, 4, 8},
			},
			RandomForest: {
				"n_estimators": {50, 100, 200},
				"max_depth":    {nil, 5, 10, 15},
			},
			XGBoost: {
				"n_estimators":  {50, 100, 200},
				"learning_rate": {0.01, 0.1, 0.2},
				"max_depth":     {3, 6, 9},
			},
			LightGBM: {
				"n_estimators":  {50, 100, 200},
				"learning_rate": {0.01, 0.1, 0.2},
				"max_depth":     {-1, 5, 10, 15},
			},
		},
		GridUltraFast: {
			LinearRegression: {"fit_intercept": {true, false}},
			Ridge:            {"alpha": {1.0, 10.0}},
			Lasso:            {"alpha": {1.0, 10.0}},
			ElasticNet:       {"alpha": {1.0}, "l1_ratio": {0.5, 0.7}},
			KNN:              {"n_neighbors": {5, 10}},
			SVR:              {"C": {1.0}, "gamma": {"scale"}},
			DecisionTree:     {"max_depth": {10, 15}},
			RandomForest:     {"n_estimators": {50, 100}, "max_depth": {10}},
			XGBoost:          {"n_estimators": {50, 100}, "learning_rate": {0.1}, "max_depth": {6}},
			LightGBM:         {"n_estimators": {50, 100}, "learning_rate": {0.1}, "max_depth": {10}},
		},
		GridUltraMinimal: {
			LinearRegression: {"fit_intercept": {true}},
			Ridge:            {"alpha": {1.0}},
			Lasso:            {"alpha": {1.0}},
			ElasticNet:       {"alpha": {1.0}, "l1_ratio": {0.5}},
			KNN:              {"n_neighbors": {5}},
			SVR:              {"C": {1.0}, "gamma": {"scale"}},
			DecisionTree:     {"max_depth": {10}},
			RandomForest:     {"n_estimators": {50}, "max_depth": {10}},
			XGBoost:          {"n_estimators": {50}, "learning_rate": {0.1}, "max_depth": {6}},
			LightGBM:         {"n_estimators": {50}, "learning_rate": {0.1}, "max_depth": {10}},
		},
	}
}

// ValidateCatalogue checks that every grid tier has a non-empty grid for
// each of algorithms and that no parameter has an empty value list.
func ValidateCatalogue(c GridCatalogue, algorithms []Algorithm) error {
	for _, tier := range GridTiers {
		grids, ok := c[tier]
		if !ok {
			return errors.NewValidationError("grid_catalogue", "missing grid tier", string(tier))
		}
		for _, alg := range algorithms {
			grid, ok := grids[alg]
			if !ok || len(grid) == 0 {
				return errors.NewValidationError("grid_catalogue",
					"no grid for algorithm in tier "+string(tier), string(alg))
			}
			for name, values := range grid {
				if len(values) == 0 {
					return errors.NewValidationError("grid_catalogue",
						"empty value list for "+string(alg)+" in tier "+string(tier), name)
				}
			}
		}
	}
	return nil
}
