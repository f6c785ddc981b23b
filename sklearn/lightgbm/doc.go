// Package lightgbm provides a pure Go LightGBM-style gradient boosting
// regressor with a scikit-learn compatible API.
//
// Trees grow leaf-wise: each round splits the leaf with the largest gain
// until num_leaves is reached, with splits found on per-leaf gradient
// histograms. Only the smaller child of a split is histogrammed; its sibling
// comes from subtracting it from the parent.
//
// # Basic Usage
//
//	reg := lightgbm.NewLGBMRegressor().
//	    WithNumLeaves(31).
//	    WithLearningRate(0.05).
//	    WithNumIterations(200)
//	if err := reg.Fit(XTrain, yTrain); err != nil {
//	    log.Fatal(err)
//	}
//	pred, _ := reg.Predict(XTest)
//
// # Objectives
//
//   - regression (L2), regression_l1 (alias mae), huber, fair
//   - quantile, with the level taken from alpha
//   - poisson, for non-negative count-like targets; predictions are exp(raw)
//
// Models can only be trained in process; reading LightGBM model files is
// not supported.
package lightgbm
