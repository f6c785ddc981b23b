// Package salesml finds the best regression model for a tabular dataset,
// aimed at sales forecasting.
//
// Given a numeric training set and a held-out test set, salesml trains each
// algorithm of its catalogue with a cross-validated grid search, scores the
// winner of every grid on the test set and ranks the algorithms by R². The
// effort it spends adapts to the size of the data.
//
// # Size tiers
//
// Training sets are classified before the search starts:
//
//   - standard: fast grids and 5-fold CV, or the detailed grids on request
//   - large (>= 30,000 rows or >= 15 columns): ultra-fast grids, 3 folds
//   - huge (>= 100,000 rows or >= 25 columns): as large, with a 180s budget
//     per algorithm and at most 8 algorithms
//   - massive (>= 300,000 rows): single-candidate grids, 2 folds, a 120s
//     budget and at most 6 algorithms
//
// Sets above 80,000 rows are searched on a uniform sample; the winning
// parameters are then refitted on the full training set.
//
// # Quick Start
//
//	session := automl.NewSession(automl.DefaultConfig())
//	out, err := session.Search(ctx, automl.SearchInput{
//	    Train:        automl.Dataset{X: XTrain, Y: yTrain},
//	    Test:         automl.Dataset{X: XTest, Y: yTest},
//	    FeatureNames: []string{"price", "promo", "week"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Summary())
//
// # Packages
//
//   - automl: size tiers, grid catalogue, per-algorithm trainer and the search
//   - linear: LinearRegression, Ridge, Lasso, ElasticNet
//   - sklearn/neighbors, sklearn/svm, sklearn/tree: KNN, SVR, decision trees
//   - sklearn/ensemble: random forest and XGBoost-style depth-wise boosting
//   - sklearn/lightgbm: LightGBM-style leaf-wise boosting with several
//     regression objectives
//   - sklearn/model_selection: KFold, parameter grids, GridSearchCV
//   - metrics: R², MSE, RMSE, MAE
//   - preprocessing: scalers and label encoding
//   - core/model, core/parallel: estimator contracts and parallel helpers
//   - pkg/errors, pkg/log: typed errors and zerolog-backed logging
//
// The salesml command (cmd/salesml) wraps all of this for CSV files and
// keeps a SQLite history of past searches.
package salesml
