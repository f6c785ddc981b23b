// Package model defines the estimator contracts shared by every regression
// algorithm in the catalogue, plus helpers for parameters and fitted state.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit は X (n×d) と y (n×1) でモデルを学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は n×1 の予測値を返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer computes the coefficient of determination R² on (X, y).
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// ParameterGetter exposes hyperparameters under their grid names.
type ParameterGetter interface {
	GetParams() Params
}

// ParameterSetter applies hyperparameters by grid name. Unknown names are
// rejected with a ValidationError.
type ParameterSetter interface {
	SetParams(params Params) error
}

// Regressor is the contract every algorithm in the search catalogue fulfils.
type Regressor interface {
	Fitter
	Predictor
	Scorer
	ParameterGetter
	ParameterSetter
}

// FeatureNamer is implemented by estimators that keep column labels, such as
// the leaf-wise boosting model. Names are optional for every other estimator.
type FeatureNamer interface {
	SetFeatureNames(names []string) error
	FeatureNames() []string
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
