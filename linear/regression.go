package linear

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// LinearRegression は最小二乗法による線形回帰モデル。
// Positive が true の場合は係数を非負に制約する (NNLS)。
type LinearRegression struct {
	coefficients

	FitIntercept bool
	Positive     bool

	logger log.Logger
}

// NewLinearRegression は fit_intercept=true, positive=false の線形回帰を返す。
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{
		coefficients: coefficients{state: model.NewStateManager()},
		FitIntercept: true,
		logger:       log.GetLoggerWithName("linear.regression"),
	}
}

// Fit は最小二乗解を求める。ランク落ちした行列でも SVD による最小ノルム解を返す。
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")
	lr.state.Reset()

	n, d, target, err := model.CheckXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}
	ds := newDesign(X, target, lr.FitIntercept)

	var coef []float64
	if lr.Positive {
		coef = nnls(ds, 1000, 1e-8)
	} else {
		coef, err = leastSquares(ds.dense(), ds.y)
		if err != nil {
			return errors.NewModelError("LinearRegression.Fit", "least squares failed", err)
		}
	}

	lr.coef = coef
	lr.intercept = 0
	if lr.FitIntercept {
		lr.intercept = ds.intercept(coef)
	}
	lr.state.MarkFitted(n, d)
	lr.logger.Debug("fit complete", log.OperationKey, log.OperationFit, log.SamplesKey, n, log.FeaturesKey, d)
	return nil
}

// Predict は y = Xw + b を返す。
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	return lr.predict("LinearRegression", X)
}

// Score は R² を返す。
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(lr, X, y)
}

// GetParams implements model.ParameterGetter.
func (lr *LinearRegression) GetParams() model.Params {
	return model.Params{"fit_intercept": lr.FitIntercept, "positive": lr.Positive}
}

// SetParams implements model.ParameterSetter.
func (lr *LinearRegression) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "fit_intercept":
			lr.FitIntercept, err = model.ParamBool(k, v)
		case "positive":
			lr.Positive, err = model.ParamBool(k, v)
		default:
			err = model.UnknownParam("LinearRegression", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// leastSquares solves min ||Aw - b|| with a rank-revealing SVD.
func leastSquares(A *mat.Dense, b []float64) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, errors.ErrSingularMatrix
	}
	rank := svd.Rank(1e-12)
	if rank == 0 {
		_, d := A.Dims()
		return make([]float64, d), nil
	}
	var w mat.Dense
	svd.SolveTo(&w, mat.NewDense(len(b), 1, b), rank)
	return mat.Col(nil, 0, &w), nil
}

// nnls solves least squares with w >= 0 by projected coordinate descent.
func nnls(ds *design, maxIter int, tol float64) []float64 {
	w := make([]float64, ds.d)
	resid := make([]float64, ds.n)
	copy(resid, ds.y)
	norms := make([]float64, ds.d)
	for j, col := range ds.cols {
		norms[j] = floats.Dot(col, col)
	}
	for iter := 0; iter < maxIter; iter++ {
		var maxDelta float64
		for j, col := range ds.cols {
			if norms[j] == 0 {
				continue
			}
			next := w[j] + floats.Dot(col, resid)/norms[j]
			if next < 0 {
				next = 0
			}
			if delta := next - w[j]; delta != 0 {
				floats.AddScaled(resid, -delta, col)
				if a := abs(delta); a > maxDelta {
					maxDelta = a
				}
				w[j] = next
			}
		}
		if maxDelta < tol {
			break
		}
	}
	return w
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
