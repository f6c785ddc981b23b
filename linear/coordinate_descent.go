package linear

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// ElasticNet は L1 と L2 を組み合わせた正則化線形回帰。目的関数は
//
//	1/(2n)·||y - Xw||² + alpha·l1_ratio·||w||₁ + ½·alpha·(1 - l1_ratio)·||w||²
//
// を巡回座標降下法で最小化する。
type ElasticNet struct {
	coefficients

	Alpha        float64
	L1Ratio      float64
	MaxIter      int
	Tol          float64
	FitIntercept bool

	// NIter is the number of full passes the last Fit ran.
	NIter int

	name   string
	logger log.Logger
}

// NewElasticNet returns ElasticNet with alpha=1, l1_ratio=0.5, max_iter=1000.
func NewElasticNet() *ElasticNet {
	return &ElasticNet{
		coefficients: coefficients{state: model.NewStateManager()},
		Alpha:        1.0,
		L1Ratio:      0.5,
		MaxIter:      1000,
		Tol:          1e-4,
		FitIntercept: true,
		name:         "ElasticNet",
		logger:       log.GetLoggerWithName("linear.elasticnet"),
	}
}

// Lasso は l1_ratio を 1 に固定した ElasticNet。
type Lasso struct {
	ElasticNet
}

// NewLasso returns Lasso with alpha=1, max_iter=1000.
func NewLasso() *Lasso {
	enet := NewElasticNet()
	enet.L1Ratio = 1.0
	enet.name = "Lasso"
	enet.logger = log.GetLoggerWithName("linear.lasso")
	return &Lasso{ElasticNet: *enet}
}

// GetParams implements model.ParameterGetter.
func (l *Lasso) GetParams() model.Params {
	return model.Params{"alpha": l.Alpha, "max_iter": l.MaxIter, "fit_intercept": l.FitIntercept}
}

// SetParams implements model.ParameterSetter. l1_ratio is not settable.
func (l *Lasso) SetParams(params model.Params) error {
	if v, ok := params["l1_ratio"]; ok {
		return model.UnknownParam("Lasso", "l1_ratio", v)
	}
	return l.ElasticNet.SetParams(params)
}

// Fit runs cyclic coordinate descent until the largest coefficient update
// relative to the largest coefficient falls below Tol. When MaxIter passes
// are exhausted a ConvergenceWarning is raised and the current solution kept.
func (e *ElasticNet) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, e.name+".Fit")
	e.state.Reset()

	if e.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", e.Alpha)
	}
	if e.L1Ratio < 0 || e.L1Ratio > 1 {
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", e.L1Ratio)
	}
	if e.MaxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", e.MaxIter)
	}
	n, d, target, err := model.CheckXY(e.name+".Fit", X, y)
	if err != nil {
		return err
	}
	ds := newDesign(X, target, e.FitIntercept)

	l1 := e.Alpha * e.L1Ratio * float64(n)
	l2 := e.Alpha * (1 - e.L1Ratio) * float64(n)

	w := make([]float64, d)
	resid := append([]float64(nil), ds.y...)
	norms := make([]float64, d)
	for j, col := range ds.cols {
		norms[j] = floats.Dot(col, col)
	}

	converged := false
	iter := 0
	for iter = 1; iter <= e.MaxIter; iter++ {
		var maxDelta, maxW float64
		for j, col := range ds.cols {
			if norms[j] == 0 {
				continue
			}
			old := w[j]
			rho := floats.Dot(col, resid) + norms[j]*old
			next := softThreshold(rho, l1) / (norms[j] + l2)
			if next != old {
				floats.AddScaled(resid, old-next, col)
				w[j] = next
			}
			maxDelta = math.Max(maxDelta, math.Abs(next-old))
			maxW = math.Max(maxW, math.Abs(next))
		}
		if err := errors.CheckFinite(e.name+".Fit", iter, maxDelta); err != nil {
			return err
		}
		if maxW == 0 || maxDelta/maxW < e.Tol {
			converged = true
			break
		}
	}
	if iter > e.MaxIter {
		iter = e.MaxIter
	}
	e.NIter = iter
	if !converged {
		errors.Warn(errors.NewConvergenceWarning(e.name, e.MaxIter, ""))
	}

	e.coef = w
	e.intercept = 0
	if e.FitIntercept {
		e.intercept = ds.intercept(w)
	}
	e.state.MarkFitted(n, d)
	e.logger.Debug("fit complete", log.IterationKey, iter, log.SamplesKey, n, "converged", converged)
	return nil
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

// Predict は y = Xw + b を返す。
func (e *ElasticNet) Predict(X mat.Matrix) (mat.Matrix, error) {
	return e.predict(e.name, X)
}

// Score は R² を返す。
func (e *ElasticNet) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(e, X, y)
}

// GetParams implements model.ParameterGetter.
func (e *ElasticNet) GetParams() model.Params {
	return model.Params{"alpha": e.Alpha, "l1_ratio": e.L1Ratio, "max_iter": e.MaxIter, "fit_intercept": e.FitIntercept}
}

// SetParams implements model.ParameterSetter.
func (e *ElasticNet) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "alpha":
			e.Alpha, err = model.ParamFloat(k, v)
		case "l1_ratio":
			e.L1Ratio, err = model.ParamFloat(k, v)
		case "max_iter":
			e.MaxIter, err = model.ParamInt(k, v)
		case "tol":
			e.Tol, err = model.ParamFloat(k, v)
		case "fit_intercept":
			e.FitIntercept, err = model.ParamBool(k, v)
		default:
			err = model.UnknownParam(e.name, k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
