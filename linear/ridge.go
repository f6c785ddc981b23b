package linear

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// Ridge solvers.
const (
	SolverAuto     = "auto"
	SolverSVD      = "svd"
	SolverCholesky = "cholesky"
	SolverLSQR     = "lsqr"
)

// Ridge は L2 正則化付き線形回帰。目的関数は ||y - Xw||² + alpha·||w||²。
type Ridge struct {
	coefficients

	Alpha        float64
	Solver       string
	FitIntercept bool
	MaxIter      int
	Tol          float64

	logger log.Logger
}

// NewRidge returns Ridge with alpha=1 and the auto solver.
func NewRidge() *Ridge {
	return &Ridge{
		coefficients: coefficients{state: model.NewStateManager()},
		Alpha:        1.0,
		Solver:       SolverAuto,
		FitIntercept: true,
		MaxIter:      1000,
		Tol:          1e-6,
		logger:       log.GetLoggerWithName("linear.ridge"),
	}
}

// Fit solves the regularised normal equations with the configured solver.
// auto uses Cholesky and falls back to SVD when the system is not positive definite.
func (r *Ridge) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Ridge.Fit")
	r.state.Reset()

	if r.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.Alpha)
	}
	n, d, target, err := model.CheckXY("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	ds := newDesign(X, target, r.FitIntercept)
	A := ds.dense()

	var coef []float64
	switch r.Solver {
	case SolverAuto, SolverCholesky:
		coef, err = ridgeCholesky(A, ds.y, r.Alpha)
		if err != nil && r.Solver == SolverAuto {
			r.logger.Debug("cholesky failed, falling back to svd", log.ErrorKey, err)
			coef, err = ridgeSVD(A, ds.y, r.Alpha)
		}
	case SolverSVD:
		coef, err = ridgeSVD(A, ds.y, r.Alpha)
	case SolverLSQR:
		coef = ridgeCG(ds, r.Alpha, r.MaxIter, r.Tol)
	default:
		return errors.NewValidationError("solver", "unknown ridge solver", r.Solver)
	}
	if err != nil {
		return errors.NewModelError("Ridge.Fit", r.Solver+" solver failed", err)
	}

	r.coef = coef
	r.intercept = 0
	if r.FitIntercept {
		r.intercept = ds.intercept(coef)
	}
	r.state.MarkFitted(n, d)
	return nil
}

func ridgeCholesky(A *mat.Dense, b []float64, alpha float64) ([]float64, error) {
	_, d := A.Dims()
	gram := mat.NewSymDense(d, nil)
	gram.SymOuterK(1, A.T())
	for j := 0; j < d; j++ {
		gram.SetSym(j, j, gram.At(j, j)+alpha)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, errors.ErrSingularMatrix
	}
	var atb mat.VecDense
	atb.MulVec(A.T(), mat.NewVecDense(len(b), b))
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &atb); err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, &w), nil
}

// ridgeSVD computes w = V diag(s/(s²+alpha)) Uᵀ b.
func ridgeSVD(A *mat.Dense, b []float64, alpha float64) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, errors.ErrSingularMatrix
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var utb mat.VecDense
	utb.MulVec(u.T(), mat.NewVecDense(len(b), b))
	for i, sv := range s {
		den := sv*sv + alpha
		if sv < 1e-15 || den == 0 {
			utb.SetVec(i, 0)
			continue
		}
		utb.SetVec(i, utb.AtVec(i)*sv/den)
	}
	var w mat.VecDense
	w.MulVec(&v, &utb)
	return mat.Col(nil, 0, &w), nil
}

// ridgeCG solves (AᵀA + alpha·I) w = Aᵀb with conjugate gradients on the
// normal equations, never forming AᵀA.
func ridgeCG(ds *design, alpha float64, maxIter int, tol float64) []float64 {
	d := ds.d
	apply := func(w []float64) []float64 {
		aw := make([]float64, ds.n)
		for j, col := range ds.cols {
			if w[j] != 0 {
				floats.AddScaled(aw, w[j], col)
			}
		}
		out := make([]float64, d)
		for j, col := range ds.cols {
			out[j] = floats.Dot(col, aw) + alpha*w[j]
		}
		return out
	}

	w := make([]float64, d)
	r := make([]float64, d)
	for j, col := range ds.cols {
		r[j] = floats.Dot(col, ds.y)
	}
	p := append([]float64(nil), r...)
	rs := floats.Dot(r, r)
	stop := tol * tol * math.Max(rs, 1e-300)
	if maxIter <= 0 {
		maxIter = 1000
	}
	for iter := 0; iter < maxIter && rs > stop; iter++ {
		ap := apply(p)
		pap := floats.Dot(p, ap)
		if pap <= 0 {
			break
		}
		step := rs / pap
		floats.AddScaled(w, step, p)
		floats.AddScaled(r, -step, ap)
		next := floats.Dot(r, r)
		floats.Scale(next/rs, p)
		floats.Add(p, r)
		rs = next
	}
	return w
}

// Predict は y = Xw + b を返す。
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	return r.predict("Ridge", X)
}

// Score は R² を返す。
func (r *Ridge) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(r, X, y)
}

// GetParams implements model.ParameterGetter.
func (r *Ridge) GetParams() model.Params {
	return model.Params{"alpha": r.Alpha, "solver": r.Solver, "fit_intercept": r.FitIntercept}
}

// SetParams implements model.ParameterSetter.
func (r *Ridge) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "alpha":
			r.Alpha, err = model.ParamFloat(k, v)
		case "solver":
			r.Solver, err = model.ParamChoice(k, v, SolverAuto, SolverSVD, SolverCholesky, SolverLSQR)
		case "fit_intercept":
			r.FitIntercept, err = model.ParamBool(k, v)
		case "max_iter":
			r.MaxIter, err = model.ParamInt(k, v)
		default:
			err = model.UnknownParam("Ridge", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
