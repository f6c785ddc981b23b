// Package svm provides epsilon-insensitive support vector regression.
package svm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/core/parallel"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// kernelCacheRows is the largest training set whose full kernel matrix is
// kept in memory. Larger sets recompute kernel columns on demand.
const kernelCacheRows = 2000

// SVR solves the epsilon-SVR dual by coordinate descent. The bias is folded
// into the kernel (K + 1), which removes the equality constraint of the
// classic dual and leaves a box-constrained problem in beta = alpha - alpha*:
//
//	min ½·βᵀ(K+1)β - yᵀβ + ε·||β||₁   s.t. -C <= β_i <= C
type SVR struct {
	C       float64
	Epsilon float64
	Kernel  string
	// Gamma is "scale", "auto" or a float64.
	Gamma   any
	Degree  int
	Coef0   float64
	Tol     float64
	MaxIter int

	state       *model.StateManager
	kernel      kernelFunc
	gammaValue  float64
	supportRows [][]float64
	dualCoef    []float64
	NIter       int
	NSupport    int
	logger      log.Logger
}

// NewSVR returns an RBF SVR with C=1, epsilon=0.1 and gamma="scale".
func NewSVR() *SVR {
	return &SVR{
		C:       1.0,
		Epsilon: 0.1,
		Kernel:  KernelRBF,
		Gamma:   GammaScale,
		Degree:  3,
		Tol:     1e-3,
		MaxIter: 200,
		state:   model.NewStateManager(),
		logger:  log.GetLoggerWithName("svm.svr"),
	}
}

// Fit runs cyclic coordinate descent over the dual until the largest update
// in a pass is below Tol or MaxIter passes are done.
func (s *SVR) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SVR.Fit")
	s.state.Reset()

	if s.C <= 0 {
		return errors.NewValidationError("C", "must be positive", s.C)
	}
	if s.Epsilon < 0 {
		return errors.NewValidationError("epsilon", "must be non-negative", s.Epsilon)
	}
	n, d, target, err := model.CheckXY("SVR.Fit", X, y)
	if err != nil {
		return err
	}
	rows := model.Rows(X)
	s.gammaValue = resolveGamma(s.Gamma, rows)
	s.kernel = newKernel(s.Kernel, s.gammaValue, s.Degree, s.Coef0)

	column := s.columnSource(rows)
	diag := make([]float64, n)
	for i, r := range rows {
		diag[i] = s.kernel(r, r) + 1
	}

	beta := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -target[i]
	}

	converged := false
	iter := 0
	for iter = 1; iter <= s.MaxIter; iter++ {
		var maxDelta float64
		for i := 0; i < n; i++ {
			if diag[i] <= 0 {
				continue
			}
			// Minimise ½·q·b² + (g - q·β_i)·b + ε|b| over b in [-C, C].
			next := softThreshold(diag[i]*beta[i]-grad[i], s.Epsilon) / diag[i]
			next = math.Max(-s.C, math.Min(s.C, next))
			delta := next - beta[i]
			if delta == 0 {
				continue
			}
			col := column(i)
			for j := range grad {
				grad[j] += delta * col[j]
			}
			beta[i] = next
			if a := math.Abs(delta); a > maxDelta {
				maxDelta = a
			}
		}
		if err := errors.CheckFinite("SVR.Fit", iter, maxDelta); err != nil {
			return err
		}
		if maxDelta < s.Tol {
			converged = true
			break
		}
	}
	if iter > s.MaxIter {
		iter = s.MaxIter
	}
	s.NIter = iter
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("SVR", s.MaxIter, "dual coordinate descent"))
	}

	s.supportRows = s.supportRows[:0]
	s.dualCoef = s.dualCoef[:0]
	for i, b := range beta {
		if b != 0 {
			s.supportRows = append(s.supportRows, rows[i])
			s.dualCoef = append(s.dualCoef, b)
		}
	}
	s.NSupport = len(s.dualCoef)
	s.state.MarkFitted(n, d)
	s.logger.Debug("fit complete", log.SamplesKey, n, log.IterationKey, iter, "n_support", s.NSupport, "converged", converged)
	return nil
}

// columnSource returns a function yielding column i of K + 1.
func (s *SVR) columnSource(rows [][]float64) func(i int) []float64 {
	n := len(rows)
	if n <= kernelCacheRows {
		cache := make([][]float64, n)
		return func(i int) []float64 {
			if cache[i] == nil {
				cache[i] = s.kernelColumn(rows, i)
			}
			return cache[i]
		}
	}
	return func(i int) []float64 { return s.kernelColumn(rows, i) }
}

func (s *SVR) kernelColumn(rows [][]float64, i int) []float64 {
	col := make([]float64, len(rows))
	xi := rows[i]
	parallel.ParallelizeWithThreshold(len(rows), 4096, func(start, end int) {
		for j := start; j < end; j++ {
			col[j] = s.kernel(rows[j], xi) + 1
		}
	})
	return col
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

// Predict returns Σ β_i·(K(x_i, x) + 1) over the support vectors.
func (s *SVR) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("SVR", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), 1, nil)
	parallel.ParallelizeWithThreshold(len(rows), 64, func(start, end int) {
		for i := start; i < end; i++ {
			var sum float64
			for k, sv := range s.supportRows {
				sum += s.dualCoef[k] * (s.kernel(sv, rows[i]) + 1)
			}
			out.Set(i, 0, sum)
		}
	})
	return out, nil
}

// Score は R² を返す。
func (s *SVR) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(s, X, y)
}

// GetParams implements model.ParameterGetter.
func (s *SVR) GetParams() model.Params {
	return model.Params{"C": s.C, "epsilon": s.Epsilon, "kernel": s.Kernel, "gamma": s.Gamma, "degree": s.Degree}
}

// SetParams implements model.ParameterSetter.
func (s *SVR) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "C":
			s.C, err = model.ParamFloat(k, v)
		case "epsilon":
			s.Epsilon, err = model.ParamFloat(k, v)
		case "kernel":
			s.Kernel, err = model.ParamChoice(k, v, KernelRBF, KernelLinear, KernelPoly)
		case "gamma":
			if str, ok := v.(string); ok {
				s.Gamma, err = model.ParamChoice(k, str, GammaScale, GammaAuto)
			} else {
				var g float64
				g, err = model.ParamFloat(k, v)
				if err == nil && g <= 0 {
					err = errors.NewValidationError(k, "must be positive", v)
				}
				s.Gamma = g
			}
		case "degree":
			s.Degree, err = model.ParamInt(k, v)
		case "coef0":
			s.Coef0, err = model.ParamFloat(k, v)
		case "max_iter":
			s.MaxIter, err = model.ParamInt(k, v)
		case "tol":
			s.Tol, err = model.ParamFloat(k, v)
		default:
			err = model.UnknownParam("SVR", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
