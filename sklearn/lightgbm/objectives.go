package lightgbm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// ObjectiveFunction supplies the first and second derivatives of a loss with
// respect to the raw score, plus the constant score boosting starts from.
type ObjectiveFunction interface {
	CalculateGradient(prediction, target float64) float64
	CalculateHessian(prediction, target float64) float64
	CalculateLoss(prediction, target float64) float64
	GetInitScore(targets []float64) float64
	Name() ObjectiveType
}

// L2Objective is squared error.
type L2Objective struct{}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(_, _ float64) float64 { return 1 }

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	return stat.Mean(targets, nil)
}

func (o *L2Objective) Name() ObjectiveType { return RegressionL2 }

// L1Objective is absolute error. The hessian is held at 1 so leaf values
// become a damped step toward the median.
type L1Objective struct {
	epsilon float64
}

func (o *L1Objective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	if math.Abs(diff) < o.epsilon {
		return 0
	}
	if diff > 0 {
		return 1
	}
	return -1
}

func (o *L1Objective) CalculateHessian(_, _ float64) float64 { return 1 }

func (o *L1Objective) CalculateLoss(prediction, target float64) float64 {
	return math.Abs(prediction - target)
}

func (o *L1Objective) GetInitScore(targets []float64) float64 {
	return calculateQuantile(targets, 0.5)
}

func (o *L1Objective) Name() ObjectiveType { return RegressionL1 }

// HuberObjective is quadratic within delta of the target and linear outside.
type HuberObjective struct {
	delta float64
}

func (o *HuberObjective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	if math.Abs(diff) <= o.delta {
		return diff
	}
	return math.Copysign(o.delta, diff)
}

// CalculateHessian is 1 everywhere. The true hessian vanishes outside delta,
// which would blow up -G/H leaf values.
func (o *HuberObjective) CalculateHessian(_, _ float64) float64 { return 1 }

func (o *HuberObjective) CalculateLoss(prediction, target float64) float64 {
	diff := math.Abs(prediction - target)
	if diff <= o.delta {
		return 0.5 * diff * diff
	}
	return o.delta * (diff - 0.5*o.delta)
}

func (o *HuberObjective) GetInitScore(targets []float64) float64 {
	return stat.Mean(targets, nil)
}

func (o *HuberObjective) Name() ObjectiveType { return RegressionHuber }

// QuantileObjective is the pinball loss at level alpha.
type QuantileObjective struct {
	alpha float64
}

func (o *QuantileObjective) CalculateGradient(prediction, target float64) float64 {
	switch diff := prediction - target; {
	case diff > 0:
		return 1 - o.alpha
	case diff < 0:
		return -o.alpha
	}
	return 0
}

func (o *QuantileObjective) CalculateHessian(_, _ float64) float64 { return 1 }

func (o *QuantileObjective) CalculateLoss(prediction, target float64) float64 {
	diff := target - prediction
	if diff >= 0 {
		return o.alpha * diff
	}
	return (o.alpha - 1) * diff
}

func (o *QuantileObjective) GetInitScore(targets []float64) float64 {
	return calculateQuantile(targets, o.alpha)
}

func (o *QuantileObjective) Name() ObjectiveType { return RegressionQuantile }

// FairObjective is c²(|r|/c - log(1+|r|/c)), a smooth robust loss.
type FairObjective struct {
	c float64
}

func (o *FairObjective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	return o.c * diff / (math.Abs(diff) + o.c)
}

func (o *FairObjective) CalculateHessian(prediction, target float64) float64 {
	d := math.Abs(prediction-target) + o.c
	return o.c * o.c / (d * d)
}

func (o *FairObjective) CalculateLoss(prediction, target float64) float64 {
	diff := math.Abs(prediction - target)
	return o.c * o.c * (diff/o.c - math.Log1p(diff/o.c))
}

func (o *FairObjective) GetInitScore(targets []float64) float64 {
	return calculateQuantile(targets, 0.5)
}

func (o *FairObjective) Name() ObjectiveType { return RegressionFair }

// PoissonObjective models log(E[y]); the predictor exponentiates raw scores.
// Targets must be non-negative.
type PoissonObjective struct {
	maxOutputExp float64
}

func (o *PoissonObjective) exp(raw float64) float64 {
	return math.Exp(math.Min(raw, o.maxOutputExp))
}

func (o *PoissonObjective) CalculateGradient(prediction, target float64) float64 {
	return o.exp(prediction) - target
}

func (o *PoissonObjective) CalculateHessian(prediction, _ float64) float64 {
	return o.exp(prediction)
}

func (o *PoissonObjective) CalculateLoss(prediction, target float64) float64 {
	return o.exp(prediction) - target*prediction
}

func (o *PoissonObjective) GetInitScore(targets []float64) float64 {
	mean := stat.Mean(targets, nil)
	if mean <= 0 {
		return -10
	}
	return math.Log(mean)
}

func (o *PoissonObjective) Name() ObjectiveType { return RegressionPoisson }

// CreateObjectiveFunction builds the objective named in params. "mae" is an
// alias of regression_l1, and "" of regression.
func CreateObjectiveFunction(params *TrainingParams) (ObjectiveFunction, error) {
	switch ObjectiveType(params.Objective) {
	case "", RegressionL2, "l2", "mse":
		return &L2Objective{}, nil
	case RegressionL1, "l1", "mae":
		return &L1Objective{epsilon: 1e-7}, nil
	case RegressionHuber:
		delta := params.HuberDelta
		if delta <= 0 {
			delta = 1
		}
		return &HuberObjective{delta: delta}, nil
	case RegressionQuantile:
		alpha := params.QuantileAlpha
		if alpha <= 0 || alpha >= 1 {
			return nil, errors.NewValidationError("alpha", "must be in (0, 1) for quantile", alpha)
		}
		return &QuantileObjective{alpha: alpha}, nil
	case RegressionFair:
		c := params.FairC
		if c <= 0 {
			c = 1
		}
		return &FairObjective{c: c}, nil
	case RegressionPoisson:
		return &PoissonObjective{maxOutputExp: 700}, nil
	default:
		return nil, errors.NewValidationError("objective", "unsupported regression objective", params.Objective)
	}
}

// calculateQuantile returns the linearly interpolated q-quantile of values.
func calculateQuantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return floats.Max(sorted)
	}
	return stat.Quantile(q, stat.LinInterp, sorted, nil)
}
