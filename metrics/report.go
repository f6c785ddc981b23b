package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Report holds the test-set metrics shown for every trial.
type Report struct {
	R2   float64 `json:"r2"`
	MSE  float64 `json:"mse"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`

	// Accuracy is R² expressed as a percentage rounded to one decimal,
	// the figure shown to end users.
	Accuracy float64 `json:"accuracy"`
}

// Evaluate computes every metric of Report in one pass over the inputs.
// A constant yTrue is not an error here: R² falls back to R2ScoreFinite.
func Evaluate(yTrue, yPred []float64) (Report, error) {
	if len(yTrue) == 0 {
		return Report{}, errEmpty("Evaluate")
	}
	if len(yPred) != len(yTrue) {
		return Report{}, errDim("Evaluate", len(yTrue), len(yPred))
	}
	t := mat.NewVecDense(len(yTrue), yTrue)
	p := mat.NewVecDense(len(yPred), yPred)

	mse, err := MSE(t, p)
	if err != nil {
		return Report{}, err
	}
	mae, err := MAE(t, p)
	if err != nil {
		return Report{}, err
	}
	r2, err := R2ScoreFinite(t, p)
	if err != nil {
		return Report{}, err
	}
	rmse, err := RMSE(t, p)
	if err != nil {
		return Report{}, err
	}
	return Report{
		R2:       r2,
		MSE:      mse,
		MAE:      mae,
		RMSE:     rmse,
		Accuracy: Round(r2*100, 1),
	}, nil
}

// Finite reports whether every metric is a finite number. Non-finite
// predictions propagate into all of them.
func (r Report) Finite() bool {
	for _, v := range []float64{r.R2, r.MSE, r.MAE, r.RMSE} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// String renders the report on one line.
func (r Report) String() string {
	return fmt.Sprintf("r2=%.4f rmse=%.4f mae=%.4f mse=%.4f accuracy=%.1f%%", r.R2, r.RMSE, r.MAE, r.MSE, r.Accuracy)
}
