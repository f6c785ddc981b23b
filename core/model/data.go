package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/metrics"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// CheckXY validates a training pair and returns its shape together with y
// as a flat slice. y may be a *mat.VecDense or any n×1 matrix.
func CheckXY(op string, X, y mat.Matrix) (rows, cols int, target []float64, err error) {
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, nil, errors.NewValueError(op, "empty feature matrix")
	}
	target, err = Column(op, y)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(target) != rows {
		return 0, 0, nil, errors.NewDimensionError(op, rows, len(target), 0)
	}
	return rows, cols, target, nil
}

// Column flattens an n×1 matrix or vector into a new slice.
func Column(op string, y mat.Matrix) ([]float64, error) {
	if v, ok := y.(mat.Vector); ok {
		out := make([]float64, v.Len())
		for i := range out {
			out[i] = v.AtVec(i)
		}
		return out, nil
	}
	r, c := y.Dims()
	if c != 1 {
		return nil, errors.NewDimensionError(op, 1, c, 1)
	}
	out := make([]float64, r)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out, nil
}

// Rows copies X into row-major slices for estimators that scan samples.
func Rows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	out := make([][]float64, r)
	if d, ok := X.(*mat.Dense); ok {
		for i := 0; i < r; i++ {
			row := make([]float64, c)
			copy(row, d.RawRowView(i))
			out[i] = row
		}
		return out
	}
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		out[i] = row
	}
	return out
}

// ScoreR2 predicts X with p and returns R² against y.
func ScoreR2(p Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := Column("Score", y)
	if err != nil {
		return 0, err
	}
	yPred, err := Column("Score", pred)
	if err != nil {
		return 0, err
	}
	if len(yTrue) == 0 {
		return 0, errors.NewValueError("Score", "empty target")
	}
	return metrics.R2ScoreFinite(mat.NewVecDense(len(yTrue), yTrue), mat.NewVecDense(len(yPred), yPred))
}
