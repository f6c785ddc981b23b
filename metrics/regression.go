// Package metrics は回帰モデルの評価指標を提供する。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE は平均二乗誤差を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return sumSquaredResiduals(yTrue, yPred) / float64(n), nil
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数 R² = 1 - RSS/TSS を計算する。
// 目的変数の分散がゼロの場合は定義できないため ValueError を返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}
	tss := totalSumOfSquares(yTrue)
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (constant target)")
	}
	return 1 - sumSquaredResiduals(yTrue, yPred)/tss, nil
}

// R2ScoreFinite は R2Score と同じだが、目的変数が定数の場合も値を返す。
// 完全一致なら 1、それ以外は 0 とする。交差検証の fold のように小さな
// 部分集合を評価する場面で使う。
func R2ScoreFinite(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}
	rss := sumSquaredResiduals(yTrue, yPred)
	tss := totalSumOfSquares(yTrue)
	if tss == 0 {
		if rss == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - rss/tss, nil
}

func sumSquaredResiduals(yTrue, yPred *mat.VecDense) float64 {
	var sum float64
	for i := 0; i < yTrue.Len(); i++ {
		d := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += d * d
	}
	return sum
}

func totalSumOfSquares(yTrue *mat.VecDense) float64 {
	values := yTrue.RawVector().Data
	if yTrue.RawVector().Inc != 1 {
		values = make([]float64, yTrue.Len())
		for i := range values {
			values[i] = yTrue.AtVec(i)
		}
	}
	mean := stat.Mean(values, nil)
	var tss float64
	for _, v := range values {
		d := v - mean
		tss += d * d
	}
	return tss
}

// MeanStd returns the mean and population standard deviation of scores,
// as reported for cross-validation folds.
func MeanStd(scores []float64) (mean, std float64) {
	switch len(scores) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return scores[0], 0
	}
	return stat.PopMeanStdDev(scores, nil)
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	return scalar.Round(x, places)
}

func errEmpty(op string) error { return errors.NewValueError(op, "empty vector") }

func errDim(op string, want, got int) error { return errors.NewDimensionError(op, want, got, 0) }
