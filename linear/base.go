// Package linear は線形回帰系のモデル (LinearRegression, Ridge, Lasso,
// ElasticNet) を提供する。いずれも切片を中心化で扱い、係数と切片を分けて保持する。
package linear

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/core/parallel"
)

// coefficients is the fitted state shared by every linear estimator.
type coefficients struct {
	state     *model.StateManager
	coef      []float64
	intercept float64
}

// Coef returns a copy of the fitted weights.
func (c *coefficients) Coef() []float64 {
	out := make([]float64, len(c.coef))
	copy(out, c.coef)
	return out
}

// Intercept returns the fitted intercept.
func (c *coefficients) Intercept() float64 {
	return c.intercept
}

func (c *coefficients) predict(name string, X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.RequireFitted(name, X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	rows := model.Rows(X)
	out := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, 1000, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, floats.Dot(rows[i], c.coef)+c.intercept)
		}
	})
	return out, nil
}

// design holds a column-major, optionally centred copy of the training data.
type design struct {
	n, d  int
	cols  [][]float64
	y     []float64
	xMean []float64
	yMean float64
}

func newDesign(X mat.Matrix, y []float64, fitIntercept bool) *design {
	n, d := X.Dims()
	ds := &design{n: n, d: d, cols: make([][]float64, d), y: make([]float64, n), xMean: make([]float64, d)}
	for j := 0; j < d; j++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = X.At(i, j)
		}
		ds.cols[j] = col
	}
	copy(ds.y, y)
	if !fitIntercept {
		return ds
	}
	for j, col := range ds.cols {
		m := floats.Sum(col) / float64(n)
		ds.xMean[j] = m
		floats.AddConst(-m, col)
	}
	ds.yMean = floats.Sum(ds.y) / float64(n)
	floats.AddConst(-ds.yMean, ds.y)
	return ds
}

// dense returns the (centred) design matrix.
func (ds *design) dense() *mat.Dense {
	m := mat.NewDense(ds.n, ds.d, nil)
	for j, col := range ds.cols {
		m.SetCol(j, col)
	}
	return m
}

// intercept recovers the intercept for coef fitted on centred data.
func (ds *design) intercept(coef []float64) float64 {
	return ds.yMean - floats.Dot(ds.xMean, coef)
}
