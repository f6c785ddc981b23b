package lightgbm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/core/parallel"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// Predictor evaluates a trained Model.
type Predictor struct {
	model     *Model
	transform func(float64) float64
	epsilon   float64
}

// NewPredictor returns a predictor that maps raw scores back to the target
// scale of the model's objective.
func NewPredictor(m *Model) *Predictor {
	p := &Predictor{model: m, epsilon: 1e-15, transform: func(raw float64) float64 { return raw }}
	if m.Objective == RegressionPoisson {
		p.transform = func(raw float64) float64 { return math.Exp(math.Min(raw, 700)) }
	}
	return p
}

// Predict returns an n×1 matrix of predictions.
func (p *Predictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	_, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("lightgbm.Predictor.Predict", p.model.NumFeatures, cols, 1)
	}
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), 1, nil)
	parallel.ParallelizeWithThreshold(len(rows), 1024, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, p.transform(p.PredictRaw(rows[i])))
		}
	})
	return out, nil
}

// PredictRaw returns the untransformed score of one row: the initial score
// plus every tree's output.
func (p *Predictor) PredictRaw(features []float64) float64 {
	raw := p.model.InitScore
	for i := range p.model.Trees {
		raw = p.ensurePrecision(raw + p.model.Trees[i].Predict(features))
	}
	return raw
}

// PredictLeafIndex returns, per row, the node index of the leaf reached in
// each tree.
func (p *Predictor) PredictLeafIndex(X mat.Matrix) ([][]int, error) {
	_, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("lightgbm.Predictor.PredictLeafIndex", p.model.NumFeatures, cols, 1)
	}
	rows := model.Rows(X)
	out := make([][]int, len(rows))
	for i, row := range rows {
		out[i] = make([]int, len(p.model.Trees))
		for k := range p.model.Trees {
			out[i][k] = traverseToLeaf(&p.model.Trees[k], row)
		}
	}
	return out, nil
}

func traverseToLeaf(t *Tree, features []float64) int {
	nodeID := 0
	for !t.Nodes[nodeID].IsLeaf() {
		n := &t.Nodes[nodeID]
		if features[n.SplitFeature] <= n.Threshold {
			nodeID = n.LeftChild
		} else {
			nodeID = n.RightChild
		}
	}
	return nodeID
}

// ensurePrecision flushes values below epsilon to zero.
func (p *Predictor) ensurePrecision(x float64) float64 {
	if math.Abs(x) < p.epsilon {
		return 0
	}
	return x
}
