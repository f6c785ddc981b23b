// Package neighbors provides k-nearest-neighbour regression.
package neighbors

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/core/parallel"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// Weighting schemes.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// Neighbour search strategies. ball_tree is answered by the kd-tree index.
const (
	AlgorithmAuto     = "auto"
	AlgorithmBrute    = "brute"
	AlgorithmKDTree   = "kd_tree"
	AlgorithmBallTree = "ball_tree"
)

// autoTreeMaxFeatures is the widest input for which auto picks the kd-tree.
const autoTreeMaxFeatures = 15

// KNeighborsRegressor predicts the (weighted) mean target of the k nearest
// training rows under Euclidean distance.
type KNeighborsRegressor struct {
	NNeighbors int
	Weights    string
	Algorithm  string

	state *model.StateManager
	rows  [][]float64
	y     []float64
	tree  *kdTree

	logger log.Logger
}

// NewKNeighborsRegressor returns a regressor with n_neighbors=5, uniform weights.
func NewKNeighborsRegressor() *KNeighborsRegressor {
	return &KNeighborsRegressor{
		NNeighbors: 5,
		Weights:    WeightsUniform,
		Algorithm:  AlgorithmAuto,
		state:      model.NewStateManager(),
		logger:     log.GetLoggerWithName("neighbors.knn"),
	}
}

// Fit stores the training data and builds the search index.
func (k *KNeighborsRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "KNeighborsRegressor.Fit")
	k.state.Reset()

	n, d, target, err := model.CheckXY("KNeighborsRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if k.NNeighbors <= 0 {
		return errors.NewValidationError("n_neighbors", "must be positive", k.NNeighbors)
	}
	if k.NNeighbors > n {
		return errors.NewValidationError("n_neighbors", "exceeds the number of training samples", k.NNeighbors)
	}
	k.rows = model.Rows(X)
	k.y = target
	k.tree = nil
	if k.useTree(d) {
		k.tree = buildKDTree(k.rows)
	}
	k.state.MarkFitted(n, d)
	k.logger.Debug("fit complete", log.SamplesKey, n, log.FeaturesKey, d, "index", k.tree != nil)
	return nil
}

func (k *KNeighborsRegressor) useTree(d int) bool {
	switch k.Algorithm {
	case AlgorithmKDTree, AlgorithmBallTree:
		return true
	case AlgorithmBrute:
		return false
	default:
		return d <= autoTreeMaxFeatures
	}
}

// Predict runs neighbour queries for every row in parallel.
func (k *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := k.state.RequireFitted("KNeighborsRegressor", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), 1, nil)
	parallel.ParallelizeWithThreshold(len(rows), 64, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, k.predictOne(rows[i]))
		}
	})
	return out, nil
}

func (k *KNeighborsRegressor) neighbors(x []float64) []neighbor {
	if k.tree != nil {
		return k.tree.query(x, k.NNeighbors)
	}
	h := make(maxHeap, 0, k.NNeighbors+1)
	for i, r := range k.rows {
		h.offer(neighbor{index: i, dist2: squaredDistance(x, r)}, k.NNeighbors)
	}
	return h.sorted()
}

func (k *KNeighborsRegressor) predictOne(x []float64) float64 {
	nbrs := k.neighbors(x)
	if k.Weights != WeightsDistance {
		var sum float64
		for _, n := range nbrs {
			sum += k.y[n.index]
		}
		return sum / float64(len(nbrs))
	}

	// Exact matches take all the weight.
	var exact, exactCount float64
	for _, n := range nbrs {
		if n.dist2 == 0 {
			exact += k.y[n.index]
			exactCount++
		}
	}
	if exactCount > 0 {
		return exact / exactCount
	}
	var num, den float64
	for _, n := range nbrs {
		w := 1 / math.Sqrt(n.dist2)
		num += w * k.y[n.index]
		den += w
	}
	return num / den
}

// Score は R² を返す。
func (k *KNeighborsRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(k, X, y)
}

// GetParams implements model.ParameterGetter.
func (k *KNeighborsRegressor) GetParams() model.Params {
	return model.Params{"n_neighbors": k.NNeighbors, "weights": k.Weights, "algorithm": k.Algorithm}
}

// SetParams implements model.ParameterSetter.
func (k *KNeighborsRegressor) SetParams(params model.Params) error {
	for name, v := range params {
		var err error
		switch name {
		case "n_neighbors":
			k.NNeighbors, err = model.ParamInt(name, v)
		case "weights":
			k.Weights, err = model.ParamChoice(name, v, WeightsUniform, WeightsDistance)
		case "algorithm":
			k.Algorithm, err = model.ParamChoice(name, v, AlgorithmAuto, AlgorithmBrute, AlgorithmKDTree, AlgorithmBallTree)
		default:
			err = model.UnknownParam("KNeighborsRegressor", name, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
