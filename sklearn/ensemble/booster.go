package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/core/parallel"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
	"github.com/mirzakinn/sales-prediction/sklearn/tree"
)

// boostConfig configures the gradient boosted regressor.
type boostConfig struct {
	nEstimators  int
	learningRate float64
	subsample    float64
	maxBin       int
	seed         uint64
	tree         treeParams
}

// booster is a fitted additive model of histogram trees under squared loss.
type booster struct {
	baseScore    float64
	learningRate float64
	trees        []*histTree
	nFeatures    int
}

func (c boostConfig) validate(op string) error {
	if c.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", c.nEstimators)
	}
	if c.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", c.learningRate)
	}
	if c.subsample <= 0 || c.subsample > 1 {
		return errors.NewValidationError("subsample", "must be in (0, 1]", c.subsample)
	}
	if c.tree.lambda < 0 {
		return errors.NewValidationError("reg_lambda", "must be non-negative", c.tree.lambda)
	}
	return nil
}

// fitBooster runs the boosting loop. Gradients of squared loss are
// pred - y with unit hessians.
func fitBooster(op string, cfg boostConfig, X, y mat.Matrix, logger log.Logger) (*booster, error) {
	if err := cfg.validate(op); err != nil {
		return nil, err
	}
	n, d, target, err := model.CheckXY(op, X, y)
	if err != nil {
		return nil, err
	}

	cols := tree.ColumnMajor(X)
	bins := newBinMapper(cols, cfg.maxBin)
	binned := bins.transform(cols)

	b := &booster{
		baseScore:    stat.Mean(target, nil),
		learningRate: cfg.learningRate,
		trees:        make([]*histTree, 0, cfg.nEstimators),
		nFeatures:    d,
	}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = b.baseScore
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	for i := range hess {
		hess[i] = 1
	}

	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x5851f42d4c957f2d))
	sampleSize := n
	if cfg.subsample < 1 {
		sampleSize = max(1, int(cfg.subsample*float64(n)))
	}
	indices := make([]int, n)

	for iter := 0; iter < cfg.nEstimators; iter++ {
		for i := range grad {
			grad[i] = pred[i] - target[i]
		}
		if sampleSize < n {
			perm := rng.Perm(n)
			indices = indices[:sampleSize]
			copy(indices, perm[:sampleSize])
		} else {
			indices = indices[:n]
			for i := range indices {
				indices[i] = i
			}
		}

		t := growTree(cfg.tree, bins, binned, grad, hess, indices)
		if err := errors.CheckFinite(op, iter, t.nodes[0].Value); err != nil {
			return nil, err
		}
		for k := range t.nodes {
			t.nodes[k].Value *= cfg.learningRate
		}
		b.trees = append(b.trees, t)

		parallel.ParallelizeWithThreshold(n, 4096, func(start, end int) {
			for i := start; i < end; i++ {
				pred[i] += t.predictBinned(binned, i)
			}
		})
	}

	logger.Debug("boosting complete",
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.IterationKey, len(b.trees),
	)
	return b, nil
}

func (b *booster) predictRow(row []float64) float64 {
	out := b.baseScore
	for _, t := range b.trees {
		out += t.predictRow(row)
	}
	return out
}

func (b *booster) predict(X mat.Matrix) *mat.Dense {
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), 1, nil)
	parallel.ParallelizeWithThreshold(len(rows), 1024, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, b.predictRow(rows[i]))
		}
	})
	return out
}

// gainImportances sums split gains per feature, normalised to 1.
func (b *booster) gainImportances() []float64 {
	imp := make([]float64, b.nFeatures)
	var total float64
	for _, t := range b.trees {
		for _, n := range t.nodes {
			if n.Feature >= 0 {
				imp[n.Feature] += n.Gain
				total += n.Gain
			}
		}
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return imp
}
