package lightgbm

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/core/parallel"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
	"github.com/mirzakinn/sales-prediction/sklearn/tree"
)

// TrainingParams are the booster hyperparameters in LightGBM's own naming.
type TrainingParams struct {
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"`
	MaxDepth      int     `json:"max_depth"` // <= 0 means unlimited
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	Lambda              float64 `json:"lambda_l2"`
	Alpha               float64 `json:"lambda_l1"`
	MinGainToSplit      float64 `json:"min_gain_to_split"`
	MinSumHessianInLeaf float64 `json:"min_sum_hessian_in_leaf"`

	BaggingFraction float64 `json:"bagging_fraction"`
	FeatureFraction float64 `json:"feature_fraction"`
	MaxBin          int     `json:"max_bin"`

	Objective     string  `json:"objective"`
	HuberDelta    float64 `json:"huber_delta"`
	QuantileAlpha float64 `json:"quantile_alpha"`
	FairC         float64 `json:"fair_c"`

	Seed int `json:"seed"`
}

// Trainer grows one leaf-wise tree per iteration on the gradients of the
// current raw scores.
type Trainer struct {
	params TrainingParams

	rows    [][]float64
	targets []float64

	histograms *HistogramBuilder
	objective  ObjectiveFunction
	initScore  float64

	gradients   []float64
	hessians    []float64
	predictions []float64

	trees     []Tree
	iteration int
	rng       *rand.Rand
	logger    log.Logger
}

// NewTrainer fills unset params with LightGBM's defaults.
func NewTrainer(params TrainingParams) *Trainer {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.NumLeaves == 0 {
		params.NumLeaves = 31
	}
	if params.MaxBin == 0 {
		params.MaxBin = 255
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 20
	}
	if params.BaggingFraction == 0 {
		params.BaggingFraction = 1
	}
	if params.FeatureFraction == 0 {
		params.FeatureFraction = 1
	}
	seed := uint64(params.Seed)
	return &Trainer{
		params: params,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger: log.GetLoggerWithName("lightgbm.trainer"),
	}
}

func (t *Trainer) validate() error {
	p := t.params
	switch {
	case p.NumIterations < 1:
		return errors.NewValidationError("n_estimators", "must be at least 1", p.NumIterations)
	case p.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	case p.NumLeaves < 2:
		return errors.NewValidationError("num_leaves", "must be at least 2", p.NumLeaves)
	case p.BaggingFraction <= 0 || p.BaggingFraction > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", p.BaggingFraction)
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", p.FeatureFraction)
	case p.Lambda < 0:
		return errors.NewValidationError("reg_lambda", "must be non-negative", p.Lambda)
	case p.Alpha < 0:
		return errors.NewValidationError("reg_alpha", "must be non-negative", p.Alpha)
	}
	return nil
}

// Fit runs the boosting loop on X, y.
func (t *Trainer) Fit(X, y mat.Matrix) error {
	const op = "lightgbm.Trainer.Fit"
	if err := t.validate(); err != nil {
		return err
	}
	n, d, targets, err := model.CheckXY(op, X, y)
	if err != nil {
		return err
	}
	objective, err := CreateObjectiveFunction(&t.params)
	if err != nil {
		return err
	}
	if objective.Name() == RegressionPoisson {
		for _, v := range targets {
			if v < 0 {
				return errors.NewValidationError("objective", "poisson needs non-negative targets", v)
			}
		}
	}

	t.objective = objective
	t.rows = model.Rows(X)
	t.targets = targets
	t.histograms = NewHistogramBuilder(&t.params)
	t.histograms.Bin(tree.ColumnMajor(X))
	t.initScore = objective.GetInitScore(targets)
	t.gradients = make([]float64, n)
	t.hessians = make([]float64, n)
	t.predictions = make([]float64, n)
	for i := range t.predictions {
		t.predictions[i] = t.initScore
	}
	t.trees = make([]Tree, 0, t.params.NumIterations)

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter
		t.calculateGradients()
		tr := t.buildTree(t.bag(n), t.featureSubset(d))
		t.trees = append(t.trees, tr)
		t.updatePredictions(&tr)

		if err := errors.CheckFinite(op, iter, t.calculateLoss()); err != nil {
			return err
		}
	}

	t.logger.Debug("boosting complete",
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.IterationKey, len(t.trees),
		"objective", string(objective.Name()),
		"loss", t.calculateLoss(),
	)
	return nil
}

func (t *Trainer) calculateGradients() {
	parallel.ParallelizeWithThreshold(len(t.targets), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			t.gradients[i] = t.objective.CalculateGradient(t.predictions[i], t.targets[i])
			t.hessians[i] = t.objective.CalculateHessian(t.predictions[i], t.targets[i])
		}
	})
}

// bag returns the rows this iteration trains on.
func (t *Trainer) bag(n int) []int {
	if t.params.BaggingFraction >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	size := max(1, int(t.params.BaggingFraction*float64(n)))
	return t.rng.Perm(n)[:size]
}

// featureSubset returns the features this iteration may split on.
func (t *Trainer) featureSubset(d int) []int {
	if t.params.FeatureFraction >= 1 {
		idx := make([]int, d)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	size := max(1, int(t.params.FeatureFraction*float64(d)))
	return t.rng.Perm(d)[:size]
}

// leaf is a leaf of the tree under construction.
type leaf struct {
	node       int
	indices    []int
	depth      int
	histograms []FeatureHistogram
	split      SplitInfo
}

// buildTree grows leaf-wise: it always splits the leaf with the largest
// gain until NumLeaves is reached or no leaf can be split.
func (t *Trainer) buildTree(indices, features []int) Tree {
	hb := t.histograms
	tr := Tree{TreeIndex: t.iteration, ShrinkageRate: t.params.LearningRate}

	var sg, sh float64
	for _, i := range indices {
		sg += t.gradients[i]
		sh += t.hessians[i]
	}
	root := t.newLeaf(&tr, -1, indices, 0, sg, sh, hb.BuildHistograms(indices, features, t.gradients, t.hessians))
	open := []*leaf{root}
	numLeaves := 1

	for numLeaves < t.params.NumLeaves {
		pick := -1
		for k, l := range open {
			if l.split.Valid() && (pick < 0 || l.split.Gain > open[pick].split.Gain) {
				pick = k
			}
		}
		if pick < 0 {
			break
		}
		parent := open[pick]
		open = append(open[:pick], open[pick+1:]...)

		left, right := t.splitLeaf(&tr, parent, features)
		open = append(open, left, right)
		numLeaves++
	}

	tr.NumLeaves = numLeaves
	return tr
}

// newLeaf appends a leaf node and, unless the depth limit is reached,
// searches its best split.
func (t *Trainer) newLeaf(tr *Tree, parent int, indices []int, depth int, sumGrad, sumHess float64, hists []FeatureHistogram) *leaf {
	id := len(tr.Nodes)
	tr.Nodes = append(tr.Nodes, Node{
		NodeID:     id,
		ParentID:   parent,
		LeftChild:  -1,
		RightChild: -1,
		NodeType:   LeafNode,
		LeafValue:  t.histograms.LeafValue(sumGrad, sumHess),
		LeafCount:  len(indices),
	})
	l := &leaf{node: id, indices: indices, depth: depth, histograms: hists}
	if t.params.MaxDepth <= 0 || depth < t.params.MaxDepth {
		l.split = t.histograms.FindBestSplit(hists, sumGrad, sumHess, len(indices))
	}
	return l
}

// splitLeaf partitions parent's rows and turns its node into a split node.
// Only the smaller child's histograms are built; the larger one's come from
// subtraction.
func (t *Trainer) splitLeaf(tr *Tree, parent *leaf, features []int) (*leaf, *leaf) {
	split := parent.split
	leftIdx := make([]int, 0, split.LeftCount)
	rightIdx := make([]int, 0, split.RightCount)
	for _, i := range parent.indices {
		if t.histograms.GoesLeft(split, i) {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	var leftHist, rightHist []FeatureHistogram
	if len(leftIdx) <= len(rightIdx) {
		leftHist = t.histograms.BuildHistograms(leftIdx, features, t.gradients, t.hessians)
		rightHist = t.histograms.HistogramSubtraction(parent.histograms, leftHist)
	} else {
		rightHist = t.histograms.BuildHistograms(rightIdx, features, t.gradients, t.hessians)
		leftHist = t.histograms.HistogramSubtraction(parent.histograms, rightHist)
	}
	parent.histograms = nil

	left := t.newLeaf(tr, parent.node, leftIdx, parent.depth+1, split.LeftGrad, split.LeftHess, leftHist)
	right := t.newLeaf(tr, parent.node, rightIdx, parent.depth+1, split.RightGrad, split.RightHess, rightHist)

	node := &tr.Nodes[parent.node]
	node.NodeType = NumericalNode
	node.SplitFeature = split.Feature
	node.Threshold = split.Threshold
	node.Gain = split.Gain
	node.LeftChild = left.node
	node.RightChild = right.node
	return left, right
}

// updatePredictions adds the new tree's output to the cached raw scores of
// every row, bagged or not.
func (t *Trainer) updatePredictions(tr *Tree) {
	parallel.ParallelizeWithThreshold(len(t.rows), 4096, func(start, end int) {
		for i := start; i < end; i++ {
			t.predictions[i] += tr.Predict(t.rows[i])
		}
	})
}

func (t *Trainer) calculateLoss() float64 {
	var loss float64
	for i, target := range t.targets {
		loss += t.objective.CalculateLoss(t.predictions[i], target)
	}
	return loss / float64(len(t.targets))
}

// GetModel returns the trained model.
func (t *Trainer) GetModel() *Model {
	m := NewModel()
	m.Trees = t.trees
	m.NumIteration = len(t.trees)
	if len(t.rows) > 0 {
		m.NumFeatures = len(t.rows[0])
	}
	m.Objective = t.objective.Name()
	m.LearningRate = t.params.LearningRate
	m.NumLeaves = t.params.NumLeaves
	m.MaxDepth = t.params.MaxDepth
	m.InitScore = t.initScore
	return m
}
