// Package tree provides a CART regression tree that minimises squared error.
package tree

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/core/parallel"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// Node is one node of a fitted tree. Feature is -1 for leaves.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	NSamples  int
	Impurity  float64
}

// DecisionTreeRegressor is a binary regression tree grown greedily on the
// split that most reduces squared error. Samples go left when
// x[Feature] <= Threshold.
type DecisionTreeRegressor struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     uint64

	state       *model.StateManager
	nodes       []Node
	importances []float64
	depth       int

	logger log.Logger
}

// NewDecisionTreeRegressor returns an unlimited-depth tree with
// min_samples_split=2 and min_samples_leaf=1.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		MaxDepth:        -1,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		RandomState:     42,
		state:           model.NewStateManager(),
		logger:          log.GetLoggerWithName("tree.regressor"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ColumnMajor copies X into one slice per feature.
func ColumnMajor(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		col := make([]float64, r)
		for i := 0; i < r; i++ {
			col[i] = X.At(i, j)
		}
		cols[j] = col
	}
	return cols
}

// Fit grows the tree on every row of X.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")
	n, _, target, err := model.CheckXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	samples := make([]int, n)
	for i := range samples {
		samples[i] = i
	}
	return t.FitColumns(ColumnMajor(X), target, samples)
}

// FitColumns grows the tree on the given sample indices of column-major
// data. Indices may repeat, which is how bootstrap samples are passed in.
func (t *DecisionTreeRegressor) FitColumns(cols [][]float64, y []float64, samples []int) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.FitColumns")
	t.state.Reset()

	if len(cols) == 0 || len(samples) == 0 {
		return errors.NewValueError("DecisionTreeRegressor.Fit", "empty training data")
	}
	if t.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", t.MinSamplesLeaf)
	}
	if t.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", t.MinSamplesSplit)
	}

	b := &builder{
		cols:        cols,
		y:           y,
		maxDepth:    t.MaxDepth,
		minSplit:    t.MinSamplesSplit,
		minLeaf:     t.MinSamplesLeaf,
		maxFeatures: t.MaxFeatures,
		rng:         rand.New(rand.NewPCG(t.RandomState, t.RandomState^0x9e3779b97f4a7c15)),
		goLeft:      make([]bool, len(y)),
		buf:         make([]int, len(samples)),
		importances: make([]float64, len(cols)),
	}
	b.presort(samples)
	b.grow(0, len(samples), 0)

	var total float64
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for i := range b.importances {
			b.importances[i] /= total
		}
	}

	t.nodes = b.nodes
	t.importances = b.importances
	t.depth = b.depth
	t.state.MarkFitted(len(samples), len(cols))
	t.logger.Debug("fit complete", log.SamplesKey, len(samples), "nodes", len(t.nodes), "depth", t.depth)
	return nil
}

// PredictRow returns the leaf value for a single sample.
func (t *DecisionTreeRegressor) PredictRow(row []float64) float64 {
	i := 0
	for t.nodes[i].Feature >= 0 {
		n := &t.nodes[i]
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.nodes[i].Value
}

// Predict returns one leaf value per row of X.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := t.state.RequireFitted("DecisionTreeRegressor", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), 1, nil)
	parallel.ParallelizeWithThreshold(len(rows), 2048, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, t.PredictRow(rows[i]))
		}
	})
	return out, nil
}

// Score は R² を返す。
func (t *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.ScoreR2(t, X, y)
}

// FeatureImportances returns the normalised total squared-error reduction per feature.
func (t *DecisionTreeRegressor) FeatureImportances() []float64 {
	return append([]float64(nil), t.importances...)
}

// Depth returns the depth of the fitted tree; a single leaf has depth 0.
func (t *DecisionTreeRegressor) Depth() int { return t.depth }

// Nodes returns the fitted nodes; index 0 is the root.
func (t *DecisionTreeRegressor) Nodes() []Node { return t.nodes }

// GetParams implements model.ParameterGetter.
func (t *DecisionTreeRegressor) GetParams() model.Params {
	var depth any = t.MaxDepth
	if t.MaxDepth < 0 {
		depth = nil
	}
	return model.Params{
		"max_depth":         depth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"max_features":      t.MaxFeatures,
		"random_state":      int(t.RandomState),
	}
}

// SetParams implements model.ParameterSetter.
func (t *DecisionTreeRegressor) SetParams(params model.Params) error {
	for k, v := range params {
		var err error
		switch k {
		case "max_depth":
			t.MaxDepth, err = model.ParamOptionalInt(k, v)
		case "min_samples_split":
			t.MinSamplesSplit, err = model.ParamInt(k, v)
		case "min_samples_leaf":
			t.MinSamplesLeaf, err = model.ParamInt(k, v)
		case "max_features":
			t.MaxFeatures, err = model.ParamInt(k, v)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(k, v)
			t.RandomState = uint64(seed)
		default:
			err = model.UnknownParam("DecisionTreeRegressor", k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// builder grows a tree over per-feature sorted sample segments. Every
// feature's segment [start, end) holds the same multiset of samples, so a
// split only needs a stable partition of each segment.
type builder struct {
	cols        [][]float64
	y           []float64
	maxDepth    int
	minSplit    int
	minLeaf     int
	maxFeatures int
	rng         *rand.Rand

	sorted      [][]int
	goLeft      []bool
	buf         []int
	nodes       []Node
	importances []float64
	depth       int
}

func (b *builder) presort(samples []int) {
	b.sorted = make([][]int, len(b.cols))
	parallel.ForEach(len(b.cols), func(f int) {
		s := append([]int(nil), samples...)
		col := b.cols[f]
		sort.SliceStable(s, func(i, j int) bool { return col[s[i]] < col[s[j]] })
		b.sorted[f] = s
	})
}

type split struct {
	feature   int
	threshold float64
	nLeft     int
	gain      float64
}

func (b *builder) grow(start, end, depth int) int {
	n := end - start
	var sum, sumSq float64
	for _, s := range b.sorted[0][start:end] {
		v := b.y[s]
		sum += v
		sumSq += v * v
	}
	mean := sum / float64(n)
	impurity := sumSq/float64(n) - mean*mean
	if impurity < 0 {
		impurity = 0
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: mean, NSamples: n, Impurity: impurity})
	if depth > b.depth {
		b.depth = depth
	}

	if (b.maxDepth >= 0 && depth >= b.maxDepth) || n < b.minSplit || n < 2*b.minLeaf || impurity <= 1e-14 {
		return id
	}
	best, ok := b.bestSplit(start, end, sum)
	if !ok {
		return id
	}

	b.partition(start, end, best)
	b.importances[best.feature] += best.gain

	left := b.grow(start, start+best.nLeft, depth+1)
	right := b.grow(start+best.nLeft, end, depth+1)
	b.nodes[id].Feature = best.feature
	b.nodes[id].Threshold = best.threshold
	b.nodes[id].Left = left
	b.nodes[id].Right = right
	return id
}

func (b *builder) candidateFeatures() []int {
	d := len(b.cols)
	if b.maxFeatures <= 0 || b.maxFeatures >= d {
		features := make([]int, d)
		for i := range features {
			features[i] = i
		}
		return features
	}
	return b.rng.Perm(d)[:b.maxFeatures]
}

// bestSplit scans every candidate feature and returns the split with the
// largest squared-error reduction. Ties keep the first feature scanned.
func (b *builder) bestSplit(start, end int, sum float64) (split, bool) {
	n := end - start
	parent := sum * sum / float64(n)
	best := split{gain: 0}
	found := false

	for _, f := range b.candidateFeatures() {
		seg := b.sorted[f][start:end]
		col := b.cols[f]
		var sumLeft float64
		for k := 0; k < n-1; k++ {
			sumLeft += b.y[seg[k]]
			nLeft := k + 1
			x, next := col[seg[k]], col[seg[k+1]]
			if x == next {
				continue
			}
			if nLeft < b.minLeaf || n-nLeft < b.minLeaf {
				continue
			}
			sumRight := sum - sumLeft
			proxy := sumLeft*sumLeft/float64(nLeft) + sumRight*sumRight/float64(n-nLeft)
			gain := proxy - parent
			if !found || gain > best.gain {
				threshold := x + (next-x)/2
				if threshold >= next {
					threshold = x
				}
				best = split{feature: f, threshold: threshold, nLeft: nLeft, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

// partition stably reorders every feature segment so that samples going
// left come first.
func (b *builder) partition(start, end int, s split) {
	col := b.cols[s.feature]
	for _, idx := range b.sorted[s.feature][start:end] {
		b.goLeft[idx] = col[idx] <= s.threshold
	}
	for f := range b.sorted {
		seg := b.sorted[f][start:end]
		l, r := 0, len(seg)-1
		tmp := b.buf[:len(seg)]
		for _, idx := range seg {
			if b.goLeft[idx] {
				tmp[l] = idx
				l++
			}
		}
		for i := len(seg) - 1; i >= 0; i-- {
			if !b.goLeft[seg[i]] {
				tmp[r] = seg[i]
				r--
			}
		}
		copy(seg, tmp)
	}
}
