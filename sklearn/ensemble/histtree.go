package ensemble

import (
	"github.com/mirzakinn/sales-prediction/core/parallel"
)

// treeParams bounds the growth of one depth-wise histogram tree.
type treeParams struct {
	maxDepth        int // <= 0 means unlimited
	lambda          float64
	minChildWeight  float64
	minChildSamples int
	minSplitGain    float64
}

// hnode is a node of a histogram tree. Feature is -1 for leaves.
type hnode struct {
	Feature   int
	Bin       uint8
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Gain      float64
}

type histTree struct {
	nodes []hnode
}

func (t *histTree) predictRow(row []float64) float64 {
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

func (t *histTree) predictBinned(binned [][]uint8, row int) float64 {
	i := 0
	for t.nodes[i].Feature >= 0 {
		n := &t.nodes[i]
		if binned[n.Feature][row] <= n.Bin {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.nodes[i].Value
}

type histBin struct {
	grad  float64
	hess  float64
	count int
}

type splitCandidate struct {
	feature int
	bin     uint8
	gain    float64
	valid   bool
}

// openLeaf is a leaf that may still be split. indices is a window into the
// grower's shared index buffer.
type openLeaf struct {
	node    int
	indices []int
	depth   int
	grad    float64
	hess    float64
	best    splitCandidate
}

type treeGrower struct {
	params  treeParams
	bins    *binMapper
	binned  [][]uint8
	grad    []float64
	hess    []float64
	scratch []int
	tree    *histTree
}

// growTree fits one tree to the gradients of the given rows. indices is
// reordered in place.
func growTree(params treeParams, bins *binMapper, binned [][]uint8, grad, hess []float64, indices []int) *histTree {
	g := &treeGrower{
		params:  params,
		bins:    bins,
		binned:  binned,
		grad:    grad,
		hess:    hess,
		scratch: make([]int, len(indices)),
		tree:    &histTree{},
	}
	g.growDepthWise(g.newLeaf(indices, 0))
	return g.tree
}

func (g *treeGrower) newLeaf(indices []int, depth int) *openLeaf {
	var sg, sh float64
	for _, i := range indices {
		sg += g.grad[i]
		sh += g.hess[i]
	}
	leaf := &openLeaf{node: len(g.tree.nodes), indices: indices, depth: depth, grad: sg, hess: sh}
	g.tree.nodes = append(g.tree.nodes, hnode{Feature: -1, Value: g.leafValue(sg, sh)})
	if g.canSplit(leaf) {
		leaf.best = g.bestSplit(leaf)
	}
	return leaf
}

func (g *treeGrower) leafValue(sumGrad, sumHess float64) float64 {
	denom := sumHess + g.params.lambda
	if denom <= 0 {
		return 0
	}
	return -sumGrad / denom
}

func (g *treeGrower) canSplit(leaf *openLeaf) bool {
	if g.params.maxDepth > 0 && leaf.depth >= g.params.maxDepth {
		return false
	}
	return len(leaf.indices) >= 2*max(g.params.minChildSamples, 1)
}

func (g *treeGrower) growDepthWise(root *openLeaf) {
	level := []*openLeaf{root}
	for len(level) > 0 {
		var next []*openLeaf
		for _, leaf := range level {
			if !leaf.best.valid {
				continue
			}
			left, right := g.split(leaf)
			next = append(next, left, right)
		}
		level = next
	}
}

// split partitions the leaf's rows, turns its node into an internal node
// and returns the two children.
func (g *treeGrower) split(leaf *openLeaf) (*openLeaf, *openLeaf) {
	best := leaf.best
	col := g.binned[best.feature]
	idx := leaf.indices
	tmp := g.scratch[:len(idx)]
	l, r := 0, len(idx)-1
	for _, i := range idx {
		if col[i] <= best.bin {
			tmp[l] = i
			l++
		}
	}
	for k := len(idx) - 1; k >= 0; k-- {
		if col[idx[k]] > best.bin {
			tmp[r] = idx[k]
			r--
		}
	}
	copy(idx, tmp)

	left := g.newLeaf(idx[:l], leaf.depth+1)
	right := g.newLeaf(idx[l:], leaf.depth+1)

	n := &g.tree.nodes[leaf.node]
	n.Feature = best.feature
	n.Bin = best.bin
	n.Threshold = g.bins.thresholds[best.feature][best.bin]
	n.Left = left.node
	n.Right = right.node
	n.Gain = best.gain
	return left, right
}

// bestSplit builds one gradient histogram per feature and scans the bin
// boundaries with the second-order gain
// 0.5 * (GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ)).
func (g *treeGrower) bestSplit(leaf *openLeaf) splitCandidate {
	nFeatures := len(g.binned)
	perFeature := make([]splitCandidate, nFeatures)
	lambda := g.params.lambda
	parent := leaf.grad * leaf.grad / (leaf.hess + lambda)

	parallel.ForEach(nFeatures, func(f int) {
		nb := g.bins.numBins(f)
		if nb < 2 {
			return
		}
		hist := make([]histBin, nb)
		col := g.binned[f]
		for _, i := range leaf.indices {
			b := &hist[col[i]]
			b.grad += g.grad[i]
			b.hess += g.hess[i]
			b.count++
		}

		var gl, hl float64
		var nl int
		best := splitCandidate{feature: f}
		for b := 0; b < nb-1; b++ {
			gl += hist[b].grad
			hl += hist[b].hess
			nl += hist[b].count
			nr := len(leaf.indices) - nl
			if hist[b].count == 0 && b > 0 {
				continue
			}
			if nl < g.params.minChildSamples || nr < g.params.minChildSamples || nl == 0 || nr == 0 {
				continue
			}
			gr, hr := leaf.grad-gl, leaf.hess-hl
			if hl < g.params.minChildWeight || hr < g.params.minChildWeight {
				continue
			}
			gain := 0.5 * (gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent)
			if gain > g.params.minSplitGain && (!best.valid || gain > best.gain) {
				best = splitCandidate{feature: f, bin: uint8(b), gain: gain, valid: true}
			}
		}
		perFeature[f] = best
	})

	var best splitCandidate
	for _, c := range perFeature {
		if c.valid && (!best.valid || c.gain > best.gain) {
			best = c
		}
	}
	return best
}
