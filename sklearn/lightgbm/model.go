package lightgbm

// NodeType distinguishes leaves from split nodes.
type NodeType int

const (
	// LeafNode carries an output value.
	LeafNode NodeType = iota
	// NumericalNode sends a row left when its feature is <= Threshold.
	NumericalNode
)

// Node is one node of a boosted tree. Children are indices into Tree.Nodes,
// -1 for leaves.
type Node struct {
	NodeID     int
	ParentID   int // -1 for the root
	LeftChild  int
	RightChild int
	NodeType   NodeType

	SplitFeature int
	Threshold    float64
	Gain         float64

	LeafValue float64
	LeafCount int
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is one boosting round. Leaf values are stored unshrunk and scaled by
// ShrinkageRate at prediction time.
type Tree struct {
	TreeIndex     int
	NumLeaves     int
	ShrinkageRate float64
	Nodes         []Node
}

// Predict returns the shrunk leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0
}

// ObjectiveType names a regression objective.
type ObjectiveType string

const (
	RegressionL2       ObjectiveType = "regression"
	RegressionL1       ObjectiveType = "regression_l1"
	RegressionHuber    ObjectiveType = "huber"
	RegressionFair     ObjectiveType = "fair"
	RegressionPoisson  ObjectiveType = "poisson"
	RegressionQuantile ObjectiveType = "quantile"
)

// Model is a trained ensemble. Raw scores are InitScore plus the sum of the
// tree outputs; the objective decides how they map back to the target.
type Model struct {
	Objective    ObjectiveType
	NumIteration int
	LearningRate float64
	NumLeaves    int
	MaxDepth     int
	NumFeatures  int
	InitScore    float64

	Trees []Tree
}

// NewModel returns an empty L2 model.
func NewModel() *Model {
	return &Model{
		Objective: RegressionL2,
		Trees:     make([]Tree, 0),
	}
}

// GetFeatureImportance returns per-feature importance normalised to 1.
// importanceType is "split" (number of splits) or "gain" (total gain);
// anything else falls back to "split".
func (m *Model) GetFeatureImportance(importanceType string) []float64 {
	importance := make([]float64, m.NumFeatures)
	for i := range m.Trees {
		for _, node := range m.Trees[i].Nodes {
			if node.IsLeaf() || node.SplitFeature >= m.NumFeatures {
				continue
			}
			if importanceType == "gain" {
				importance[node.SplitFeature] += node.Gain
			} else {
				importance[node.SplitFeature]++
			}
		}
	}

	var total float64
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance
}

// MaxLeaves returns the largest leaf count among the trees.
func (m *Model) MaxLeaves() int {
	most := 0
	for i := range m.Trees {
		most = max(most, m.Trees[i].NumLeaves)
	}
	return most
}
