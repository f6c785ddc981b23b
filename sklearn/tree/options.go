package tree

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the tree depth. A negative value means unlimited.
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum samples an internal node needs to split.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are considered per split; 0 means all.
func WithMaxFeatures(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxFeatures = n }
}

// WithRandomState seeds the feature subsampling.
func WithRandomState(seed uint64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}
