package tree

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// MaxFeaturesSqrt selects sqrt(n_features) candidate features per split.
const MaxFeaturesSqrt = -1.0

// WithCriterion sets the impurity measure, "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the depth of the tree. Values <= 0 mean unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets the fraction of features considered per split.
// 0 considers all features; MaxFeaturesSqrt considers sqrt(n_features).
func WithMaxFeatures(fraction float64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = fraction
	}
}

// WithRandomState seeds feature sampling. A negative seed draws a random one.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}
