package ensemble

// ForestOption configures a RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithMaxDepth limits the depth of every tree. n <= 0 means unlimited.
func WithMaxDepth(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = n
	}
}

// WithMaxFeatures sets the fraction of features considered per split.
// Use tree.MaxFeaturesSqrt for sqrt(n_features).
func WithMaxFeatures(fraction float64) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = fraction
	}
}

// WithMaxSamples sets the bootstrap sample size as a fraction of the rows.
func WithMaxSamples(fraction float64) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxSamples = fraction
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithMinSamplesSplit sets the minimum number of samples to split a node.
func WithMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesSplit = n
	}
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.bootstrap = b
	}
}

// WithRandomState fixes the seed for bootstrap draws and feature sampling.
func WithRandomState(seed int64) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// WithNJobs bounds the number of trees fit concurrently.
func WithNJobs(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nJobs = n
	}
}

// BoostOption configures a GradientBoostingClassifier.
type BoostOption func(*GradientBoostingClassifier)

// WithBoostRounds sets the number of boosting rounds (n_estimators).
func WithBoostRounds(n int) BoostOption {
	return func(gb *GradientBoostingClassifier) {
		gb.nEstimators = n
	}
}

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(eta float64) BoostOption {
	return func(gb *GradientBoostingClassifier) {
		gb.learningRate = eta
	}
}

// WithBoostMaxDepth limits the depth of every tree.
func WithBoostMaxDepth(n int) BoostOption {
	return func(gb *GradientBoostingClassifier) {
		gb.maxDepth = n
	}
}

// WithMinChildWeight sets the minimum hessian sum required in each child.
func WithMinChildWeight(w float64) BoostOption {
	return func(gb *GradientBoostingClassifier) {
		gb.minChildWeight = w
	}
}

// WithLambda sets the L2 regularisation on leaf weights.
func WithLambda(lambda float64) BoostOption {
	return func(gb *GradientBoostingClassifier) {
		gb.lambda = lambda
	}
}

// WithGamma sets the minimum loss reduction required to split.
func WithGamma(gamma float64) BoostOption {
	return func(gb *GradientBoostingClassifier) {
		gb.gamma = gamma
	}
}

// WithSubsample sets the fraction of rows sampled for each round.
func WithSubsample(fraction float64) BoostOption {
	return func(gb *GradientBoostingClassifier) {
		gb.subsample = fraction
	}
}

// WithColsampleByTree sets the fraction of features sampled for each tree.
func WithColsampleByTree(fraction float64) BoostOption {
	return func(gb *GradientBoostingClassifier) {
		gb.colsampleByTree = fraction
	}
}

// WithBoostRandomState fixes the seed used for row and column sampling.
func WithBoostRandomState(seed int64) BoostOption {
	return func(gb *GradientBoostingClassifier) {
		gb.randomState = seed
	}
}
