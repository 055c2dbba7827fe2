package ensemble

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/core/parallel"
	"github.com/YuminosukeSato/tabml/pkg/errors"
	"github.com/YuminosukeSato/tabml/pkg/log"
	"github.com/YuminosukeSato/tabml/sklearn/tree"
)

const forestName = "RandomForestClassifier"

// RandomForestClassifier averages the class probabilities of decision trees
// fit on bootstrap samples with a random subset of features per split.
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators     int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     float64
	maxSamples      float64
	bootstrap       bool
	randomState     int64
	nJobs           int

	estimators          []*tree.DecisionTreeClassifier
	classes_            []float64
	nFeatures_          int
	featureImportances_ []float64
}

// NewRandomForestClassifier creates a forest with scikit-learn defaults:
// 100 trees, unlimited depth, sqrt(n_features) per split, bootstrap on.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     tree.MaxFeaturesSqrt,
		bootstrap:       true,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

func (rf *RandomForestClassifier) validateParams() error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}
	if rf.maxSamples < 0 || rf.maxSamples > 1 {
		return errors.NewValidationError("max_samples", "must be a fraction in (0, 1]", rf.maxSamples)
	}
	if rf.maxSamples > 0 && !rf.bootstrap {
		return errors.NewValidationError("max_samples", "requires bootstrap=true", rf.maxSamples)
	}
	return nil
}

// Fit grows the trees. Tree seeds are drawn up front from the forest seed so
// the fitted forest does not depend on scheduling.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, forestName+".Fit")
	start := time.Now()

	if err := rf.validateParams(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "%s.Fit", forestName)
	}
	if yr, _ := y.Dims(); yr != rows {
		return errors.NewDimensionError(forestName+".Fit", rows, yr, 0)
	}

	nDraw := rows
	if rf.maxSamples > 0 {
		nDraw = int(math.Round(rf.maxSamples * float64(rows)))
		if nDraw < 1 {
			nDraw = 1
		}
	}

	master := seededRand(rf.randomState)
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = int64(master.Uint64() >> 1)
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.Range(rf.nEstimators, rf.nJobs, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dt := tree.NewDecisionTreeClassifier(
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMinSamplesSplit(rf.minSamplesSplit),
				tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
				tree.WithMaxFeatures(rf.maxFeatures),
				tree.WithRandomState(seeds[i]),
			)
			var weights []float64
			if rf.bootstrap {
				weights = bootstrapWeights(rows, nDraw, seeds[i])
			}
			errs[i] = dt.FitWeighted(X, y, weights)
			trees[i] = dt
		}
	})
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "%s.Fit: tree %d", forestName, i)
		}
	}

	importances := make([]float64, cols)
	for _, dt := range trees {
		for j, v := range dt.GetFeatureImportances() {
			importances[j] += v
		}
	}
	var sum float64
	for _, v := range importances {
		sum += v
	}
	if sum > 0 {
		for j := range importances {
			importances[j] /= sum
		}
	}

	rf.state.Reset()
	rf.estimators = trees
	rf.classes_ = trees[0].Classes()
	rf.nFeatures_ = cols
	rf.featureImportances_ = importances
	rf.state.SetDimensions(cols, rows)
	rf.state.SetFitted()

	log.GetLogger().With(log.ModelNameKey, forestName, log.OperationKey, log.OperationFit).Debug("fit completed",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"n_estimators", rf.nEstimators,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// bootstrapWeights draws n rows with replacement out of rows and returns
// how many times each row was drawn.
func bootstrapWeights(rows, n int, seed int64) []float64 {
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0xda3e39cb94b95bdb))
	w := make([]float64, rows)
	for k := 0; k < n; k++ {
		w[r.IntN(rows)]++
	}
	return w
}

func seededRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// PredictProba averages the per-tree class probabilities. Columns follow
// Classes().
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return rf.predictProba(X, "PredictProba")
}

func (rf *RandomForestClassifier) predictProba(X mat.Matrix, method string) (*mat.Dense, error) {
	if err := rf.state.RequireFitted(forestName, method); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := rf.state.RequireFeatures(forestName, cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, len(rf.classes_), nil)
	for _, dt := range rf.estimators {
		p, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		out.Add(out, p)
	}
	out.Scale(1/float64(len(rf.estimators)), out)
	return out, nil
}

// Predict returns the class with the highest averaged probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.predictProba(X, "Predict")
	if err != nil {
		return nil, err
	}
	return argmaxClasses(proba, rf.classes_), nil
}

func argmaxClasses(proba *mat.Dense, classes []float64) *mat.Dense {
	rows, k := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for c := 1; c < k; c++ {
			if proba.At(i, c) > proba.At(i, best) {
				best = c
			}
		}
		out.Set(i, 0, classes[best])
	}
	return out
}

// Score returns the mean accuracy on X and y.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracy(pred, y)
}

func accuracy(pred, y mat.Matrix) (float64, error) {
	rows, _ := pred.Dims()
	if yr, _ := y.Dims(); yr != rows {
		return 0, errors.NewDimensionError("Score", rows, yr, 0)
	}
	if rows == 0 {
		return 0, errors.ErrEmptyData
	}
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}

// Classes returns the sorted class labels seen during Fit.
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes_...)
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.estimators
}

// GetFeatureImportances returns the mean impurity decrease per feature,
// normalised to sum to 1.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), rf.featureImportances_...)
}

// IsFitted reports whether Fit has completed.
func (rf *RandomForestClassifier) IsFitted() bool {
	return rf.state.IsFitted()
}

// GetParams returns the hyperparameters using scikit-learn names.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"max_depth":         nil,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      nil,
		"max_samples":       nil,
		"bootstrap":         rf.bootstrap,
		"random_state":      nil,
		"n_jobs":            rf.nJobs,
	}
	if rf.maxDepth > 0 {
		params["max_depth"] = rf.maxDepth
	}
	switch {
	case rf.maxFeatures == tree.MaxFeaturesSqrt:
		params["max_features"] = "sqrt"
	case rf.maxFeatures > 0:
		params["max_features"] = rf.maxFeatures
	}
	if rf.maxSamples > 0 {
		params["max_samples"] = rf.maxSamples
	}
	if rf.randomState >= 0 {
		params["random_state"] = rf.randomState
	}
	return params
}

// SetParams updates hyperparameters by name.
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			rf.nEstimators, err = model.ParamInt(key, value)
		case "max_depth":
			rf.maxDepth, err = model.ParamOptionalInt(key, value)
		case "min_samples_split":
			rf.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			rf.minSamplesLeaf, err = model.ParamInt(key, value)
		case "max_features":
			rf.maxFeatures, err = tree.ParseMaxFeatures(value)
		case "max_samples":
			if value == nil {
				rf.maxSamples = 0
			} else {
				rf.maxSamples, err = model.ParamFloat(key, value)
			}
		case "bootstrap":
			rf.bootstrap, err = model.ParamBool(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamOptionalInt(key, value)
			rf.randomState = int64(seed)
		case "n_jobs":
			rf.nJobs, err = model.ParamInt(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter for "+forestName, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted forest with the same hyperparameters.
func (rf *RandomForestClassifier) Clone() model.SKLearnCompatible {
	return &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     rf.nEstimators,
		maxDepth:        rf.maxDepth,
		minSamplesSplit: rf.minSamplesSplit,
		minSamplesLeaf:  rf.minSamplesLeaf,
		maxFeatures:     rf.maxFeatures,
		maxSamples:      rf.maxSamples,
		bootstrap:       rf.bootstrap,
		randomState:     rf.randomState,
		nJobs:           rf.nJobs,
	}
}
