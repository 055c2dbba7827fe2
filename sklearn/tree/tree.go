// Package tree implements a CART decision tree classifier with a
// scikit-learn compatible API.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/pkg/errors"
	"github.com/YuminosukeSato/tabml/pkg/log"
)

const modelName = "DecisionTreeClassifier"

// Node is a single node of a fitted tree. Nodes are stored in a flat slice
// with the root at index 0; leaves have Feature == -1.
type Node struct {
	Feature          int
	Threshold        float64
	Left             int
	Right            int
	Impurity         float64
	NSamples         int
	WeightedNSamples float64
	Value            []float64 // weighted class counts
	Depth            int
}

// IsLeaf reports whether the node is terminal.
func (n *Node) IsLeaf() bool {
	return n.Feature < 0
}

// DecisionTreeClassifier is a CART classifier using gini or entropy impurity.
// Samples go left when x[feature] <= threshold.
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     float64
	randomState     int64

	nodes               []Node
	classes_            []float64
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
}

// NewDecisionTreeClassifier creates a classifier with scikit-learn defaults:
// gini impurity, unlimited depth, min_samples_split=2, min_samples_leaf=1.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Fit builds the tree from X (n_samples x n_features) and class labels y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted builds the tree with per-sample weights. Samples with zero
// weight are ignored; a nil slice weights every sample equally.
func (dt *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) (err error) {
	defer errors.Recover(&err, modelName+".Fit")
	start := time.Now()

	if err := dt.validateParams(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "%s.Fit", modelName)
	}
	if yr, _ := y.Dims(); yr != rows {
		return errors.NewDimensionError(modelName+".Fit", rows, yr, 0)
	}
	if sampleWeight != nil && len(sampleWeight) != rows {
		return errors.NewDimensionError(modelName+".Fit", rows, len(sampleWeight), 0)
	}
	if err := errors.CheckMatrix(modelName+".Fit", X, rows, cols, -1); err != nil {
		return err
	}

	classes, yIdx := encodeLabels(y, rows)
	b := &builder{
		dt:          dt,
		columns:     columnsOf(X, rows, cols),
		yIdx:        yIdx,
		weights:     sampleWeight,
		nClasses:    len(classes),
		rng:         newRand(dt.randomState),
		nFeatSplit:  dt.featuresPerSplit(cols),
		importances: make([]float64, cols),
	}

	indices := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		if sampleWeight == nil || sampleWeight[i] > 0 {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return errors.NewValueError(modelName+".Fit", "all sample weights are zero")
	}

	dt.state.Reset()
	b.build(indices, 0)

	dt.nodes = b.nodes
	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.nFeatures_ = cols
	dt.featureImportances_ = normalise(b.importances, b.nodes[0].WeightedNSamples)
	dt.state.SetDimensions(cols, rows)
	dt.state.SetFitted()

	log.GetLogger().With(log.ModelNameKey, modelName, log.OperationKey, log.OperationFit).Debug("fit completed",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"depth", dt.GetDepth(),
		"leaves", dt.GetNLeaves(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (dt *DecisionTreeClassifier) validateParams() error {
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	if dt.maxFeatures != MaxFeaturesSqrt && (dt.maxFeatures < 0 || dt.maxFeatures > 1) {
		return errors.NewValidationError("max_features", "must be a fraction in (0, 1] or sqrt", dt.maxFeatures)
	}
	return nil
}

func (dt *DecisionTreeClassifier) featuresPerSplit(cols int) int {
	var n int
	switch {
	case dt.maxFeatures == MaxFeaturesSqrt:
		n = int(math.Sqrt(float64(cols)))
	case dt.maxFeatures > 0:
		n = int(dt.maxFeatures * float64(cols))
	default:
		n = cols
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Predict returns the most probable class for each row of X.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.predictProba(X, "Predict")
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, dt.classes_[argmax(proba.RawRowView(i))])
	}
	return out, nil
}

// PredictProba returns class probabilities; columns follow Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return dt.predictProba(X, "PredictProba")
}

func (dt *DecisionTreeClassifier) predictProba(X mat.Matrix, method string) (*mat.Dense, error) {
	if err := dt.state.RequireFitted(modelName, method); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := dt.state.RequireFeatures(modelName+"."+method, cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, dt.nClasses_, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		leaf := &dt.nodes[dt.apply(row)]
		for k, c := range leaf.Value {
			out.Set(i, k, c/leaf.WeightedNSamples)
		}
	}
	return out, nil
}

func (dt *DecisionTreeClassifier) apply(x []float64) int {
	idx := 0
	for {
		n := &dt.nodes[idx]
		if n.IsLeaf() {
			return idx
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// Score returns the mean accuracy on X and y. It returns 0 if prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	rows, _ := pred.Dims()
	if rows == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows)
}

// Classes returns the sorted class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// NClasses returns the number of classes seen during Fit.
func (dt *DecisionTreeClassifier) NClasses() int {
	return dt.nClasses_
}

// GetFeatureImportances returns the normalised total impurity decrease
// contributed by each feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetDepth returns the depth of the deepest leaf.
func (dt *DecisionTreeClassifier) GetDepth() int {
	depth := 0
	for i := range dt.nodes {
		if dt.nodes[i].Depth > depth {
			depth = dt.nodes[i].Depth
		}
	}
	return depth
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	n := 0
	for i := range dt.nodes {
		if dt.nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// Nodes returns the fitted nodes, root first.
func (dt *DecisionTreeClassifier) Nodes() []Node {
	return dt.nodes
}

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

// GetParams returns the hyperparameters. Unlimited depth, all features and
// an unset random state are reported as nil.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         nil,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      nil,
		"random_state":      nil,
	}
	if dt.maxDepth > 0 {
		params["max_depth"] = dt.maxDepth
	}
	switch {
	case dt.maxFeatures == MaxFeaturesSqrt:
		params["max_features"] = "sqrt"
	case dt.maxFeatures > 0:
		params["max_features"] = dt.maxFeatures
	}
	if dt.randomState >= 0 {
		params["random_state"] = dt.randomState
	}
	return params
}

// SetParams updates hyperparameters by name.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			dt.criterion, err = model.ParamString(key, value)
		case "max_depth":
			dt.maxDepth, err = model.ParamOptionalInt(key, value)
		case "min_samples_split":
			dt.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			dt.minSamplesLeaf, err = model.ParamInt(key, value)
		case "max_features":
			dt.maxFeatures, err = ParseMaxFeatures(value)
		case "random_state":
			var seed int
			seed, err = model.ParamOptionalInt(key, value)
			dt.randomState = int64(seed)
		default:
			return errors.NewValidationError(key, "unknown parameter for "+modelName, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseMaxFeatures converts a max_features hyperparameter (nil, "sqrt" or
// a fraction) to the representation used by WithMaxFeatures.
func ParseMaxFeatures(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		if v == "sqrt" {
			return MaxFeaturesSqrt, nil
		}
		return 0, errors.NewValidationError("max_features", "only 'sqrt' is supported as a string", v)
	default:
		return model.ParamFloat("max_features", value)
	}
}

// Clone returns an unfitted classifier with the same hyperparameters.
func (dt *DecisionTreeClassifier) Clone() model.SKLearnCompatible {
	return &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       dt.criterion,
		maxDepth:        dt.maxDepth,
		minSamplesSplit: dt.minSamplesSplit,
		minSamplesLeaf:  dt.minSamplesLeaf,
		maxFeatures:     dt.maxFeatures,
		randomState:     dt.randomState,
	}
}

// builder grows a tree depth first, the same way the boosting trainer does.
type builder struct {
	dt          *DecisionTreeClassifier
	columns     [][]float64
	yIdx        []int
	weights     []float64
	nClasses    int
	rng         *rand.Rand
	nFeatSplit  int
	importances []float64
	nodes       []Node
}

type split struct {
	feature     int
	threshold   float64
	improvement float64
	pos         int // number of samples going left in sorted order
	order       []int
	impLeft     float64
	impRight    float64
	wLeft       float64
	wRight      float64
}

func (b *builder) weight(i int) float64 {
	if b.weights == nil {
		return 1
	}
	return b.weights[i]
}

func (b *builder) build(indices []int, depth int) int {
	dt := b.dt
	value := make([]float64, b.nClasses)
	var wN float64
	for _, i := range indices {
		w := b.weight(i)
		value[b.yIdx[i]] += w
		wN += w
	}
	impurity := dt.impurity(value, wN)

	nodeIdx := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature:          -1,
		Left:             -1,
		Right:            -1,
		Impurity:         impurity,
		NSamples:         len(indices),
		WeightedNSamples: wN,
		Value:            value,
		Depth:            depth,
	})

	if (dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		len(indices) < dt.minSamplesSplit ||
		len(indices) < 2*dt.minSamplesLeaf ||
		impurity <= 1e-12 {
		return nodeIdx
	}

	best, ok := b.bestSplit(indices, impurity, wN)
	if !ok {
		return nodeIdx
	}

	left := append([]int(nil), best.order[:best.pos]...)
	right := append([]int(nil), best.order[best.pos:]...)
	b.importances[best.feature] += wN*impurity - best.wLeft*best.impLeft - best.wRight*best.impRight

	b.nodes[nodeIdx].Feature = best.feature
	b.nodes[nodeIdx].Threshold = best.threshold
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[nodeIdx].Left = l
	b.nodes[nodeIdx].Right = r
	return nodeIdx
}

// bestSplit scans candidate features in a random order, sweeping sorted
// values and scoring every midpoint between distinct values. Constant
// features do not count towards the max_features budget.
func (b *builder) bestSplit(indices []int, parentImpurity, wN float64) (split, bool) {
	dt := b.dt
	n := len(indices)
	best := split{improvement: math.Inf(-1)}
	found := false

	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)
	visited := 0

	for _, f := range b.rng.Perm(len(b.columns)) {
		if visited >= b.nFeatSplit {
			break
		}
		col := b.columns[f]
		order := append([]int(nil), indices...)
		sort.SliceStable(order, func(a, c int) bool { return col[order[a]] < col[order[c]] })
		if col[order[0]] == col[order[n-1]] {
			continue
		}
		visited++

		for k := range leftCounts {
			leftCounts[k] = 0
			rightCounts[k] = 0
		}
		var wLeft float64
		for _, i := range order {
			rightCounts[b.yIdx[i]] += b.weight(i)
		}

		for p := 0; p < n-1; p++ {
			i := order[p]
			w := b.weight(i)
			leftCounts[b.yIdx[i]] += w
			rightCounts[b.yIdx[i]] -= w
			wLeft += w

			if col[i] == col[order[p+1]] {
				continue
			}
			nLeft := p + 1
			if nLeft < dt.minSamplesLeaf || n-nLeft < dt.minSamplesLeaf {
				continue
			}
			wRight := wN - wLeft
			impL := dt.impurity(leftCounts, wLeft)
			impR := dt.impurity(rightCounts, wRight)
			improvement := wN*parentImpurity - wLeft*impL - wRight*impR
			if improvement > best.improvement {
				threshold := (col[i] + col[order[p+1]]) / 2
				if threshold == col[order[p+1]] {
					threshold = col[i]
				}
				best = split{
					feature:     f,
					threshold:   threshold,
					improvement: improvement,
					pos:         nLeft,
					order:       order,
					impLeft:     impL,
					impRight:    impR,
					wLeft:       wLeft,
					wRight:      wRight,
				}
				found = true
			}
		}
	}
	return best, found
}

func (dt *DecisionTreeClassifier) impurity(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	switch dt.criterion {
	case "entropy":
		var h float64
		for _, c := range counts {
			if c > 0 {
				p := c / total
				h -= p * math.Log2(p)
			}
		}
		return h
	default:
		sum := 0.0
		for _, c := range counts {
			p := c / total
			sum += p * p
		}
		return 1 - sum
	}
}

func encodeLabels(y mat.Matrix, rows int) ([]float64, []int) {
	seen := make(map[float64]struct{})
	for i := 0; i < rows; i++ {
		seen[y.At(i, 0)] = struct{}{}
	}
	classes := make([]float64, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	index := make(map[float64]int, len(classes))
	for k, c := range classes {
		index[c] = k
	}
	yIdx := make([]int, rows)
	for i := 0; i < rows; i++ {
		yIdx[i] = index[y.At(i, 0)]
	}
	return classes, yIdx
}

func columnsOf(X mat.Matrix, rows, cols int) [][]float64 {
	columns := make([][]float64, cols)
	for j := 0; j < cols; j++ {
		columns[j] = mat.Col(nil, j, X)
	}
	return columns
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

func normalise(importances []float64, total float64) []float64 {
	out := make([]float64, len(importances))
	if total <= 0 {
		return out
	}
	var sum float64
	for j, v := range importances {
		out[j] = v / total
		sum += out[j]
	}
	if sum > 0 {
		for j := range out {
			out[j] /= sum
		}
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for k := 1; k < len(v); k++ {
		if v[k] > v[best] {
			best = k
		}
	}
	return best
}
