package ensemble

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

const boostName = "GradientBoostingClassifier"

// BoostNode is a node of a boosted regression tree. Leaves have
// Feature == -1 and carry Weight, already multiplied by the learning rate.
type BoostNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Weight    float64
	Gain      float64
	Cover     float64 // hessian sum
}

// BoostTree is one boosting round.
type BoostTree struct {
	Nodes []BoostNode
}

func (t *BoostTree) predict(x func(j int) float64) float64 {
	n := 0
	for t.Nodes[n].Feature >= 0 {
		node := &t.Nodes[n]
		if x(node.Feature) <= node.Threshold {
			n = node.Left
		} else {
			n = node.Right
		}
	}
	return t.Nodes[n].Weight
}

// GradientBoostingClassifier fits additive regression trees on the
// gradient and hessian of the logistic loss, XGBoost style. Labels must be
// 0 and 1.
type GradientBoostingClassifier struct {
	state *model.StateManager

	nEstimators     int
	learningRate    float64
	maxDepth        int
	minChildWeight  float64
	lambda          float64
	gamma           float64
	subsample       float64
	colsampleByTree float64
	randomState     int64
	baseScore       float64

	trees               []BoostTree
	nFeatures_          int
	featureImportances_ []float64
}

// NewGradientBoostingClassifier creates a classifier with XGBoost defaults:
// 100 rounds, eta 0.3, max_depth 6, min_child_weight 1, lambda 1.
func NewGradientBoostingClassifier(opts ...BoostOption) *GradientBoostingClassifier {
	gb := &GradientBoostingClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		learningRate:    0.3,
		maxDepth:        6,
		minChildWeight:  1,
		lambda:          1,
		subsample:       1,
		colsampleByTree: 1,
		randomState:     -1,
		baseScore:       0.5,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

func (gb *GradientBoostingClassifier) validateParams() error {
	switch {
	case gb.nEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", gb.nEstimators)
	case gb.learningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", gb.learningRate)
	case gb.maxDepth < 1:
		return errors.NewValidationError("max_depth", "must be >= 1", gb.maxDepth)
	case gb.minChildWeight < 0:
		return errors.NewValidationError("min_child_weight", "must be >= 0", gb.minChildWeight)
	case gb.lambda < 0:
		return errors.NewValidationError("reg_lambda", "must be >= 0", gb.lambda)
	case gb.gamma < 0:
		return errors.NewValidationError("gamma", "must be >= 0", gb.gamma)
	case gb.subsample <= 0 || gb.subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", gb.subsample)
	case gb.colsampleByTree <= 0 || gb.colsampleByTree > 1:
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", gb.colsampleByTree)
	}
	return nil
}

// Fit runs nEstimators boosting rounds on X and binary labels y.
func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, boostName+".Fit")
	start := time.Now()

	if err := gb.validateParams(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "%s.Fit", boostName)
	}
	if yr, _ := y.Dims(); yr != rows {
		return errors.NewDimensionError(boostName+".Fit", rows, yr, 0)
	}
	if err := errors.CheckMatrix(boostName+".Fit", X, rows, cols, -1); err != nil {
		return err
	}
	labels := make([]float64, rows)
	for i := range labels {
		labels[i] = y.At(i, 0)
		if labels[i] != 0 && labels[i] != 1 {
			return errors.NewValueError(boostName+".Fit", "binary:logistic requires labels 0 and 1")
		}
	}

	columns := make([][]float64, cols)
	presorted := make([][]int, cols)
	for j := 0; j < cols; j++ {
		columns[j] = mat.Col(nil, j, X)
		col := columns[j]
		order := make([]int, rows)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return col[order[a]] < col[order[b]] })
		presorted[j] = order
	}

	b := &boostBuilder{
		gb:          gb,
		columns:     columns,
		grad:        make([]float64, rows),
		hess:        make([]float64, rows),
		goLeft:      make([]bool, rows),
		importances: make([]float64, cols),
	}
	rng := seededRand(gb.randomState)
	baseMargin := math.Log(gb.baseScore / (1 - gb.baseScore))
	margin := make([]float64, rows)
	for i := range margin {
		margin[i] = baseMargin
	}

	trees := make([]BoostTree, 0, gb.nEstimators)
	inRound := make([]bool, rows)
	for round := 0; round < gb.nEstimators; round++ {
		for i := 0; i < rows; i++ {
			p := errors.Sigmoid(margin[i])
			b.grad[i] = p - labels[i]
			b.hess[i] = math.Max(p*(1-p), 1e-16)
		}

		for i := range inRound {
			inRound[i] = gb.subsample >= 1 || rng.Float64() < gb.subsample
		}
		features := sampleFeatures(cols, gb.colsampleByTree, rng)
		sorted := make([][]int, len(features))
		for k, f := range features {
			lst := make([]int, 0, rows)
			for _, i := range presorted[f] {
				if inRound[i] {
					lst = append(lst, i)
				}
			}
			sorted[k] = lst
		}
		if len(sorted[0]) == 0 {
			continue
		}

		b.nodes = nil
		b.features = features
		b.build(sorted, 0)
		t := BoostTree{Nodes: b.nodes}
		trees = append(trees, t)

		for i := 0; i < rows; i++ {
			margin[i] += t.predict(func(j int) float64 { return columns[j][i] })
		}
	}

	var loss float64
	for i := 0; i < rows; i++ {
		p := errors.Sigmoid(margin[i])
		loss -= labels[i]*errors.StabilizeLog(p) + (1-labels[i])*errors.StabilizeLog(1-p)
	}
	loss /= float64(rows)
	if err := errors.CheckScalar(boostName+".Fit", loss, gb.nEstimators); err != nil {
		return err
	}

	var total float64
	for _, v := range b.importances {
		total += v
	}
	importances := make([]float64, cols)
	if total > 0 {
		for j, v := range b.importances {
			importances[j] = v / total
		}
	}

	gb.state.Reset()
	gb.trees = trees
	gb.nFeatures_ = cols
	gb.featureImportances_ = importances
	gb.state.SetDimensions(cols, rows)
	gb.state.SetFitted()

	log.GetLogger().With(log.ModelNameKey, boostName, log.OperationKey, log.OperationFit).Debug("fit completed",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, len(trees),
		log.LossKey, loss,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func sampleFeatures(cols int, fraction float64, rng *rand.Rand) []int {
	if fraction >= 1 {
		out := make([]int, cols)
		for j := range out {
			out[j] = j
		}
		return out
	}
	n := int(math.Max(1, math.Floor(fraction*float64(cols))))
	out := rng.Perm(cols)[:n]
	sort.Ints(out)
	return out
}

// boostBuilder grows one tree depth first over presorted index lists. Each
// node receives, per candidate feature, its rows in ascending feature order.
type boostBuilder struct {
	gb          *GradientBoostingClassifier
	columns     [][]float64
	grad        []float64
	hess        []float64
	goLeft      []bool
	features    []int
	importances []float64
	nodes       []BoostNode
}

type boostSplit struct {
	slot      int // index into features
	threshold float64
	gain      float64
}

func (b *boostBuilder) build(sorted [][]int, depth int) int {
	gb := b.gb
	var G, H float64
	for _, i := range sorted[0] {
		G += b.grad[i]
		H += b.hess[i]
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, BoostNode{
		Feature: -1,
		Left:    -1,
		Right:   -1,
		Weight:  gb.learningRate * leafWeight(G, H, gb.lambda),
		Cover:   H,
	})
	if depth >= gb.maxDepth || len(sorted[0]) < 2 {
		return idx
	}

	best, ok := b.bestSplit(sorted, G, H)
	if !ok {
		return idx
	}
	f := b.features[best.slot]
	col := b.columns[f]
	for _, i := range sorted[0] {
		b.goLeft[i] = col[i] <= best.threshold
	}
	left := make([][]int, len(sorted))
	right := make([][]int, len(sorted))
	for k, lst := range sorted {
		for _, i := range lst {
			if b.goLeft[i] {
				left[k] = append(left[k], i)
			} else {
				right[k] = append(right[k], i)
			}
		}
	}

	b.importances[f] += best.gain
	b.nodes[idx].Feature = f
	b.nodes[idx].Threshold = best.threshold
	b.nodes[idx].Gain = best.gain
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// bestSplit scans every candidate feature for the threshold with the largest
// loss reduction 0.5*(GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ)) - γ. Both children
// must reach min_child_weight; a split is only taken when the reduction is
// positive.
func (b *boostBuilder) bestSplit(sorted [][]int, G, H float64) (boostSplit, bool) {
	gb := b.gb
	parent := G * G / (H + gb.lambda)
	best := boostSplit{gain: 1e-6}
	found := false
	for k, lst := range sorted {
		col := b.columns[b.features[k]]
		var gl, hl float64
		for p := 0; p < len(lst)-1; p++ {
			i := lst[p]
			gl += b.grad[i]
			hl += b.hess[i]
			next := col[lst[p+1]]
			if col[i] == next {
				continue
			}
			hr := H - hl
			if hl < gb.minChildWeight || hr < gb.minChildWeight {
				continue
			}
			gr := G - gl
			gain := 0.5*(gl*gl/(hl+gb.lambda)+gr*gr/(hr+gb.lambda)-parent) - gb.gamma
			if gain > best.gain {
				threshold := (col[i] + next) / 2
				if threshold == next {
					threshold = col[i]
				}
				best = boostSplit{slot: k, threshold: threshold, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func leafWeight(G, H, lambda float64) float64 {
	if H+lambda == 0 {
		return 0
	}
	return -G / (H + lambda)
}

// DecisionFunction returns the raw margin (log-odds) for each row of X.
func (gb *GradientBoostingClassifier) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	return gb.margin(X, "DecisionFunction")
}

func (gb *GradientBoostingClassifier) margin(X mat.Matrix, method string) (*mat.VecDense, error) {
	if err := gb.state.RequireFitted(boostName, method); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := gb.state.RequireFeatures(boostName, cols); err != nil {
		return nil, err
	}
	base := math.Log(gb.baseScore / (1 - gb.baseScore))
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		m := base
		x := func(j int) float64 { return X.At(i, j) }
		for t := range gb.trees {
			m += gb.trees[t].predict(x)
		}
		out.SetVec(i, m)
	}
	return out, nil
}

// PredictProba returns an n x 2 matrix of [P(0), P(1)].
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return gb.predictProba(X, "PredictProba")
}

func (gb *GradientBoostingClassifier) predictProba(X mat.Matrix, method string) (*mat.Dense, error) {
	m, err := gb.margin(X, method)
	if err != nil {
		return nil, err
	}
	rows := m.Len()
	out := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := errors.Sigmoid(m.AtVec(i))
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Predict returns 1 where P(1) > 0.5 and 0 otherwise.
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := gb.predictProba(X, "Predict")
	if err != nil {
		return nil, err
	}
	return argmaxClasses(proba, []float64{0, 1}), nil
}

// Score returns the mean accuracy on X and y.
func (gb *GradientBoostingClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := gb.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracy(pred, y)
}

// Classes returns the fixed binary labels.
func (gb *GradientBoostingClassifier) Classes() []float64 {
	return []float64{0, 1}
}

// Trees returns the fitted boosting rounds.
func (gb *GradientBoostingClassifier) Trees() []BoostTree {
	return gb.trees
}

// GetFeatureImportances returns the total split gain per feature,
// normalised to sum to 1.
func (gb *GradientBoostingClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), gb.featureImportances_...)
}

// IsFitted reports whether Fit has completed.
func (gb *GradientBoostingClassifier) IsFitted() bool {
	return gb.state.IsFitted()
}

// GetParams returns the hyperparameters using XGBoost's scikit-learn names.
func (gb *GradientBoostingClassifier) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"n_estimators":     gb.nEstimators,
		"learning_rate":    gb.learningRate,
		"max_depth":        gb.maxDepth,
		"min_child_weight": gb.minChildWeight,
		"reg_lambda":       gb.lambda,
		"gamma":            gb.gamma,
		"subsample":        gb.subsample,
		"colsample_bytree": gb.colsampleByTree,
		"base_score":       gb.baseScore,
		"objective":        "binary:logistic",
		"random_state":     nil,
	}
	if gb.randomState >= 0 {
		params["random_state"] = gb.randomState
	}
	return params
}

// SetParams updates hyperparameters by name.
func (gb *GradientBoostingClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			gb.nEstimators, err = model.ParamInt(key, value)
		case "learning_rate", "eta":
			gb.learningRate, err = model.ParamFloat(key, value)
		case "max_depth":
			gb.maxDepth, err = model.ParamInt(key, value)
		case "min_child_weight":
			gb.minChildWeight, err = model.ParamFloat(key, value)
		case "reg_lambda", "lambda":
			gb.lambda, err = model.ParamFloat(key, value)
		case "gamma", "min_split_loss":
			gb.gamma, err = model.ParamFloat(key, value)
		case "subsample":
			gb.subsample, err = model.ParamFloat(key, value)
		case "colsample_bytree":
			gb.colsampleByTree, err = model.ParamFloat(key, value)
		case "base_score":
			gb.baseScore, err = model.ParamFloat(key, value)
			if err == nil && (gb.baseScore <= 0 || gb.baseScore >= 1) {
				err = errors.NewValidationError(key, "must be in (0, 1)", value)
			}
		case "objective":
			var obj string
			obj, err = model.ParamString(key, value)
			if err == nil && obj != "binary:logistic" {
				err = errors.NewValidationError(key, "only binary:logistic is supported", value)
			}
		case "random_state":
			var seed int
			seed, err = model.ParamOptionalInt(key, value)
			gb.randomState = int64(seed)
		default:
			return errors.NewValidationError(key, "unknown parameter for "+boostName, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted classifier with the same hyperparameters.
func (gb *GradientBoostingClassifier) Clone() model.SKLearnCompatible {
	return &GradientBoostingClassifier{
		state:           model.NewStateManager(),
		nEstimators:     gb.nEstimators,
		learningRate:    gb.learningRate,
		maxDepth:        gb.maxDepth,
		minChildWeight:  gb.minChildWeight,
		lambda:          gb.lambda,
		gamma:           gb.gamma,
		subsample:       gb.subsample,
		colsampleByTree: gb.colsampleByTree,
		randomState:     gb.randomState,
		baseScore:       gb.baseScore,
	}
}
