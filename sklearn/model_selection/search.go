package model_selection

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/pkg/errors"
	"github.com/YuminosukeSato/tabml/pkg/log"
)

// CVResults holds per-candidate cross-validation scores, laid out like
// scikit-learn's cv_results_.
type CVResults struct {
	Params      []map[string]interface{}
	Metrics     []string
	NSplits     int
	MeanTest    map[string][]float64
	StdTest     map[string][]float64
	RankTest    map[string][]int
	SplitTest   map[string][][]float64 // metric -> candidate -> fold
	MeanFitTime []float64
}

// Len returns the number of candidates.
func (r *CVResults) Len() int {
	return len(r.Params)
}

// ToMap flattens the results into scikit-learn style columns such as
// "mean_test_f1", "rank_test_f1", "split0_test_f1" and "param_max_depth".
func (r *CVResults) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		"params":        r.Params,
		"mean_fit_time": r.MeanFitTime,
	}
	paramNames := make(map[string]struct{})
	for _, p := range r.Params {
		for k := range p {
			paramNames[k] = struct{}{}
		}
	}
	for name := range paramNames {
		col := make([]interface{}, len(r.Params))
		for i, p := range r.Params {
			col[i] = p[name]
		}
		out["param_"+name] = col
	}
	for _, m := range r.Metrics {
		out["mean_test_"+m] = r.MeanTest[m]
		out["std_test_"+m] = r.StdTest[m]
		out["rank_test_"+m] = r.RankTest[m]
		for k := 0; k < r.NSplits; k++ {
			col := make([]float64, len(r.Params))
			for i := range r.Params {
				col[i] = r.SplitTest[m][i][k]
			}
			out[fmt.Sprintf("split%d_test_%s", k, m)] = col
		}
	}
	return out
}

// GridSearchCV exhaustively evaluates every combination of ParamGrid with
// cross-validation and refits the best one on the full training data.
type GridSearchCV struct {
	Estimator model.SKLearnCompatible
	ParamGrid map[string][]interface{}
	// Scoring lists scorer names; defaults to {"accuracy"}.
	Scoring []string
	// Refit names the metric used to choose the best candidate. Defaults
	// to the first scorer.
	Refit string
	// CV defaults to a 5-fold StratifiedKFold without shuffling.
	CV Splitter
	// NJobs bounds concurrent fits; <= 0 uses every CPU.
	NJobs int

	RunID         string
	CVResults     *CVResults
	BestIndex     int
	BestScore     float64
	BestParams    map[string]interface{}
	BestEstimator model.SKLearnCompatible
	RefitTime     time.Duration
}

// NewGridSearchCV creates a GridSearchCV with default scoring and CV.
func NewGridSearchCV(est model.SKLearnCompatible, grid map[string][]interface{}) *GridSearchCV {
	return &GridSearchCV{Estimator: est, ParamGrid: grid}
}

type foldData struct {
	XTrain, XTest, yTrain, yTest *mat.Dense
}

// Fit runs the search on X and y. Candidate/fold fits run concurrently up
// to NJobs; results are stored in candidate order regardless of timing.
func (gs *GridSearchCV) Fit(ctx context.Context, X, y mat.Matrix) error {
	if gs.Estimator == nil {
		return errors.NewValueError("GridSearchCV.Fit", "estimator is nil")
	}
	scoring := gs.Scoring
	if len(scoring) == 0 {
		scoring = []string{"accuracy"}
	}
	refit := gs.Refit
	if refit == "" {
		refit = scoring[0]
	}
	scorerFns := make([]Scorer, len(scoring))
	refitFound := false
	for i, name := range scoring {
		s, err := GetScorer(name)
		if err != nil {
			return err
		}
		scorerFns[i] = s
		refitFound = refitFound || name == refit
	}
	if !refitFound {
		return errors.NewValidationError("refit", "must be one of the scoring metrics", refit)
	}

	candidates := ParameterGrid(gs.ParamGrid)
	if len(candidates) == 0 {
		return errors.NewValueError("GridSearchCV.Fit", "parameter grid is empty")
	}
	cv := gs.CV
	if cv == nil {
		cv = NewStratifiedKFold(5, false, 0)
	}
	folds, err := cv.Split(X, y)
	if err != nil {
		return errors.Wrap(err, "GridSearchCV.Fit")
	}
	data := make([]foldData, len(folds))
	for f, fold := range folds {
		xtr, xte, ytr, yte := SplitXY(X, y, fold.TrainIndices, fold.TestIndices)
		data[f] = foldData{XTrain: xtr, XTest: xte, yTrain: ytr, yTest: yte}
	}

	gs.RunID = uuid.NewString()
	logger := log.GetLogger().With(log.RunIDKey, gs.RunID, log.OperationKey, log.OperationSearch)
	logger.Info("grid search started",
		"candidates", len(candidates),
		"folds", len(folds),
		"scoring", scoring,
		"refit", refit,
	)
	start := time.Now()

	scores := make([][][]float64, len(candidates)) // candidate -> fold -> metric
	fitTimes := make([][]float64, len(candidates))
	for c := range scores {
		scores[c] = make([][]float64, len(folds))
		fitTimes[c] = make([]float64, len(folds))
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := gs.NJobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	g.SetLimit(jobs)
	for c := range candidates {
		for f := range folds {
			c, f := c, f
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				est := gs.Estimator.Clone()
				if err := est.SetParams(candidates[c]); err != nil {
					return err
				}
				t0 := time.Now()
				if err := est.Fit(data[f].XTrain, data[f].yTrain); err != nil {
					return errors.Wrapf(err, "candidate %d (%s) fold %d", c, model.FormatParams(candidates[c]), f)
				}
				fitTimes[c][f] = time.Since(t0).Seconds()
				row := make([]float64, len(scorerFns))
				for m, score := range scorerFns {
					v, err := score(est, data[f].XTest, data[f].yTest)
					if err != nil {
						return errors.Wrapf(err, "scoring %s", scoring[m])
					}
					row[m] = v
				}
				scores[c][f] = row
				logger.Debug("fold scored",
					log.CandidateKey, c,
					log.FoldKey, f,
					log.ScoreKey, row[0],
				)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "GridSearchCV.Fit")
	}

	gs.CVResults = aggregate(candidates, scoring, scores, fitTimes)
	gs.BestIndex = bestIndex(gs.CVResults.RankTest[refit])
	gs.BestScore = gs.CVResults.MeanTest[refit][gs.BestIndex]
	gs.BestParams = candidates[gs.BestIndex]

	t0 := time.Now()
	best := gs.Estimator.Clone()
	if err := best.SetParams(gs.BestParams); err != nil {
		return err
	}
	if err := best.Fit(X, y); err != nil {
		return errors.Wrap(err, "GridSearchCV refit")
	}
	gs.RefitTime = time.Since(t0)
	gs.BestEstimator = best

	logger.Info("grid search finished",
		"best_params", model.FormatParams(gs.BestParams),
		log.ScoreKey, gs.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict delegates to the refitted best estimator.
func (gs *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if gs.BestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return gs.BestEstimator.Predict(X)
}

func aggregate(candidates []map[string]interface{}, scoring []string, scores [][][]float64, fitTimes [][]float64) *CVResults {
	nFolds := len(scores[0])
	res := &CVResults{
		Params:      candidates,
		Metrics:     scoring,
		NSplits:     nFolds,
		MeanTest:    make(map[string][]float64),
		StdTest:     make(map[string][]float64),
		RankTest:    make(map[string][]int),
		SplitTest:   make(map[string][][]float64),
		MeanFitTime: make([]float64, len(candidates)),
	}
	for c := range candidates {
		res.MeanFitTime[c] = stat.Mean(fitTimes[c], nil)
	}
	for m, name := range scoring {
		means := make([]float64, len(candidates))
		stds := make([]float64, len(candidates))
		splits := make([][]float64, len(candidates))
		for c := range candidates {
			vals := make([]float64, nFolds)
			for f := 0; f < nFolds; f++ {
				vals[f] = scores[c][f][m]
			}
			mean, variance := stat.PopMeanVariance(vals, nil)
			means[c] = mean
			stds[c] = math.Sqrt(variance)
			splits[c] = vals
		}
		res.MeanTest[name] = means
		res.StdTest[name] = stds
		res.SplitTest[name] = splits
		res.RankTest[name] = rankMin(means)
	}
	return res
}

// rankMin ranks scores in descending order; ties share the lowest rank and
// NaN scores rank last.
func rankMin(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	key := func(i int) float64 {
		if math.IsNaN(scores[i]) {
			return math.Inf(-1)
		}
		return scores[i]
	}
	sort.SliceStable(order, func(a, b int) bool { return key(order[a]) > key(order[b]) })
	ranks := make([]int, len(scores))
	for pos, idx := range order {
		if pos > 0 && key(idx) == key(order[pos-1]) {
			ranks[idx] = ranks[order[pos-1]]
		} else {
			ranks[idx] = pos + 1
		}
	}
	return ranks
}

// bestIndex returns the first candidate with rank 1.
func bestIndex(ranks []int) int {
	for i, r := range ranks {
		if r == 1 {
			return i
		}
	}
	return 0
}

// CrossValScore fits a clone of est on each fold and returns the test
// score of the named scorer per fold.
func CrossValScore(ctx context.Context, est model.SKLearnCompatible, X, y mat.Matrix, cv Splitter, scoring string) ([]float64, error) {
	gs := &GridSearchCV{
		Estimator: est,
		ParamGrid: map[string][]interface{}{},
		Scoring:   []string{scoring},
		CV:        cv,
		NJobs:     1,
	}
	if err := gs.Fit(ctx, X, y); err != nil {
		return nil, err
	}
	return gs.CVResults.SplitTest[scoring][0], nil
}
