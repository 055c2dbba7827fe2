package model_selection

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/metrics"
	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// Scorer evaluates a fitted estimator on held-out data. Higher is better.
type Scorer func(est model.Estimator, X, y mat.Matrix) (float64, error)

func predictionScorer(metric func(yTrue, yPred *mat.VecDense) (float64, error)) Scorer {
	return func(est model.Estimator, X, y mat.Matrix) (float64, error) {
		pred, err := est.Predict(X)
		if err != nil {
			return 0, err
		}
		return metric(metrics.ColumnVec(y, 0), metrics.ColumnVec(pred, 0))
	}
}

func positiveProba(est model.Estimator, X mat.Matrix) (*mat.VecDense, error) {
	pc, ok := est.(model.ProbabilisticClassifier)
	if !ok {
		return nil, errors.NewValueError("scoring", "estimator does not implement PredictProba")
	}
	proba, err := pc.PredictProba(X)
	if err != nil {
		return nil, err
	}
	_, cols := proba.Dims()
	col := cols - 1
	if cl, ok := est.(model.ClassLister); ok {
		for k, c := range cl.Classes() {
			if c == metrics.PositiveLabel {
				col = k
			}
		}
	}
	return metrics.ColumnVec(proba, col), nil
}

var scorers = map[string]Scorer{
	"accuracy":  predictionScorer(metrics.Accuracy),
	"precision": predictionScorer(metrics.PrecisionScore),
	"recall":    predictionScorer(metrics.RecallScore),
	"f1":        predictionScorer(metrics.F1Score),
	"roc_auc": func(est model.Estimator, X, y mat.Matrix) (float64, error) {
		p, err := positiveProba(est, X)
		if err != nil {
			return 0, err
		}
		return metrics.AUC(metrics.ColumnVec(y, 0), p)
	},
	"neg_log_loss": func(est model.Estimator, X, y mat.Matrix) (float64, error) {
		p, err := positiveProba(est, X)
		if err != nil {
			return 0, err
		}
		loss, err := metrics.BinaryLogLoss(metrics.ColumnVec(y, 0), p)
		return -loss, err
	},
}

// GetScorer returns the scorer registered under name.
func GetScorer(name string) (Scorer, error) {
	s, ok := scorers[name]
	if !ok {
		return nil, errors.NewValidationError("scoring", "unknown scorer, expected one of "+scorerNames(), name)
	}
	return s, nil
}

func scorerNames() string {
	names := make([]string, 0, len(scorers))
	for k := range scorers {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
