package report

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/metrics"
	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// Evaluation holds the held-out scores of one model.
type Evaluation struct {
	Name            string
	Labels          []float64
	ConfusionMatrix *mat.Dense
	Report          *metrics.ClassificationReport
	Accuracy        float64
	Precision       float64
	Recall          float64
	F1              float64
}

// Evaluate predicts X with m and scores the predictions against y. Binary
// precision, recall and F1 treat label 1 as positive. targetNames label the
// classification report rows and may be nil.
func Evaluate(name string, m model.Predictor, X, y mat.Matrix, targetNames []string) (*Evaluation, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: predict", name)
	}
	yTrue := metrics.ColumnVec(y, 0)
	yPred := metrics.ColumnVec(pred, 0)
	var classes []float64
	if cl, ok := m.(model.ClassLister); ok {
		classes = cl.Classes()
	}
	return evaluate(name, yTrue, yPred, classes, targetNames)
}

// EvaluatePredictions scores precomputed predictions.
func EvaluatePredictions(name string, yTrue, yPred *mat.VecDense, targetNames []string) (*Evaluation, error) {
	return evaluate(name, yTrue, yPred, nil, targetNames)
}

// evaluate builds the confusion matrix over the model's classes plus any
// label seen in yTrue or yPred, so a split holding one class still gets
// a row and column for every class.
func evaluate(name string, yTrue, yPred *mat.VecDense, classes []float64, targetNames []string) (*Evaluation, error) {
	seen := []*mat.VecDense{yTrue, yPred}
	if len(classes) > 0 {
		seen = append(seen, mat.NewVecDense(len(classes), append([]float64(nil), classes...)))
	}
	ev := &Evaluation{Name: name, Labels: metrics.UniqueLabels(seen...)}
	var err error
	if ev.ConfusionMatrix, err = metrics.ConfusionMatrix(yTrue, yPred, ev.Labels); err != nil {
		return nil, err
	}
	if total := mat.Sum(ev.ConfusionMatrix); int(total) != yTrue.Len() {
		return nil, errors.NewValueError("Evaluate",
			fmt.Sprintf("confusion matrix sums to %v, want %d", total, yTrue.Len()))
	}
	if ev.Report, err = metrics.NewClassificationReport(yTrue, yPred, targetNames); err != nil {
		return nil, err
	}
	if ev.Accuracy, err = metrics.Accuracy(yTrue, yPred); err != nil {
		return nil, err
	}
	if len(ev.Labels) <= 2 {
		if ev.Precision, err = metrics.PrecisionScore(yTrue, yPred); err != nil {
			return nil, err
		}
		if ev.Recall, err = metrics.RecallScore(yTrue, yPred); err != nil {
			return nil, err
		}
		if ev.F1, err = metrics.F1Score(yTrue, yPred); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// Row returns the evaluation as a results table row.
func (e *Evaluation) Row() ResultRow {
	return ResultRow{
		Model:     e.Name,
		F1:        e.F1,
		Recall:    e.Recall,
		Precision: e.Precision,
		Accuracy:  e.Accuracy,
	}
}

func (e *Evaluation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", e.Name)
	fmt.Fprintf(&b, "confusion matrix (labels %v):\n%v\n\n", e.Labels, mat.Formatted(e.ConfusionMatrix))
	b.WriteString(e.Report.String())
	return b.String()
}
