package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// PositiveLabel is the label treated as the positive class by the binary
// precision, recall and F1 scores.
const PositiveLabel = 1.0

// Accuracy returns the fraction of samples where yPred equals yTrue.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// binaryCounts returns true positives, false positives and false negatives
// for the positive label.
func binaryCounts(yTrue, yPred *mat.VecDense, n int) (tp, fp, fn int) {
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i) == PositiveLabel
		p := yPred.AtVec(i) == PositiveLabel
		switch {
		case t && p:
			tp++
		case !t && p:
			fp++
		case t && !p:
			fn++
		}
	}
	return tp, fp, fn
}

// PrecisionScore returns tp / (tp + fp) for the positive label 1.
// When nothing is predicted positive the score is 0 and an
// UndefinedMetricWarning is emitted.
func PrecisionScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("PrecisionScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	tp, fp, _ := binaryCounts(yTrue, yPred, n)
	if tp+fp == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fp), nil
}

// RecallScore returns tp / (tp + fn) for the positive label 1.
// When there are no positive samples the score is 0 and an
// UndefinedMetricWarning is emitted.
func RecallScore(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("RecallScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	tp, _, fn := binaryCounts(yTrue, yPred, n)
	if tp+fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
		return 0, nil
	}
	return float64(tp) / float64(tp+fn), nil
}

// F1Score returns the harmonic mean of precision and recall for the
// positive label 1, computed as 2tp / (2tp + fp + fn).
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("F1Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	tp, fp, fn := binaryCounts(yTrue, yPred, n)
	if 2*tp+fp+fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f1", "no true nor predicted samples", 0))
		return 0, nil
	}
	return 2 * float64(tp) / float64(2*tp+fp+fn), nil
}

// ConfusionMatrix counts samples with true label labels[i] predicted as
// labels[j] in cell (i, j). A nil labels slice uses the sorted union of
// labels present in yTrue and yPred. Samples whose labels are not listed
// are ignored.
func ConfusionMatrix(yTrue, yPred *mat.VecDense, labels []float64) (*mat.Dense, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = UniqueLabels(yTrue, yPred)
	}
	if len(labels) == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "labels must not be empty")
	}
	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r, okT := index[yTrue.AtVec(i)]
		c, okP := index[yPred.AtVec(i)]
		if okT && okP {
			cm.Set(r, c, cm.At(r, c)+1)
		}
	}
	return cm, nil
}

// UniqueLabels returns the sorted distinct values found in the given vectors.
func UniqueLabels(vs ...*mat.VecDense) []float64 {
	seen := make(map[float64]struct{})
	for _, v := range vs {
		if v == nil {
			continue
		}
		for i := 0; i < v.Len(); i++ {
			seen[v.AtVec(i)] = struct{}{}
		}
	}
	out := make([]float64, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Float64s(out)
	return out
}

// ClassMetrics holds per-class scores of a ClassificationReport.
type ClassMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassificationReport summarises per-class precision, recall and F1
// together with accuracy and macro and weighted averages.
type ClassificationReport struct {
	Classes     []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Total       int
	Digits      int
}

// NewClassificationReport builds a report for the sorted labels present in
// yTrue and yPred. targetNames, if given, must match the number of labels.
func NewClassificationReport(yTrue, yPred *mat.VecDense, targetNames []string) (*ClassificationReport, error) {
	labels := UniqueLabels(yTrue, yPred)
	cm, err := ConfusionMatrix(yTrue, yPred, labels)
	if err != nil {
		return nil, err
	}
	if targetNames != nil && len(targetNames) != len(labels) {
		return nil, errors.NewValueError("ClassificationReport",
			fmt.Sprintf("number of classes, %d, does not match size of target_names, %d", len(labels), len(targetNames)))
	}

	k := len(labels)
	report := &ClassificationReport{Digits: 2}
	var correct int
	for i := 0; i < k; i++ {
		tp := cm.At(i, i)
		var predicted, actual float64
		for j := 0; j < k; j++ {
			predicted += cm.At(j, i)
			actual += cm.At(i, j)
		}
		correct += int(tp)
		name := fmt.Sprintf("%g", labels[i])
		if targetNames != nil {
			name = targetNames[i]
		}
		m := ClassMetrics{Label: name, Support: int(actual)}
		if predicted > 0 {
			m.Precision = tp / predicted
		}
		if actual > 0 {
			m.Recall = tp / actual
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.Classes = append(report.Classes, m)
		report.Total += m.Support
	}
	report.Accuracy = float64(correct) / float64(report.Total)

	report.MacroAvg = ClassMetrics{Label: "macro avg", Support: report.Total}
	report.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: report.Total}
	for _, m := range report.Classes {
		w := float64(m.Support) / float64(report.Total)
		report.MacroAvg.Precision += m.Precision / float64(k)
		report.MacroAvg.Recall += m.Recall / float64(k)
		report.MacroAvg.F1 += m.F1 / float64(k)
		report.WeightedAvg.Precision += m.Precision * w
		report.WeightedAvg.Recall += m.Recall * w
		report.WeightedAvg.F1 += m.F1 * w
	}
	return report, nil
}

// String renders the report in the familiar scikit-learn text layout.
func (r *ClassificationReport) String() string {
	width := len("weighted avg")
	for _, m := range r.Classes {
		if len(m.Label) > width {
			width = len(m.Label)
		}
	}
	d := r.Digits
	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(m ClassMetrics) {
		fmt.Fprintf(&b, "%*s  %9.*f %9.*f %9.*f %9d\n", width, m.Label, d, m.Precision, d, m.Recall, d, m.F1, m.Support)
	}
	for _, m := range r.Classes {
		row(m)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.*f %9d\n", width, "accuracy", "", "", d, r.Accuracy, r.Total)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}

// AUC computes the area under the ROC curve for binary labels {0, 1} using
// the rank statistic. Tied scores contribute one half. If only one class is
// present the AUC is undefined and 0.5 is returned.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue, n); err != nil {
		return 0, err
	}

	var pos, neg []float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			pos = append(pos, yPred.AtVec(i))
		} else {
			neg = append(neg, yPred.AtVec(i))
		}
	}
	if len(pos) == 0 || len(neg) == 0 {
		return 0.5, nil
	}

	sort.Float64s(neg)
	var sum float64
	for _, p := range pos {
		below := sort.SearchFloat64s(neg, p)
		upTo := sort.Search(len(neg), func(i int) bool { return neg[i] > p })
		sum += float64(below) + 0.5*float64(upTo-below)
	}
	return sum / float64(len(pos)*len(neg)), nil
}

// AUCMatrix is AUC on the first column of two matrices.
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, err := firstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := firstColumn("AUCMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return AUC(t, p)
}

// BinaryLogLoss returns the mean negative log-likelihood of binary labels
// given predicted probabilities of the positive class. Probabilities are
// clipped to [eps, 1-eps].
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue, n); err != nil {
		return 0, err
	}
	const eps = 1e-15
	var loss float64
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yPred.AtVec(i), eps), 1-eps)
		if yTrue.AtVec(i) == 1 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(n), nil
}

// ColumnVec copies column j of m into a vector. Estimator predictions are
// n x 1 matrices, so ColumnVec(pred, 0) turns them into metric inputs.
func ColumnVec(m mat.Matrix, j int) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, j))
	}
	return v
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.IsEmpty() || yPred.IsEmpty() {
		return 0, errors.Wrapf(errors.ErrEmptyData, "%s", op)
	}
	if yTrue.Len() != yPred.Len() {
		return 0, errors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return yTrue.Len(), nil
}

func checkBinary(op string, y *mat.VecDense, n int) error {
	for i := 0; i < n; i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, fmt.Sprintf("labels must be binary {0, 1}, got %v", v))
		}
	}
	return nil
}

func firstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: nil matrix", op)
	}
	if d, ok := m.(*mat.Dense); ok && d.IsEmpty() {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: empty matrix", op)
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: empty matrix", op)
	}
	return ColumnVec(m, 0), nil
}
