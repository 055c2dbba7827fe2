package naive_bayes

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// Two-term counts: class 0 favours the first term 3:1, class 1 the second.
func termCounts() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(4, 2, []float64{
		3, 0,
		2, 1,
		0, 2,
		1, 3,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	return X, y
}

func TestMultinomialNBSmoothedProbabilities(t *testing.T) {
	X, y := termCounts()
	nb := NewMultinomialNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	// Class 0 counts (5, 1) smooth to (6/8, 2/8).
	if got, want := nb.featureLogProb.At(0, 0), math.Log(0.75); math.Abs(got-want) > 1e-12 {
		t.Errorf("log P(term0|class0) = %v, want %v", got, want)
	}
	if got, want := nb.featureLogProb.At(1, 0), math.Log(0.25); math.Abs(got-want) > 1e-12 {
		t.Errorf("log P(term0|class1) = %v, want %v", got, want)
	}

	proba, err := nb.PredictProba(mat.NewDense(2, 2, []float64{4, 0, 1, 1}))
	if err != nil {
		t.Fatal(err)
	}
	if got := proba.At(0, 0); math.Abs(got-81.0/82) > 1e-12 {
		t.Errorf("P(class0 | 4,0) = %v, want 81/82", got)
	}
	if got := proba.At(1, 1); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("P(class1 | 1,1) = %v, want 0.5", got)
	}

	logProba, err := nb.PredictLogProba(mat.NewDense(1, 2, []float64{4, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if got := logProba.At(0, 0); math.Abs(got-math.Log(81.0/82)) > 1e-12 {
		t.Errorf("log proba = %v", got)
	}

	score, err := nb.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if score != 1 {
		t.Errorf("training accuracy = %v, want 1", score)
	}
}

func TestMultinomialNBPartialFitMatchesFit(t *testing.T) {
	X, y := termCounts()
	full := NewMultinomialNB()
	if err := full.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	online := NewMultinomialNB()
	if err := online.PartialFit(X.Slice(0, 1, 0, 2), y.Slice(0, 1, 0, 1), nil); err == nil {
		t.Fatal("expected error when classes are missing on the first call")
	}
	if err := online.PartialFit(X.Slice(0, 3, 0, 2), y.Slice(0, 3, 0, 1), []int{0, 1}); err != nil {
		t.Fatal(err)
	}
	if err := online.PartialFit(X.Slice(3, 4, 0, 2), y.Slice(3, 4, 0, 1), nil); err != nil {
		t.Fatal(err)
	}
	if online.NSamplesSeen() != 4 {
		t.Errorf("NSamplesSeen = %d, want 4", online.NSamplesSeen())
	}
	if !mat.EqualApprox(full.featureLogProb, online.featureLogProb, 1e-12) {
		t.Error("incremental counts differ from a single fit")
	}

	err := online.PartialFit(mat.NewDense(1, 2, []float64{1, 1}), mat.NewDense(1, 1, []float64{2}), nil)
	if err == nil {
		t.Error("expected error for a label outside the declared classes")
	}
}

func TestMultinomialNBPrior(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	y := mat.NewDense(4, 1, []float64{0, 0, 0, 1})
	row := mat.NewDense(1, 2, []float64{1, 1})

	for _, tt := range []struct {
		fitPrior bool
		want     float64
	}{{true, 0.75}, {false, 0.5}} {
		nb := NewMultinomialNB(WithFitPrior(tt.fitPrior))
		if err := nb.Fit(X, y); err != nil {
			t.Fatal(err)
		}
		proba, err := nb.PredictProba(row)
		if err != nil {
			t.Fatal(err)
		}
		if got := proba.At(0, 0); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("fitPrior=%v: P(class0) = %v, want %v", tt.fitPrior, got, tt.want)
		}
	}
}

func TestMultinomialNBZeroAlphaStaysFinite(t *testing.T) {
	// Each class never sees the other's term.
	X := mat.NewDense(2, 2, []float64{2, 0, 0, 2})
	y := mat.NewDense(2, 1, []float64{0, 1})
	nb := NewMultinomialNB(WithAlpha(0))
	if err := nb.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	proba, err := nb.PredictProba(mat.NewDense(1, 2, []float64{3, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if p := proba.At(0, 1); math.IsNaN(p) || p < 0 || p > 1e-6 {
		t.Errorf("P(class1) = %v, want a tiny finite value", p)
	}
}

func TestMultinomialNBErrors(t *testing.T) {
	X, y := termCounts()
	nb := NewMultinomialNB()

	_, err := nb.Predict(X)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	neg := mat.NewDense(2, 2, []float64{1, -0.5, 0, 1})
	if err := nb.Fit(neg, mat.NewDense(2, 1, []float64{0, 1})); err == nil {
		t.Error("expected error for negative counts")
	}

	if err := nb.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	_, err = nb.Predict(mat.NewDense(1, 3, nil))
	var dim *errors.DimensionError
	if !errors.As(err, &dim) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}

func TestMultinomialNBParams(t *testing.T) {
	nb := NewMultinomialNB()
	if err := nb.SetParams(map[string]interface{}{"alpha": 0.5, "fit_prior": false}); err != nil {
		t.Fatal(err)
	}
	clone := nb.Clone().(*MultinomialNB)
	if clone.alpha != 0.5 || clone.fitPrior {
		t.Errorf("clone params = %v", clone.GetParams())
	}
	if clone.state.IsFitted() {
		t.Error("clone must be unfitted")
	}
	if err := nb.SetParams(map[string]interface{}{"smoothing": 1}); err == nil {
		t.Error("expected error for unknown parameter")
	}
}
