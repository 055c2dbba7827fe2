package naive_bayes

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// twoBands has class 0 at {1, 3} and class 1 at {7, 9}: both classes have
// variance 1 and equal priors.
func twoBands() (*mat.Dense, *mat.Dense) {
	return mat.NewDense(4, 1, []float64{1, 3, 7, 9}), mat.NewDense(4, 1, []float64{0, 0, 1, 1})
}

func TestGaussianNBPosteriorMatchesClosedForm(t *testing.T) {
	X, y := twoBands()
	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	proba, err := nb.PredictProba(mat.NewDense(2, 1, []float64{5, 2}))
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	// Midway between the means the posterior is even.
	if got := proba.At(0, 0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("P(0|x=5) = %v, want 0.5", got)
	}
	// At x=2 the log-odds are ((2-8)^2 - (2-2)^2) / 2 = 18.
	want := 1 / (1 + math.Exp(-18))
	if got := proba.At(1, 0); math.Abs(got-want) > 1e-6 {
		t.Errorf("P(0|x=2) = %v, want %v", got, want)
	}
	for i := 0; i < 2; i++ {
		if s := proba.At(i, 0) + proba.At(i, 1); math.Abs(s-1) > 1e-12 {
			t.Errorf("row %d sums to %v", i, s)
		}
	}

	logp, err := nb.PredictLogProba(mat.NewDense(1, 1, []float64{5}))
	if err != nil {
		t.Fatalf("PredictLogProba: %v", err)
	}
	if math.Abs(logp.At(0, 1)-math.Log(0.5)) > 1e-9 {
		t.Errorf("log P(1|x=5) = %v", logp.At(0, 1))
	}
}

func TestGaussianNBPriorShiftsBoundary(t *testing.T) {
	// Class 0 is three times as common, so the midpoint leans towards it.
	X := mat.NewDense(8, 1, []float64{1, 3, 1, 3, 1, 3, 7, 9})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 0, 0, 1, 1})
	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	proba, err := nb.PredictProba(mat.NewDense(1, 1, []float64{5}))
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	if got := proba.At(0, 0); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("P(0|x=5) = %v, want the prior 0.75", got)
	}
	if score, err := nb.Score(X, y); err != nil || score != 1 {
		t.Errorf("Score = %v, %v", score, err)
	}
}

func TestGaussianNBConstantFeatureStaysFinite(t *testing.T) {
	// HasCrCard is 1 for every customer; only Age is informative.
	X := mat.NewDense(4, 2, []float64{
		1, 25,
		1, 31,
		1, 58,
		1, 64,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	logp, err := nb.PredictLogProba(X)
	if err != nil {
		t.Fatalf("PredictLogProba: %v", err)
	}
	for i := 0; i < 4; i++ {
		for c := 0; c < 2; c++ {
			if v := logp.At(i, c); math.IsNaN(v) || math.IsInf(v, 1) {
				t.Fatalf("log proba (%d, %d) = %v", i, c, v)
			}
		}
	}
	pred, _ := nb.Predict(X)
	for i, want := range []float64{0, 0, 1, 1} {
		if pred.At(i, 0) != want {
			t.Errorf("row %d predicted %v", i, pred.At(i, 0))
		}
	}
}

func TestGaussianNBErrors(t *testing.T) {
	X, y := twoBands()
	var nf *errors.NotFittedError
	if _, err := NewGaussianNB().Predict(X); !errors.As(err, &nf) {
		t.Errorf("Predict before Fit: %v", err)
	}

	bad := mat.NewDense(4, 1, []float64{1, math.NaN(), 7, 9})
	var numErr *errors.NumericalInstabilityError
	if err := NewGaussianNB().Fit(bad, y); !errors.As(err, &numErr) {
		t.Errorf("Fit with NaN: %v", err)
	}

	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	var dimErr *errors.DimensionError
	if _, err := nb.Predict(mat.NewDense(1, 2, nil)); !errors.As(err, &dimErr) {
		t.Errorf("Predict with 2 features: %v", err)
	}
}

func TestNaiveBayesParams(t *testing.T) {
	g := NewGaussianNB(WithVarSmoothing(1e-6))
	if got := g.GetParams()["var_smoothing"]; got != 1e-6 {
		t.Errorf("var_smoothing = %v", got)
	}
	if err := g.SetParams(map[string]interface{}{"var_smoothing": 1e-3}); err != nil {
		t.Fatal(err)
	}
	if got := g.Clone().GetParams()["var_smoothing"]; got != 1e-3 {
		t.Errorf("clone var_smoothing = %v", got)
	}

	m := NewMultinomialNB()
	if err := m.SetParams(map[string]interface{}{"alpha": 0.5, "fit_prior": false}); err != nil {
		t.Fatal(err)
	}
	clone := m.Clone().(*MultinomialNB)
	if clone.alpha != 0.5 || clone.fitPrior {
		t.Errorf("clone params = %v", clone.GetParams())
	}
	for _, nb := range []interface {
		SetParams(map[string]interface{}) error
	}{g, m} {
		if err := nb.SetParams(map[string]interface{}{"max_depth": 3}); err == nil {
			t.Errorf("%T accepted an unknown parameter", nb)
		}
	}
}
