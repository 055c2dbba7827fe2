package tree

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
)

// ageBalance is a small churn table: age separates the classes at 48.5,
// balance does not.
func ageBalance() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(10, 2, []float64{
		22, 120,
		31, 0,
		38, 88,
		41, 15,
		45, 60,
		52, 90,
		57, 5,
		61, 110,
		66, 40,
		70, 70,
	})
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1})
	return X, y
}

// alternating returns a single feature 1..n with labels 0,1,0,1,...
func alternating(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i+1))
		y.Set(i, 0, float64(i%2))
	}
	return X, y
}

func TestDecisionTreeClassifier_SplitsOnInformativeFeature(t *testing.T) {
	X, y := ageBalance()
	dt := NewDecisionTreeClassifier(WithRandomState(3))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	root := dt.Nodes()[0]
	if root.Feature != 0 || root.Threshold != 48.5 {
		t.Errorf("root split = feature %d <= %v, want feature 0 <= 48.5", root.Feature, root.Threshold)
	}
	if dt.GetDepth() != 1 || dt.GetNLeaves() != 2 {
		t.Errorf("depth/leaves = %d/%d, want 1/2", dt.GetDepth(), dt.GetNLeaves())
	}
	if got := dt.Score(X, y); got != 1 {
		t.Errorf("training accuracy = %v, want 1", got)
	}

	imp := dt.GetFeatureImportances()
	if math.Abs(imp[0]-1) > 1e-12 || imp[1] != 0 {
		t.Errorf("importances = %v, want [1 0]", imp)
	}

	pred, err := dt.Predict(mat.NewDense(2, 2, []float64{48, 500, 49, 0}))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.At(0, 0) != 0 || pred.At(1, 0) != 1 {
		t.Errorf("predictions around the threshold = [%v %v], want [0 1]", pred.At(0, 0), pred.At(1, 0))
	}
}

func TestDecisionTreeClassifier_LeafProbabilities(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{0, 0, 1, 0, 1, 1})

	// Splits at 2.5 and 4.5 score equally; the first one scanned wins.
	dt := NewDecisionTreeClassifier(WithMaxDepth(1))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if th := dt.Nodes()[0].Threshold; th != 2.5 {
		t.Fatalf("threshold = %v, want 2.5", th)
	}

	proba, err := dt.PredictProba(mat.NewDense(2, 1, []float64{1, 6}))
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	want := [][]float64{{1, 0}, {0.25, 0.75}}
	for i, row := range want {
		sum := 0.0
		for k, p := range row {
			if math.Abs(proba.At(i, k)-p) > 1e-12 {
				t.Errorf("proba[%d][%d] = %v, want %v", i, k, proba.At(i, k), p)
			}
			sum += proba.At(i, k)
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("row %d sums to %v", i, sum)
		}
	}
}

func TestDecisionTreeClassifier_ThreeTenureBands(t *testing.T) {
	X := mat.NewDense(9, 1, []float64{0, 1, 2, 4, 5, 6, 8, 9, 10})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	dt := NewDecisionTreeClassifier()
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if dt.NClasses() != 3 {
		t.Fatalf("NClasses = %d, want 3", dt.NClasses())
	}
	for k, c := range dt.Classes() {
		if c != float64(k) {
			t.Errorf("Classes()[%d] = %v", k, c)
		}
	}

	pred, err := dt.Predict(mat.NewDense(3, 1, []float64{1.5, 5.5, 9.5}))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := 0; i < 3; i++ {
		if pred.At(i, 0) != float64(i) {
			t.Errorf("band %d predicted as %v", i, pred.At(i, 0))
		}
	}
	proba, _ := dt.PredictProba(mat.NewDense(1, 1, []float64{5}))
	if _, c := proba.Dims(); c != 3 {
		t.Errorf("proba columns = %d, want 3", c)
	}
}

func TestDecisionTreeClassifier_EntropyRootImpurity(t *testing.T) {
	X, y := ageBalance()
	gini := NewDecisionTreeClassifier()
	entropy := NewDecisionTreeClassifier(WithCriterion("entropy"))
	for _, dt := range []*DecisionTreeClassifier{gini, entropy} {
		if err := dt.Fit(X, y); err != nil {
			t.Fatalf("Fit: %v", err)
		}
	}

	if got := gini.Nodes()[0].Impurity; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("gini root impurity = %v, want 0.5", got)
	}
	if got := entropy.Nodes()[0].Impurity; math.Abs(got-1) > 1e-12 {
		t.Errorf("entropy root impurity = %v, want 1 bit", got)
	}
	if entropy.Nodes()[0].Threshold != gini.Nodes()[0].Threshold {
		t.Errorf("criteria disagree on a perfectly separable split")
	}
}

func TestDecisionTreeClassifier_DepthLimits(t *testing.T) {
	X, y := alternating(8)

	full := NewDecisionTreeClassifier()
	if err := full.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if full.Score(X, y) != 1 {
		t.Errorf("unlimited tree should memorise the training set")
	}

	for _, depth := range []int{1, 2, 3} {
		dt := NewDecisionTreeClassifier(WithMaxDepth(depth))
		if err := dt.Fit(X, y); err != nil {
			t.Fatalf("Fit depth %d: %v", depth, err)
		}
		if dt.GetDepth() > depth {
			t.Errorf("max_depth=%d grew depth %d", depth, dt.GetDepth())
		}
		if dt.GetNLeaves() > 1<<depth {
			t.Errorf("max_depth=%d has %d leaves", depth, dt.GetNLeaves())
		}
	}
}

func TestDecisionTreeClassifier_MinSamplesLeaf(t *testing.T) {
	X, y := alternating(12)
	dt := NewDecisionTreeClassifier(WithMinSamplesLeaf(3))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for i, n := range dt.Nodes() {
		if n.IsLeaf() && n.NSamples < 3 {
			t.Errorf("leaf %d holds %d samples", i, n.NSamples)
		}
	}

	split := NewDecisionTreeClassifier(WithMinSamplesSplit(13))
	if err := split.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if split.GetNLeaves() != 1 {
		t.Errorf("min_samples_split above n should leave a stump, got %d leaves", split.GetNLeaves())
	}
}

func TestDecisionTreeClassifier_InvalidParams(t *testing.T) {
	X, y := ageBalance()
	cases := map[string]*DecisionTreeClassifier{
		"criterion":         NewDecisionTreeClassifier(WithCriterion("log_loss")),
		"min_samples_split": NewDecisionTreeClassifier(WithMinSamplesSplit(1)),
		"min_samples_leaf":  NewDecisionTreeClassifier(WithMinSamplesLeaf(0)),
		"max_features":      NewDecisionTreeClassifier(WithMaxFeatures(1.5)),
	}
	for name, dt := range cases {
		if err := dt.Fit(X, y); err == nil || !strings.Contains(err.Error(), name) {
			t.Errorf("%s: got %v, want a validation error naming it", name, err)
		}
	}

	if err := NewDecisionTreeClassifier().Fit(X, mat.NewDense(3, 1, nil)); err == nil {
		t.Error("expected dimension error for short y")
	}
	if err := NewDecisionTreeClassifier().FitWeighted(X, y, make([]float64, 10)); err == nil {
		t.Error("expected error when every weight is zero")
	}
}

func TestDecisionTreeClassifier_GetSetParams(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	params := dt.GetParams()
	if params["criterion"] != "gini" || params["max_depth"] != nil || params["random_state"] != nil {
		t.Errorf("defaults = %v", params)
	}

	err := dt.SetParams(map[string]interface{}{
		"criterion":        "entropy",
		"max_depth":        4,
		"min_samples_leaf": 2,
		"max_features":     "sqrt",
		"random_state":     7,
	})
	if err != nil {
		t.Fatalf("SetParams: %v", err)
	}
	params = dt.GetParams()
	if params["criterion"] != "entropy" || params["max_depth"] != 4 || params["min_samples_leaf"] != 2 {
		t.Errorf("updated params = %v", params)
	}
	if params["max_features"] != "sqrt" || params["random_state"] != int64(7) {
		t.Errorf("max_features/random_state = %v/%v", params["max_features"], params["random_state"])
	}

	if err := dt.SetParams(map[string]interface{}{"max_depth": nil}); err != nil {
		t.Fatalf("SetParams(nil depth): %v", err)
	}
	if dt.GetParams()["max_depth"] != nil {
		t.Error("nil max_depth should mean unlimited")
	}
	if err := dt.SetParams(map[string]interface{}{"max_features": "log2"}); err == nil {
		t.Error("expected error for unsupported max_features string")
	}
	if err := dt.SetParams(map[string]interface{}{"splitter": "best"}); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

// TestDecisionTreeClassifier_NotFitted tests error when predicting without fitting
func TestDecisionTreeClassifier_NotFitted(t *testing.T) {
	dt := NewDecisionTreeClassifier()

	X := mat.NewDense(2, 2, []float64{
		1, 2,
		3, 4,
	})

	_, err := dt.Predict(X)
	if err == nil {
		t.Error("Expected error when predicting without fitting")
	}

	_, err = dt.PredictProba(X)
	if err == nil {
		t.Error("Expected error when predicting probabilities without fitting")
	}
}

// TestDecisionTreeClassifier_CloneAndParams tests that clones keep hyperparameters but not fitted state
func TestDecisionTreeClassifier_CloneAndParams(t *testing.T) {
	dt := NewDecisionTreeClassifier(WithMaxDepth(3), WithMaxFeatures(MaxFeaturesSqrt), WithRandomState(7))
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	clone := dt.Clone().(*DecisionTreeClassifier)
	if clone.IsFitted() {
		t.Error("clone should not be fitted")
	}
	params := clone.GetParams()
	if params["max_depth"] != 3 {
		t.Errorf("max_depth = %v, want 3", params["max_depth"])
	}
	if params["max_features"] != "sqrt" {
		t.Errorf("max_features = %v, want sqrt", params["max_features"])
	}
	if params["random_state"] != int64(7) {
		t.Errorf("random_state = %v, want 7", params["random_state"])
	}

	if err := clone.SetParams(map[string]interface{}{"max_depth": nil}); err != nil {
		t.Fatal(err)
	}
	if clone.GetParams()["max_depth"] != nil {
		t.Error("max_depth nil should mean unlimited")
	}
	if err := clone.SetParams(map[string]interface{}{"n_estimators": 10}); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

// TestDecisionTreeClassifier_Deterministic tests that a fixed random state reproduces the tree
func TestDecisionTreeClassifier_Deterministic(t *testing.T) {
	X := mat.NewDense(12, 3, nil)
	y := mat.NewDense(12, 1, nil)
	for i := 0; i < 12; i++ {
		X.Set(i, 0, float64(i%3))
		X.Set(i, 1, float64(i%4))
		X.Set(i, 2, float64(i))
		y.Set(i, 0, float64((i/2)%2))
	}

	a := NewDecisionTreeClassifier(WithRandomState(42), WithMaxFeatures(0.5))
	b := NewDecisionTreeClassifier(WithRandomState(42), WithMaxFeatures(0.5))
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	ta, _ := a.ExportText(nil, 0)
	tb, _ := b.ExportText(nil, 0)
	if ta != tb {
		t.Errorf("same seed produced different trees:\n%s\n%s", ta, tb)
	}
}

// TestDecisionTreeClassifier_ExportText tests the text rendering of the top splits
func TestDecisionTreeClassifier_ExportText(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		3, 3,
		3, 4,
		4, 3,
		4, 4,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier(WithRandomState(0))
	if _, err := dt.ExportText(nil, 2); err == nil {
		t.Error("expected error before fit")
	}
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	text, err := dt.ExportText([]string{"balance", "age"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "<= 2.00") {
		t.Errorf("expected threshold 2.00 in:\n%s", text)
	}
	if !strings.Contains(text, "samples = 8") {
		t.Errorf("expected root sample count in:\n%s", text)
	}
	if !strings.Contains(text, "class: 1") || !strings.Contains(text, "class: 0") {
		t.Errorf("expected both leaves in:\n%s", text)
	}

	if _, err := dt.ExportText([]string{"only"}, 2); err == nil {
		t.Error("expected error for wrong number of feature names")
	}
}

// TestDecisionTreeClassifier_SampleWeights tests that zero-weight samples are ignored
func TestDecisionTreeClassifier_SampleWeights(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	dt := NewDecisionTreeClassifier()
	if err := dt.FitWeighted(X, y, []float64{1, 1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if dt.NClasses() != 2 {
		t.Errorf("classes should come from all labels, got %d", dt.NClasses())
	}
	if dt.GetNLeaves() != 1 {
		t.Errorf("only class 0 has weight, expected a single leaf, got %d", dt.GetNLeaves())
	}
	pred, err := dt.Predict(mat.NewDense(1, 1, []float64{3}))
	if err != nil {
		t.Fatal(err)
	}
	if pred.At(0, 0) != 0 {
		t.Errorf("expected class 0, got %v", pred.At(0, 0))
	}
}

// TestDecisionTreeClassifier_GobRoundTrip tests persistence of a fitted tree
func TestDecisionTreeClassifier_GobRoundTrip(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	dt := NewDecisionTreeClassifier(WithMaxDepth(2))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := model.SaveModelToWriter(dt, &buf); err != nil {
		t.Fatal(err)
	}
	loaded := NewDecisionTreeClassifier()
	if err := model.LoadModelFromReader(loaded, &buf); err != nil {
		t.Fatal(err)
	}
	if got := loaded.Score(X, y); got != 1.0 {
		t.Errorf("loaded tree score = %v", got)
	}
	if loaded.GetParams()["max_depth"] != 2 {
		t.Errorf("max_depth not restored")
	}
}

// TestDecisionTreeClassifier_FeatureMismatch tests predicting with the wrong number of columns
func TestDecisionTreeClassifier_FeatureMismatch(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	if err := dt.Fit(mat.NewDense(2, 2, []float64{0, 0, 1, 1}), mat.NewDense(2, 1, []float64{0, 1})); err != nil {
		t.Fatal(err)
	}
	if _, err := dt.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected dimension error")
	}
}
