package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/sklearn/model_selection"
)

func fittedSearch() *model_selection.GridSearchCV {
	params := []map[string]interface{}{
		{"max_depth": 2},
		{"max_depth": 4},
		{"max_depth": 6},
	}
	return &model_selection.GridSearchCV{
		Refit:      "f1",
		RunID:      "run-1",
		BestIndex:  1,
		BestScore:  0.61,
		BestParams: params[1],
		CVResults: &model_selection.CVResults{
			Params:  params,
			Metrics: []string{"accuracy", "precision", "recall", "f1"},
			NSplits: 2,
			MeanTest: map[string][]float64{
				"accuracy":  {0.80, 0.86, 0.85},
				"precision": {0.70, 0.78, 0.81},
				"recall":    {0.40, 0.50, 0.55},
				"f1":        {0.50, 0.61, 0.61},
			},
			StdTest: map[string][]float64{
				"accuracy":  {0.01, 0.02, 0.03},
				"precision": {0.01, 0.02, 0.03},
				"recall":    {0.01, 0.02, 0.03},
				"f1":        {0.01, math.NaN(), 0.03},
			},
			RankTest: map[string][]int{
				"accuracy":  {3, 1, 2},
				"precision": {3, 2, 1},
				"recall":    {3, 2, 1},
				"f1":        {3, 1, 1},
			},
			SplitTest: map[string][][]float64{
				"accuracy":  {{0.8, 0.8}, {0.85, 0.87}, {0.84, 0.86}},
				"precision": {{0.7, 0.7}, {0.77, 0.79}, {0.8, 0.82}},
				"recall":    {{0.4, 0.4}, {0.5, 0.5}, {0.5, 0.6}},
				"f1":        {{0.5, 0.5}, {0.6, 0.62}, {0.6, 0.62}},
			},
			MeanFitTime: []float64{0.01, 0.02, 0.03},
		},
	}
}

func TestMakeResults(t *testing.T) {
	row, err := MakeResults("tree cv", fittedSearch())
	require.NoError(t, err)
	// Candidates 1 and 2 tie on F1; the first one wins.
	assert.Equal(t, ResultRow{Model: "tree cv", F1: 0.61, Recall: 0.50, Precision: 0.78, Accuracy: 0.86}, row)

	row, err = MakeResultsBy("tree cv", fittedSearch(), "recall")
	require.NoError(t, err)
	assert.Equal(t, 0.55, row.Recall)
	assert.Equal(t, 0.85, row.Accuracy)
}

func TestMakeResultsErrors(t *testing.T) {
	_, err := MakeResults("x", &model_selection.GridSearchCV{})
	require.Error(t, err)

	gs := fittedSearch()
	delete(gs.CVResults.MeanTest, "precision")
	_, err = MakeResults("x", gs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precision")
}

func TestTableCSVRoundTrip(t *testing.T) {
	table := &Table{}
	table.Append(
		ResultRow{Model: "tree1 cv", F1: 0.5, Recall: 0.25, Precision: 0.75, Accuracy: 0.8},
		ResultRow{Model: "tree2 cv", F1: 0.625, Recall: 0.5, Precision: 0.875, Accuracy: 0.85},
	)
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	require.NoError(t, table.WriteCSV(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	want := ",Model,F1,Recall,Precision,Accuracy\n" +
		"0,tree1 cv,0.5,0.25,0.75,0.8\n" +
		"1,tree2 cv,0.625,0.5,0.875,0.85\n"
	assert.Equal(t, want, string(raw))

	back, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, table.Rows, back.Rows)

	gzPath := filepath.Join(dir, "results.csv.gz")
	require.NoError(t, table.WriteCSV(gzPath))
	back, err = ReadCSV(gzPath)
	require.NoError(t, err)
	assert.Equal(t, table.Rows, back.Rows)

	assert.True(t, strings.Contains(table.String(), "tree2 cv"))
}

func TestTableXLSX(t *testing.T) {
	table := &Table{Rows: []ResultRow{{Model: "rf cv", F1: 0.9, Recall: 0.95, Precision: 0.85, Accuracy: 0.92}}}
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, table.WriteXLSX(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("results")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "rf cv", rows[1][0])
	assert.Equal(t, "0.95", rows[1][2])
}

func TestWriteCVResultsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.json")
	require.NoError(t, WriteCVResultsJSON(path, fittedSearch()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "run-1", doc["run_id"])
	assert.Equal(t, "f1", doc["refit"])

	cv := doc["cv_results"].(map[string]interface{})
	std := cv["std_test_f1"].([]interface{})
	assert.Nil(t, std[1])
	assert.Equal(t, 0.03, std[2])
	assert.Contains(t, cv, "split1_test_recall")
	assert.Contains(t, cv, "param_max_depth")
}

type constPredictor struct{ pred []float64 }

func (c constPredictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	return mat.NewVecDense(len(c.pred), c.pred), nil
}

func TestEvaluate(t *testing.T) {
	y := mat.NewVecDense(6, []float64{1, 1, 1, 0, 0, 0})
	m := constPredictor{pred: []float64{1, 1, 0, 0, 0, 1}}
	X := mat.NewDense(6, 1, nil)

	ev, err := Evaluate("champion", m, X, y, []string{"opinion", "claim"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, ev.Labels)
	assert.Equal(t, 6.0, mat.Sum(ev.ConfusionMatrix))
	assert.Equal(t, 2.0, ev.ConfusionMatrix.At(0, 0))
	assert.Equal(t, 1.0, ev.ConfusionMatrix.At(0, 1))
	assert.InDelta(t, 2.0/3, ev.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3, ev.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, ev.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, ev.F1, 1e-12)
	assert.Equal(t, "claim", ev.Report.Classes[1].Label)
	assert.Equal(t, "champion", ev.Row().Model)
	assert.Contains(t, ev.String(), "precision")
}

type fittedPredictor struct {
	constPredictor
	classes []float64
}

func (f fittedPredictor) Classes() []float64 { return f.classes }

func TestEvaluateOneClassSplitKeepsModelClasses(t *testing.T) {
	y := mat.NewVecDense(3, []float64{0, 0, 0})
	m := fittedPredictor{constPredictor{pred: []float64{0, 0, 0}}, []float64{0, 1}}

	ev, err := Evaluate("stayed only", m, mat.NewDense(3, 1, nil), y, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, ev.Labels)
	r, c := ev.ConfusionMatrix.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 3.0, ev.ConfusionMatrix.At(0, 0))
	assert.Equal(t, 3.0, mat.Sum(ev.ConfusionMatrix))

	plain, err := Evaluate("stayed only", m.constPredictor, mat.NewDense(3, 1, nil), y, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, plain.Labels)
}
