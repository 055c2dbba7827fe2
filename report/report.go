// Package report turns grid search results and held-out predictions into
// comparable result tables, and persists them as CSV, XLSX and JSON.
package report

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/tabml/dataframe"
	"github.com/YuminosukeSato/tabml/pkg/errors"
	"github.com/YuminosukeSato/tabml/sklearn/model_selection"
)

// Columns is the header of a results table, excluding the index column.
var Columns = []string{"Model", "F1", "Recall", "Precision", "Accuracy"}

// ResultRow holds the headline scores of one model.
type ResultRow struct {
	Model     string
	F1        float64
	Recall    float64
	Precision float64
	Accuracy  float64
}

// MakeResults extracts the mean cross-validated F1, recall, precision and
// accuracy of the candidate with the highest mean F1.
func MakeResults(modelName string, gs *model_selection.GridSearchCV) (ResultRow, error) {
	return MakeResultsBy(modelName, gs, "f1")
}

// MakeResultsBy is MakeResults selecting the candidate with the highest
// mean score of metric. The first candidate wins ties.
func MakeResultsBy(modelName string, gs *model_selection.GridSearchCV, metric string) (ResultRow, error) {
	if gs == nil || gs.CVResults == nil {
		return ResultRow{}, errors.NewNotFittedError("GridSearchCV", "MakeResults")
	}
	res := gs.CVResults
	for _, m := range append([]string{metric}, "f1", "recall", "precision", "accuracy") {
		if _, ok := res.MeanTest[m]; !ok {
			return ResultRow{}, errors.NewValueError("MakeResults",
				fmt.Sprintf("grid search was not scored with %q (have %v)", m, res.Metrics))
		}
	}
	best := -1
	for i, v := range res.MeanTest[metric] {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > res.MeanTest[metric][best] {
			best = i
		}
	}
	if best < 0 {
		return ResultRow{}, errors.NewValueError("MakeResults", "no candidate has a finite score")
	}
	return ResultRow{
		Model:     modelName,
		F1:        res.MeanTest["f1"][best],
		Recall:    res.MeanTest["recall"][best],
		Precision: res.MeanTest["precision"][best],
		Accuracy:  res.MeanTest["accuracy"][best],
	}, nil
}

// Table is an ordered collection of result rows.
type Table struct {
	Rows []ResultRow
}

// Append adds rows to the table.
func (t *Table) Append(rows ...ResultRow) {
	t.Rows = append(t.Rows, rows...)
}

// Frame converts the table into a frame with a leading unnamed index
// column.
func (t *Table) Frame() (*dataframe.Frame, error) {
	n := len(t.Rows)
	index := make([]string, n)
	models := make([]string, n)
	cols := make([][]float64, 4)
	for k := range cols {
		cols[k] = make([]float64, n)
	}
	for i, r := range t.Rows {
		index[i] = strconv.Itoa(i)
		models[i] = r.Model
		cols[0][i], cols[1][i], cols[2][i], cols[3][i] = r.F1, r.Recall, r.Precision, r.Accuracy
	}
	series := []*dataframe.Series{
		dataframe.NewStringSeries("", index),
		dataframe.NewStringSeries(Columns[0], models),
	}
	for k, name := range Columns[1:] {
		series = append(series, dataframe.NewFloatSeries(name, cols[k]))
	}
	return dataframe.New(series...)
}

func (t *Table) String() string {
	df, err := t.Frame()
	if err != nil {
		return err.Error()
	}
	df, err = df.Drop("")
	if err != nil {
		return err.Error()
	}
	return df.String()
}

// WriteCSV writes the table to path with the header
// ",Model,F1,Recall,Precision,Accuracy". .gz and .zst paths are compressed.
func (t *Table) WriteCSV(path string) error {
	df, err := t.Frame()
	if err != nil {
		return err
	}
	return errors.Wrapf(df.WriteCSVFile(path), "write results %s", path)
}

// ReadCSV loads a table written by WriteCSV.
func ReadCSV(path string) (*Table, error) {
	df, err := dataframe.ReadCSVFile(path, dataframe.ReadOptions{
		Parse: map[string]dataframe.Kind{"Model": dataframe.String},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "read results %s", path)
	}
	model, err := df.Col("Model")
	if err != nil {
		return nil, err
	}
	scores := make([]*dataframe.Series, 4)
	for k, name := range Columns[1:] {
		if scores[k], err = df.Col(name); err != nil {
			return nil, err
		}
		if scores[k].Kind() != dataframe.Float {
			return nil, errors.NewParseError(name, 0, "", "float64")
		}
	}
	t := &Table{}
	for i := 0; i < df.NRows(); i++ {
		t.Append(ResultRow{
			Model:     model.Str(i),
			F1:        scores[0].Float(i),
			Recall:    scores[1].Float(i),
			Precision: scores[2].Float(i),
			Accuracy:  scores[3].Float(i),
		})
	}
	return t, nil
}

// WriteXLSX writes the table to the "results" sheet of a new workbook.
func (t *Table) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "results"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	header := make([]interface{}, len(Columns))
	for j, c := range Columns {
		header[j] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.WithStack(err)
		}
		row := []interface{}{r.Model, r.F1, r.Recall, r.Precision, r.Accuracy}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	return errors.Wrapf(f.SaveAs(path), "save %s", path)
}

// WriteCVResultsJSON dumps the cross-validation results of a fitted search
// together with its best parameters. NaN scores are written as null.
func WriteCVResultsJSON(path string, gs *model_selection.GridSearchCV) error {
	if gs == nil || gs.CVResults == nil {
		return errors.NewNotFittedError("GridSearchCV", "WriteCVResultsJSON")
	}
	doc := map[string]interface{}{
		"run_id":      gs.RunID,
		"best_index":  gs.BestIndex,
		"best_score":  jsonFloat(gs.BestScore),
		"best_params": gs.BestParams,
		"refit":       gs.Refit,
		"cv_results":  sanitize(gs.CVResults.ToMap()),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal cv results")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

func jsonFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func sanitize(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if fs, ok := v.([]float64); ok {
			vals := make([]interface{}, len(fs))
			for i, f := range fs {
				vals[i] = jsonFloat(f)
			}
			out[k] = vals
			continue
		}
		out[k] = v
	}
	return out
}
