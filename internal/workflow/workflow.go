// Package workflow holds the four walkthroughs: taxi and unicorn
// exploratory analysis, churn decision trees and claim classification.
// Each walkthrough loads its dataset, runs sequentially and returns a
// summary; failures stop the walkthrough and are returned to the caller.
package workflow

import (
	"fmt"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/dataframe"
	"github.com/YuminosukeSato/tabml/internal/config"
	"github.com/YuminosukeSato/tabml/pkg/errors"
	"github.com/YuminosukeSato/tabml/pkg/log"
	"github.com/YuminosukeSato/tabml/report"
	"github.com/YuminosukeSato/tabml/sklearn/model_selection"
)

// Scoring is the metric set recorded by every grid search.
var Scoring = []string{"accuracy", "precision", "recall", "f1"}

func load(cfg *config.Config, dataset, file string, logger log.Logger) (*dataframe.Frame, error) {
	path := cfg.DataPath(file)
	start := time.Now()
	df, err := dataframe.ReadCSVFile(path, dataframe.ReadOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "load %s dataset", dataset)
	}
	rows, cols := df.Shape()
	logger.Info("dataset loaded",
		log.DatasetKey, dataset,
		log.PathKey, path,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return df, nil
}

// checkShares verifies that class proportions sum to one.
func checkShares(op string, counts *dataframe.Frame) error {
	c, err := counts.Col("proportion")
	if err != nil {
		return err
	}
	sum := 0.0
	for _, v := range c.Floats() {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		return errors.NewValueError(op, fmt.Sprintf("class balance sums to %v, want 1", sum))
	}
	return nil
}

// checkPartition verifies that partition sizes add up to n.
func checkPartition(op string, n int, sizes ...int) error {
	total := 0
	for _, s := range sizes {
		total += s
	}
	if total != n {
		return errors.NewValueError(op, fmt.Sprintf("partitions hold %d rows, want %d", total, n))
	}
	return nil
}

// checkConfusion verifies that a confusion matrix covers every evaluated row.
func checkConfusion(op string, ev *report.Evaluation, n int) error {
	if total := mat.Sum(ev.ConfusionMatrix); int(total) != n {
		return errors.NewValueError(op, fmt.Sprintf("confusion matrix of %s sums to %v, want %d", ev.Name, total, n))
	}
	return nil
}

// labelNames names confusion matrix axes: integer label i becomes names[i],
// anything else is printed as a number.
func labelNames(labels []float64, names []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = fmt.Sprintf("%g", l)
		if k := int(l); float64(k) == l && k >= 0 && k < len(names) {
			out[i] = names[k]
		}
	}
	return out
}

// xy splits df into a feature matrix and a single-column target matrix.
func xy(df *dataframe.Frame, target string) (X, y *mat.Dense, names []string, err error) {
	features, err := df.Drop(target)
	if err != nil {
		return nil, nil, nil, err
	}
	X, err = features.ToMatrix()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "feature matrix")
	}
	y, err = df.ToMatrix(target)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "target vector")
	}
	return X, y, features.Columns(), nil
}

// stringColumns lists the columns of df holding text.
func stringColumns(df *dataframe.Frame) []string {
	var out []string
	for _, name := range df.Columns() {
		c, _ := df.Col(name)
		if c.Kind() == dataframe.String {
			out = append(out, name)
		}
	}
	return out
}

func newSearch(est model.SKLearnCompatible, grid map[string][]interface{}, refit string, folds, jobs int) *model_selection.GridSearchCV {
	gs := model_selection.NewGridSearchCV(est, grid)
	gs.Scoring = Scoring
	gs.Refit = refit
	gs.CV = model_selection.NewStratifiedKFold(folds, false, 0)
	gs.NJobs = jobs
	return gs
}

func ensureOutputDir(cfg *config.Config) error {
	return errors.Wrapf(os.MkdirAll(cfg.Output.Dir, 0o755), "create output dir %s", cfg.Output.Dir)
}

// writeSearchArtifacts writes optional per-search outputs.
func writeSearchArtifacts(cfg *config.Config, name string, gs *model_selection.GridSearchCV, logger log.Logger) error {
	if !cfg.Output.CVResultsJSON {
		return nil
	}
	path := cfg.OutputPath(name + "_cv_results.json")
	if err := report.WriteCVResultsJSON(path, gs); err != nil {
		return err
	}
	logger.Info("cv results written", log.PathKey, path, log.RunIDKey, gs.RunID)
	return nil
}

// saveModel writes m to the output directory when model saving is enabled
// and returns the path written, or "".
func saveModel(cfg *config.Config, name string, m interface{}, logger log.Logger) (string, error) {
	if !cfg.Output.Models {
		return "", nil
	}
	if err := ensureOutputDir(cfg); err != nil {
		return "", err
	}
	file := name + ".gob"
	if cfg.Output.CompressModels {
		file += ".zst"
	}
	path := cfg.OutputPath(file)
	if err := model.SaveModel(m, path); err != nil {
		return "", err
	}
	logger.Info("model saved", log.PathKey, path)
	return path, nil
}
