package workflow

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/dataframe"
	"github.com/YuminosukeSato/tabml/internal/config"
	"github.com/YuminosukeSato/tabml/pkg/errors"
	"github.com/YuminosukeSato/tabml/pkg/log"
	"github.com/YuminosukeSato/tabml/plot"
	"github.com/YuminosukeSato/tabml/preprocessing"
	"github.com/YuminosukeSato/tabml/report"
	"github.com/YuminosukeSato/tabml/sklearn/model_selection"
	"github.com/YuminosukeSato/tabml/sklearn/naive_bayes"
	"github.com/YuminosukeSato/tabml/sklearn/tree"
)

// ChurnTarget is the label column of the bank churn dataset.
const ChurnTarget = "Exited"

// ChurnDropped are identifier and sensitive columns excluded from modelling.
var ChurnDropped = []string{"RowNumber", "CustomerId", "Surname", "Gender"}

var churnLabels = []string{"stayed", "churned"}

// ChurnReport collects the results of the churn decision tree walkthrough.
type ChurnReport struct {
	ClassBalance      *dataframe.Frame
	AvgChurnedBalance float64
	Features          []string
	NTrain, NTest     int

	Baseline      *report.Evaluation
	GaussianNB    *report.Evaluation
	MultinomialNB *report.Evaluation
	TreeText      string
	TreeDepth     int

	Search      *model_selection.GridSearchCV
	Results     *report.Table
	ResultsPath string
	ModelPath   string
	Charts      []string
}

// Churn predicts bank customer churn with a decision tree, compares it to
// Naive Bayes baselines, tunes the tree by grid search and writes the
// cross-validated results table.
func Churn(ctx context.Context, cfg *config.Config, logger log.Logger) (*ChurnReport, error) {
	logger = logger.With(log.DatasetKey, "churn")
	cc := cfg.Churn
	df, err := load(cfg, "churn", cfg.Data.Churn, logger)
	if err != nil {
		return nil, err
	}
	r := &ChurnReport{}

	if r.ClassBalance, err = df.ValueCounts(ChurnTarget, true); err != nil {
		return nil, err
	}
	if err := checkShares("Churn", r.ClassBalance); err != nil {
		return nil, err
	}
	churned, err := df.FilterEq(ChurnTarget, 1)
	if err != nil {
		return nil, err
	}
	if r.AvgChurnedBalance, err = churned.Mean("Balance"); err != nil {
		return nil, err
	}

	if df, err = df.Drop(ChurnDropped...); err != nil {
		return nil, err
	}
	if cats := stringColumns(df); len(cats) > 0 {
		if df, err = df.GetDummies(cats, true); err != nil {
			return nil, err
		}
	}
	X, y, names, err := xy(df, ChurnTarget)
	if err != nil {
		return nil, err
	}
	r.Features = names
	n, _ := X.Dims()

	train, test, err := model_selection.TrainTestSplit(n, cc.TestSize, model_selection.SplitOptions{
		Seed:     uint64(cc.SplitSeed),
		Stratify: mat.Col(nil, 0, y),
	})
	if err != nil {
		return nil, err
	}
	r.NTrain, r.NTest = len(train), len(test)
	if err := checkPartition("Churn", n, r.NTrain, r.NTest); err != nil {
		return nil, err
	}
	XTrain, XTest, yTrain, yTest := model_selection.SplitXY(X, y, train, test)
	logger.Info("data split", "train", r.NTrain, "test", r.NTest, log.FeaturesKey, len(names))

	baseline := tree.NewDecisionTreeClassifier(tree.WithRandomState(cc.BaselineSeed))
	if err := baseline.Fit(XTrain, yTrain); err != nil {
		return nil, errors.Wrap(err, "baseline tree")
	}
	if r.Baseline, err = evaluate("Decision tree (baseline)", baseline, XTest, yTest); err != nil {
		return nil, err
	}
	r.TreeDepth = cc.ExportDepth
	if r.TreeText, err = baseline.ExportText(names, cc.ExportDepth); err != nil {
		return nil, err
	}

	if r.GaussianNB, err = naiveBayes("Gaussian NB (standardised)", preprocessing.NewStandardScalerDefault(),
		naive_bayes.NewGaussianNB(), XTrain, XTest, yTrain, yTest); err != nil {
		return nil, err
	}
	if r.MultinomialNB, err = naiveBayes("Multinomial NB (min-max scaled)", preprocessing.NewMinMaxScalerDefault(),
		naive_bayes.NewMultinomialNB(), XTrain, XTest, yTrain, yTest); err != nil {
		return nil, err
	}

	gs := newSearch(tree.NewDecisionTreeClassifier(tree.WithRandomState(cc.TunedSeed)),
		cc.Grid(), cc.Refit, cc.CVFolds, cfg.NJobs)
	if err := gs.Fit(ctx, XTrain, yTrain); err != nil {
		return nil, errors.Wrap(err, "tune decision tree")
	}
	r.Search = gs
	row, err := report.MakeResults("Tuned Decision Tree", gs)
	if err != nil {
		return nil, err
	}
	r.Results = &report.Table{}
	r.Results.Append(row)

	if err := ensureOutputDir(cfg); err != nil {
		return nil, err
	}
	r.ResultsPath = cfg.OutputPath(cfg.Output.ResultsFile)
	if err := r.Results.WriteCSV(r.ResultsPath); err != nil {
		return nil, err
	}
	logger.Info("results written", log.PathKey, r.ResultsPath)
	if cfg.Output.XLSX {
		if err := r.Results.WriteXLSX(cfg.OutputPath("churn_results.xlsx")); err != nil {
			return nil, err
		}
	}
	if err := writeSearchArtifacts(cfg, "churn_tree", gs, logger); err != nil {
		return nil, err
	}
	if r.ModelPath, err = saveModel(cfg, "churn_tuned_tree", gs.BestEstimator, logger); err != nil {
		return nil, err
	}

	if cfg.Output.Plots {
		path := cfg.PlotPath("churn_baseline_confusion_matrix")
		if err := plot.ConfusionMatrix(r.Baseline.ConfusionMatrix, labelNames(r.Baseline.Labels, churnLabels), "Decision tree (baseline)", path); err != nil {
			return nil, errors.Wrap(err, "churn confusion matrix chart")
		}
		r.Charts = append(r.Charts, path)
		best := gs.BestEstimator.(*tree.DecisionTreeClassifier)
		path = cfg.PlotPath("churn_tuned_tree_importances")
		if err := plot.FeatureImportances(names, best.GetFeatureImportances(), "Tuned decision tree", path); err != nil {
			return nil, errors.Wrap(err, "churn importances chart")
		}
		r.Charts = append(r.Charts, path)
	}

	logger.Info("churn walkthrough finished",
		"best_params", model.FormatParams(gs.BestParams),
		log.ScoreKey, gs.BestScore,
	)
	return r, nil
}

func evaluate(name string, m model.Predictor, X, y mat.Matrix) (*report.Evaluation, error) {
	ev, err := report.Evaluate(name, m, X, y, nil)
	if err != nil {
		return nil, err
	}
	n, _ := y.Dims()
	if err := checkConfusion("evaluate", ev, n); err != nil {
		return nil, err
	}
	return ev, nil
}

// naiveBayes fits scaler on the training rows only and evaluates the
// classifier on the scaled test rows.
func naiveBayes(name string, scaler model.Transformer, clf model.Estimator, XTrain, XTest, yTrain, yTest mat.Matrix) (*report.Evaluation, error) {
	trainScaled, err := scaler.FitTransform(XTrain)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: scale", name)
	}
	testScaled, err := scaler.Transform(XTest)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: scale", name)
	}
	if err := clf.Fit(trainScaled, yTrain); err != nil {
		return nil, errors.Wrapf(err, "%s: fit", name)
	}
	return evaluate(name, clf, testScaled, yTest)
}

func (r *ChurnReport) String() string {
	var b strings.Builder
	section(&b, "Class balance", r.ClassBalance)
	fmt.Fprintf(&b, "Average balance of churned customers: %.2f\n", r.AvgChurnedBalance)
	fmt.Fprintf(&b, "Train rows: %d, test rows: %d, features: %d\n\n", r.NTrain, r.NTest, len(r.Features))
	for _, ev := range []*report.Evaluation{r.Baseline, r.GaussianNB, r.MultinomialNB} {
		fmt.Fprintf(&b, "%s: accuracy %.3f precision %.3f recall %.3f f1 %.3f\n",
			ev.Name, ev.Accuracy, ev.Precision, ev.Recall, ev.F1)
	}
	fmt.Fprintf(&b, "\n%s\n", r.Baseline)
	fmt.Fprintf(&b, "Baseline tree (depth %d):\n%s\n", r.TreeDepth, r.TreeText)
	fmt.Fprintf(&b, "Best params: %s (%s %.4f)\n\n", model.FormatParams(r.Search.BestParams), r.Search.Refit, r.Search.BestScore)
	fmt.Fprintf(&b, "%s\nResults written to %s\n", r.Results, r.ResultsPath)
	return b.String()
}
