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
	"github.com/YuminosukeSato/tabml/sklearn/ensemble"
	"github.com/YuminosukeSato/tabml/sklearn/model_selection"
)

// Columns of the claims dataset used by the walkthrough.
const (
	ClaimsTarget = "claim_status"
	ClaimsText   = "video_transcription_text"
	TextLength   = "text_length"
)

// ClaimsCategorical are the categorical columns one-hot encoded on the
// training partition.
var ClaimsCategorical = []string{"verified_status", "author_ban_status"}

// ClaimsDropped are identifiers excluded from modelling.
var ClaimsDropped = []string{"#", "video_id"}

// ClaimsEncoding maps claim_status to class ids.
var ClaimsEncoding = map[string]float64{"opinion": 0, "claim": 1}

var claimsLabels = []string{"opinion", "claim"}

// ClaimsReport collects the results of the claim classification walkthrough.
type ClaimsReport struct {
	Rows, Cols     int
	Describe       *dataframe.Frame
	Missing        *dataframe.Frame
	RowsAfterDrop  int
	Duplicates     int
	ClassBalance   *dataframe.Frame
	MeanTextLength *dataframe.Frame

	NTrain, NValidation, NTest int
	Vocabulary                 []string
	Features                   []string

	Forest, Boost       *model_selection.GridSearchCV
	ForestValidation    *report.Evaluation
	BoostValidation     *report.Evaluation
	Champion            string
	ChampionTest        *report.Evaluation
	ChampionImportances []float64

	Results   *report.Table
	ModelPath string
	Charts    []string
}

// claimsSplit holds one partition of the claims data.
type claimsSplit struct {
	frame *dataframe.Frame
	X, y  *mat.Dense
}

// Claims classifies short video transcriptions as claims or opinions. A
// random forest and a boosted tree ensemble are tuned for recall, compared
// on a validation partition, and the champion is scored on the test set.
func Claims(ctx context.Context, cfg *config.Config, logger log.Logger) (*ClaimsReport, error) {
	logger = logger.With(log.DatasetKey, "claims")
	cc := cfg.Claims
	df, err := load(cfg, "claims", cfg.Data.Claims, logger)
	if err != nil {
		return nil, err
	}
	r := &ClaimsReport{Missing: df.IsNA()}
	r.Rows, r.Cols = df.Shape()
	if r.Describe, err = df.Describe(); err != nil {
		return nil, err
	}

	df = df.DropNA()
	r.RowsAfterDrop = df.NRows()
	r.Duplicates = df.Duplicated()
	logger.Info("missing values dropped", "before", r.Rows, "after", r.RowsAfterDrop, "duplicates", r.Duplicates)

	if r.ClassBalance, err = df.ValueCounts(ClaimsTarget, true); err != nil {
		return nil, err
	}
	if err := checkShares("Claims", r.ClassBalance); err != nil {
		return nil, err
	}
	if df, err = df.StrLen(ClaimsText, TextLength); err != nil {
		return nil, err
	}
	if r.MeanTextLength, err = df.GroupBy(ClaimsTarget).Agg(TextLength, dataframe.AggMean); err != nil {
		return nil, err
	}
	if cfg.Output.Plots {
		path, err := textLengthHistogram(cfg, df)
		if err != nil {
			return nil, err
		}
		r.Charts = append(r.Charts, path)
	}

	if df, err = df.Drop(ClaimsDropped...); err != nil {
		return nil, err
	}
	if df, err = df.Replace(ClaimsTarget, ClaimsEncoding); err != nil {
		return nil, err
	}

	n := df.NRows()
	trIdx, testIdx, err := model_selection.TrainTestSplit(n, cc.TestSize,
		model_selection.SplitOptions{Shuffle: true, Seed: uint64(cc.SplitSeed)})
	if err != nil {
		return nil, err
	}
	trFrame, testFrame := df.Take(trIdx), df.Take(testIdx)
	trainIdx, valIdx, err := model_selection.TrainTestSplit(trFrame.NRows(), cc.ValidationSize,
		model_selection.SplitOptions{Shuffle: true, Seed: uint64(cc.SplitSeed)})
	if err != nil {
		return nil, err
	}
	trainFrame, valFrame := trFrame.Take(trainIdx), trFrame.Take(valIdx)
	r.NTrain, r.NValidation, r.NTest = trainFrame.NRows(), valFrame.NRows(), testFrame.NRows()
	if err := checkPartition("Claims", n, r.NTrain, r.NValidation, r.NTest); err != nil {
		return nil, err
	}
	logger.Info("data split", "train", r.NTrain, "validation", r.NValidation, "test", r.NTest)

	enc := preprocessing.NewOneHotEncoder(true)
	if err := enc.Fit(trainFrame, ClaimsCategorical...); err != nil {
		return nil, err
	}
	texts, err := trainFrame.Col(ClaimsText)
	if err != nil {
		return nil, err
	}
	vec := preprocessing.NewCountVectorizer(
		preprocessing.WithNGramRange(cc.NGramMin, cc.NGramMax),
		preprocessing.WithVocabMaxFeatures(cc.MaxFeatures),
		preprocessing.WithStopWords(cc.StopWords),
	)
	if err := vec.Fit(texts.Strings()); err != nil {
		return nil, errors.Wrap(err, "fit vectorizer")
	}
	r.Vocabulary = vec.FeatureNames()

	parts := make([]claimsSplit, 3)
	for i, part := range []*dataframe.Frame{trainFrame, valFrame, testFrame} {
		final, err := claimsFeatures(part, enc, vec)
		if err != nil {
			return nil, err
		}
		X, y, names, err := xy(final, ClaimsTarget)
		if err != nil {
			return nil, err
		}
		parts[i] = claimsSplit{frame: final, X: X, y: y}
		r.Features = names
	}
	train, val, test := parts[0], parts[1], parts[2]
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.Forest = newSearch(ensemble.NewRandomForestClassifier(
		ensemble.WithRandomState(cc.ModelSeed),
		ensemble.WithNJobs(1),
	), cc.Forest.Grid(), cc.Refit, cc.CVFolds, cfg.NJobs)
	if err := r.Forest.Fit(ctx, train.X, train.y); err != nil {
		return nil, errors.Wrap(err, "tune random forest")
	}
	r.Boost = newSearch(ensemble.NewGradientBoostingClassifier(
		ensemble.WithBoostRandomState(cc.ModelSeed),
	), cc.Boost.Grid(), cc.Refit, cc.CVFolds, cfg.NJobs)
	if err := r.Boost.Fit(ctx, train.X, train.y); err != nil {
		return nil, errors.Wrap(err, "tune boosted trees")
	}

	if r.ForestValidation, err = evaluateNamed("random forest validation", r.Forest.BestEstimator, val); err != nil {
		return nil, err
	}
	if r.BoostValidation, err = evaluateNamed("xgboost validation", r.Boost.BestEstimator, val); err != nil {
		return nil, err
	}

	champion := r.Forest
	r.Champion = "random forest"
	if r.BoostValidation.Recall > r.ForestValidation.Recall {
		champion = r.Boost
		r.Champion = "xgboost"
	}
	if r.ChampionTest, err = evaluateNamed(r.Champion+" test", champion.BestEstimator, test); err != nil {
		return nil, err
	}
	if imp, ok := champion.BestEstimator.(model.FeatureImportancer); ok {
		r.ChampionImportances = imp.GetFeatureImportances()
	}
	logger.Info("champion selected",
		log.ModelNameKey, r.Champion,
		"validation_recall", max(r.ForestValidation.Recall, r.BoostValidation.Recall),
		"test_recall", r.ChampionTest.Recall,
	)

	r.Results = &report.Table{}
	for _, s := range []struct {
		name string
		gs   *model_selection.GridSearchCV
	}{{"random forest cv", r.Forest}, {"xgboost cv", r.Boost}} {
		row, err := report.MakeResultsBy(s.name, s.gs, cc.Refit)
		if err != nil {
			return nil, err
		}
		r.Results.Append(row)
	}
	r.Results.Append(r.ForestValidation.Row(), r.BoostValidation.Row(), r.ChampionTest.Row())

	if err := writeClaimsArtifacts(cfg, r, logger); err != nil {
		return nil, err
	}
	if r.ModelPath, err = saveModel(cfg, "claims_champion", champion.BestEstimator, logger); err != nil {
		return nil, err
	}
	logger.Info("claims walkthrough finished", log.ModelNameKey, r.Champion)
	return r, nil
}

// claimsFeatures applies the training-fitted encoder and vectorizer to part
// and replaces the transcription with its n-gram counts.
func claimsFeatures(part *dataframe.Frame, enc *preprocessing.OneHotEncoder, vec *preprocessing.CountVectorizer) (*dataframe.Frame, error) {
	texts, err := part.Col(ClaimsText)
	if err != nil {
		return nil, err
	}
	encoded, err := enc.Transform(part)
	if err != nil {
		return nil, err
	}
	if encoded, err = encoded.Drop(ClaimsText); err != nil {
		return nil, err
	}
	counts, err := vec.Transform(texts.Strings())
	if err != nil {
		return nil, err
	}
	countFrame, err := dataframe.FromMatrix(counts, vec.FeatureNames())
	if err != nil {
		return nil, err
	}
	return dataframe.Concat(encoded, countFrame)
}

func evaluateNamed(name string, m model.Predictor, part claimsSplit) (*report.Evaluation, error) {
	ev, err := report.Evaluate(name, m, part.X, part.y, claimsLabels)
	if err != nil {
		return nil, err
	}
	n, _ := part.y.Dims()
	if err := checkConfusion("Claims", ev, n); err != nil {
		return nil, err
	}
	return ev, nil
}

func textLengthHistogram(cfg *config.Config, df *dataframe.Frame) (string, error) {
	classes, err := df.Categories(ClaimsTarget)
	if err != nil {
		return "", err
	}
	groups := make(map[string][]float64, len(classes))
	for _, c := range classes {
		sub, err := df.FilterEq(ClaimsTarget, c)
		if err != nil {
			return "", err
		}
		lengths, err := sub.Col(TextLength)
		if err != nil {
			return "", err
		}
		groups[c] = lengths.Floats()
	}
	path := cfg.PlotPath("claims_text_length_histogram")
	if err := plot.Histogram(groups, cfg.Claims.HistogramBins,
		"Distribution of video transcription text length", TextLength, path); err != nil {
		return "", errors.Wrap(err, "text length histogram")
	}
	return path, nil
}

func writeClaimsArtifacts(cfg *config.Config, r *ClaimsReport, logger log.Logger) error {
	if !cfg.Output.Plots && !cfg.Output.XLSX && !cfg.Output.CVResultsJSON {
		return nil
	}
	if err := ensureOutputDir(cfg); err != nil {
		return err
	}
	if cfg.Output.Plots {
		for _, ev := range []*report.Evaluation{r.ForestValidation, r.BoostValidation, r.ChampionTest} {
			path := cfg.PlotPath("claims_" + strings.ReplaceAll(ev.Name, " ", "_") + "_confusion_matrix")
			if err := plot.ConfusionMatrix(ev.ConfusionMatrix, labelNames(ev.Labels, claimsLabels), ev.Name, path); err != nil {
				return errors.Wrap(err, "claims confusion matrix chart")
			}
			r.Charts = append(r.Charts, path)
		}
		if r.ChampionImportances != nil {
			path := cfg.PlotPath("claims_champion_importances")
			if err := plot.FeatureImportances(r.Features, r.ChampionImportances, r.Champion+" feature importances", path); err != nil {
				return errors.Wrap(err, "claims importances chart")
			}
			r.Charts = append(r.Charts, path)
		}
		logger.Info("charts written", "count", len(r.Charts))
	}
	if cfg.Output.XLSX {
		if err := r.Results.WriteXLSX(cfg.OutputPath("claims_results.xlsx")); err != nil {
			return err
		}
	}
	if err := writeSearchArtifacts(cfg, "claims_forest", r.Forest, logger); err != nil {
		return err
	}
	return writeSearchArtifacts(cfg, "claims_boost", r.Boost, logger)
}

func (r *ClaimsReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claims dataset: %d rows x %d columns, %d rows after dropping missing values, %d duplicates\n\n",
		r.Rows, r.Cols, r.RowsAfterDrop, r.Duplicates)
	section(&b, "Missing values", r.Missing)
	section(&b, "Class balance", r.ClassBalance)
	section(&b, "Mean text length by class", r.MeanTextLength)
	fmt.Fprintf(&b, "Train %d, validation %d, test %d rows\n", r.NTrain, r.NValidation, r.NTest)
	fmt.Fprintf(&b, "N-gram vocabulary: %s\n\n", strings.Join(r.Vocabulary, ", "))
	fmt.Fprintf(&b, "Random forest best params: %s (%s %.4f)\n", model.FormatParams(r.Forest.BestParams), r.Forest.Refit, r.Forest.BestScore)
	fmt.Fprintf(&b, "XGBoost best params: %s (%s %.4f)\n\n", model.FormatParams(r.Boost.BestParams), r.Boost.Refit, r.Boost.BestScore)
	for _, ev := range []*report.Evaluation{r.ForestValidation, r.BoostValidation, r.ChampionTest} {
		fmt.Fprintf(&b, "%s\n", ev)
	}
	fmt.Fprintf(&b, "Champion: %s\n\n%s", r.Champion, r.Results)
	return b.String()
}
