// Package config loads walkthrough settings from YAML. Values of the form
// ${NAME} are replaced with environment variables before parsing.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// Config is the root configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Data   DataConfig   `yaml:"data"`
	Output OutputConfig `yaml:"output"`
	// NJobs bounds concurrent grid search fits; <= 0 uses every CPU.
	NJobs int `yaml:"n_jobs"`

	Unicorns UnicornsConfig `yaml:"unicorns"`
	Churn    ChurnConfig    `yaml:"churn"`
	Claims   ClaimsConfig   `yaml:"claims"`
}

// LogConfig selects the log level and output format ("console" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DataConfig locates the input datasets.
type DataConfig struct {
	Dir      string `yaml:"dir"`
	Taxi     string `yaml:"taxi"`
	Unicorns string `yaml:"unicorns"`
	Churn    string `yaml:"churn"`
	Claims   string `yaml:"claims"`
}

// OutputConfig controls what is written to disk.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	ResultsFile string `yaml:"results_file"`
	// PlotFormat is the chart file extension, e.g. "png" or "svg".
	PlotFormat    string `yaml:"plot_format"`
	Plots         bool   `yaml:"plots"`
	XLSX          bool   `yaml:"xlsx"`
	CVResultsJSON bool   `yaml:"cv_results_json"`
	// Models saves the tuned estimators in gob format.
	Models bool `yaml:"models"`
	// CompressModels writes models as zstd compressed .gob.zst files.
	CompressModels bool `yaml:"compress_models"`
}

// UnicornsConfig holds the sampling settings of the unicorn walkthrough.
type UnicornsConfig struct {
	SampleSize int    `yaml:"sample_size"`
	SampleSeed uint64 `yaml:"sample_seed"`
}

// ChurnConfig holds the decision tree walkthrough settings.
type ChurnConfig struct {
	TestSize     float64 `yaml:"test_size"`
	SplitSeed    int64   `yaml:"split_seed"`
	BaselineSeed int64   `yaml:"baseline_seed"`
	TunedSeed    int64   `yaml:"tuned_seed"`
	CVFolds      int     `yaml:"cv_folds"`
	Refit        string  `yaml:"refit"`
	// ExportDepth limits the printed tree.
	ExportDepth int `yaml:"export_depth"`

	MaxDepth       []*int `yaml:"max_depth"`
	MinSamplesLeaf []int  `yaml:"min_samples_leaf"`
}

// ClaimsConfig holds the claim classification walkthrough settings.
type ClaimsConfig struct {
	TestSize       float64 `yaml:"test_size"`
	ValidationSize float64 `yaml:"validation_size"`
	SplitSeed      int64   `yaml:"split_seed"`
	ModelSeed      int64   `yaml:"model_seed"`
	CVFolds        int     `yaml:"cv_folds"`
	Refit          string  `yaml:"refit"`
	HistogramBins  int     `yaml:"histogram_bins"`

	NGramMin    int    `yaml:"ngram_min"`
	NGramMax    int    `yaml:"ngram_max"`
	MaxFeatures int    `yaml:"max_features"`
	StopWords   string `yaml:"stop_words"`

	Forest ForestGrid `yaml:"forest"`
	Boost  BoostGrid  `yaml:"boost"`
}

// ForestGrid is the random forest search space.
type ForestGrid struct {
	MaxDepth        []*int    `yaml:"max_depth"`
	MaxFeatures     []float64 `yaml:"max_features"`
	MaxSamples      []float64 `yaml:"max_samples"`
	MinSamplesLeaf  []int     `yaml:"min_samples_leaf"`
	MinSamplesSplit []int     `yaml:"min_samples_split"`
	NEstimators     []int     `yaml:"n_estimators"`
}

// BoostGrid is the boosted tree search space.
type BoostGrid struct {
	MaxDepth       []int     `yaml:"max_depth"`
	MinChildWeight []float64 `yaml:"min_child_weight"`
	LearningRate   []float64 `yaml:"learning_rate"`
	NEstimators    []int     `yaml:"n_estimators"`
}

func intp(v int) *int { return &v }

func ints(vs ...int) []*int {
	out := make([]*int, len(vs))
	for i, v := range vs {
		out[i] = intp(v)
	}
	return out
}

// Default returns the settings used by the original walkthroughs.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Data: DataConfig{
			Dir:      ".",
			Taxi:     "2017_Yellow_Taxi_Trip_Data.csv",
			Unicorns: "Unicorn_Companies.csv",
			Churn:    "Churn_Modelling.csv",
			Claims:   "tiktok_dataset.csv",
		},
		Output: OutputConfig{
			Dir:            "out",
			ResultsFile:    "Results.csv",
			PlotFormat:     "png",
			Plots:          true,
			XLSX:           false,
			CVResultsJSON:  false,
			Models:         false,
			CompressModels: false,
		},
		NJobs:    0,
		Unicorns: UnicornsConfig{SampleSize: 50, SampleSeed: 42},
		Churn: ChurnConfig{
			TestSize:       0.25,
			SplitSeed:      42,
			BaselineSeed:   0,
			TunedSeed:      42,
			CVFolds:        5,
			Refit:          "f1",
			ExportDepth:    2,
			MaxDepth:       ints(4, 5, 6, 7, 8, 9, 10, 11, 12, 15, 20, 30, 40, 50),
			MinSamplesLeaf: []int{2, 5, 10, 20, 50},
		},
		Claims: ClaimsConfig{
			TestSize:       0.2,
			ValidationSize: 0.25,
			SplitSeed:      0,
			ModelSeed:      0,
			CVFolds:        5,
			Refit:          "recall",
			HistogramBins:  30,
			NGramMin:       2,
			NGramMax:       3,
			MaxFeatures:    15,
			StopWords:      "english",
			Forest: ForestGrid{
				MaxDepth:        append(ints(5, 7), nil),
				MaxFeatures:     []float64{0.3, 0.6},
				MaxSamples:      []float64{0.7},
				MinSamplesLeaf:  []int{1, 2},
				MinSamplesSplit: []int{2, 3},
				NEstimators:     []int{75, 100, 200},
			},
			Boost: BoostGrid{
				MaxDepth:       []int{4, 8, 12},
				MinChildWeight: []float64{3, 5},
				LearningRate:   []float64{0.01, 0.1},
				NEstimators:    []int{300, 500},
			},
		},
	}
}

// Load reads path over the defaults. Fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write config %s", path)
}

// substituteEnvVars replaces ${NAME} with the value of the environment
// variable NAME. Unset variables expand to "".
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start
		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}

// DataPath joins the data directory and a dataset file name.
func (c *Config) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// OutputPath joins the output directory and a file name.
func (c *Config) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}

// PlotPath returns the output path of a chart named name.
func (c *Config) PlotPath(name string) string {
	return c.OutputPath(name + "." + c.Output.PlotFormat)
}

var scorers = map[string]bool{
	"accuracy": true, "precision": true, "recall": true, "f1": true,
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled", "":
	default:
		return errors.NewValidationError("log.level", "unknown level", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json", "":
	default:
		return errors.NewValidationError("log.format", "must be console or json", c.Log.Format)
	}
	switch c.Output.PlotFormat {
	case "png", "svg", "pdf", "eps", "jpg", "jpeg", "tif", "tiff":
	default:
		return errors.NewValidationError("output.plot_format", "unsupported image format", c.Output.PlotFormat)
	}
	if c.Output.ResultsFile == "" {
		return errors.NewValidationError("output.results_file", "must not be empty", c.Output.ResultsFile)
	}
	if c.Unicorns.SampleSize < 1 {
		return errors.NewValidationError("unicorns.sample_size", "must be positive", c.Unicorns.SampleSize)
	}

	checks := []struct {
		name string
		frac float64
	}{
		{"churn.test_size", c.Churn.TestSize},
		{"claims.test_size", c.Claims.TestSize},
		{"claims.validation_size", c.Claims.ValidationSize},
	}
	for _, chk := range checks {
		if chk.frac <= 0 || chk.frac >= 1 {
			return errors.NewValidationError(chk.name, "must be in (0, 1)", chk.frac)
		}
	}
	if c.Churn.CVFolds < 2 {
		return errors.NewValidationError("churn.cv_folds", "must be at least 2", c.Churn.CVFolds)
	}
	if c.Claims.CVFolds < 2 {
		return errors.NewValidationError("claims.cv_folds", "must be at least 2", c.Claims.CVFolds)
	}
	if !scorers[c.Churn.Refit] {
		return errors.NewValidationError("churn.refit", "must be accuracy, precision, recall or f1", c.Churn.Refit)
	}
	if !scorers[c.Claims.Refit] {
		return errors.NewValidationError("claims.refit", "must be accuracy, precision, recall or f1", c.Claims.Refit)
	}
	if c.Claims.NGramMin < 1 || c.Claims.NGramMin > c.Claims.NGramMax {
		return errors.NewValidationError("claims.ngram_min", "must satisfy 1 <= ngram_min <= ngram_max", c.Claims.NGramMin)
	}
	if c.Claims.MaxFeatures < 0 {
		return errors.NewValidationError("claims.max_features", "must be non-negative", c.Claims.MaxFeatures)
	}
	if c.Claims.HistogramBins < 1 {
		return errors.NewValidationError("claims.histogram_bins", "must be positive", c.Claims.HistogramBins)
	}
	if len(c.Churn.MaxDepth) == 0 || len(c.Churn.MinSamplesLeaf) == 0 {
		return errors.NewValidationError("churn", "grid must not be empty", nil)
	}
	for _, frac := range c.Claims.Forest.MaxFeatures {
		if frac <= 0 || frac > 1 {
			return errors.NewValidationError("claims.forest.max_features", "must be in (0, 1]", frac)
		}
	}
	for _, frac := range c.Claims.Forest.MaxSamples {
		if frac <= 0 || frac > 1 {
			return errors.NewValidationError("claims.forest.max_samples", "must be in (0, 1]", frac)
		}
	}
	return nil
}

// Grid converts the churn search space into GridSearchCV form. A nil
// max_depth means unlimited depth.
func (c ChurnConfig) Grid() map[string][]interface{} {
	return map[string][]interface{}{
		"max_depth":        optionalInts(c.MaxDepth),
		"min_samples_leaf": anyInts(c.MinSamplesLeaf),
	}
}

// Grid converts the forest search space into GridSearchCV form.
func (g ForestGrid) Grid() map[string][]interface{} {
	return map[string][]interface{}{
		"max_depth":         optionalInts(g.MaxDepth),
		"max_features":      anyFloats(g.MaxFeatures),
		"max_samples":       anyFloats(g.MaxSamples),
		"min_samples_leaf":  anyInts(g.MinSamplesLeaf),
		"min_samples_split": anyInts(g.MinSamplesSplit),
		"n_estimators":      anyInts(g.NEstimators),
	}
}

// Grid converts the boosting search space into GridSearchCV form.
func (g BoostGrid) Grid() map[string][]interface{} {
	return map[string][]interface{}{
		"max_depth":        anyInts(g.MaxDepth),
		"min_child_weight": anyFloats(g.MinChildWeight),
		"learning_rate":    anyFloats(g.LearningRate),
		"n_estimators":     anyInts(g.NEstimators),
	}
}

func optionalInts(vs []*int) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

func anyInts(vs []int) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func anyFloats(vs []float64) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
