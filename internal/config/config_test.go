package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Churn_Modelling.csv", cfg.Data.Churn)
	assert.Len(t, cfg.Churn.MaxDepth, 14)

	grid := cfg.Claims.Forest.Grid()
	assert.Equal(t, []interface{}{5, 7, nil}, grid["max_depth"])
	assert.Equal(t, []interface{}{0.7}, grid["max_samples"])
	assert.Equal(t, []interface{}{4, 8, 12}, cfg.Claims.Boost.Grid()["max_depth"])
	assert.Equal(t, []interface{}{2, 5, 10, 20, 50}, cfg.Churn.Grid()["min_samples_leaf"])
}

func TestLoadOverridesAndEnv(t *testing.T) {
	t.Setenv("TABML_DATA", "/srv/data")
	path := filepath.Join(t.TempDir(), "tabml.yaml")
	content := `
log:
  level: debug
data:
  dir: ${TABML_DATA}
output:
  plot_format: svg
churn:
  max_depth: [3, null]
  min_samples_leaf: [1]
claims:
  forest:
    n_estimators: [10]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/srv/data", cfg.Data.Dir)
	assert.Equal(t, filepath.Join("/srv/data", "tiktok_dataset.csv"), cfg.DataPath(cfg.Data.Claims))
	assert.Equal(t, filepath.Join("out", "cm.svg"), cfg.PlotPath("cm"))
	assert.Equal(t, []interface{}{3, nil}, cfg.Churn.Grid()["max_depth"])
	assert.Equal(t, []interface{}{10}, cfg.Claims.Forest.Grid()["n_estimators"])
	// Untouched sections keep their defaults.
	assert.Equal(t, []int{300, 500}, cfg.Claims.Boost.NEstimators)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabml.yaml")
	want := Default()
	want.NJobs = 3
	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"plot format", func(c *Config) { c.Output.PlotFormat = "bmp" }, "output.plot_format"},
		{"test size", func(c *Config) { c.Churn.TestSize = 1 }, "churn.test_size"},
		{"validation size", func(c *Config) { c.Claims.ValidationSize = 0 }, "claims.validation_size"},
		{"folds", func(c *Config) { c.Churn.CVFolds = 1 }, "churn.cv_folds"},
		{"refit", func(c *Config) { c.Claims.Refit = "roc_auc" }, "claims.refit"},
		{"ngram", func(c *Config) { c.Claims.NGramMin = 4 }, "claims.ngram_min"},
		{"max features", func(c *Config) { c.Claims.Forest.MaxFeatures = []float64{1.5} }, "claims.forest.max_features"},
		{"sample size", func(c *Config) { c.Unicorns.SampleSize = 0 }, "unicorns.sample_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %T", err)
			assert.Equal(t, tt.param, verr.ParamName)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("A", "x")
	assert.Equal(t, "x-${B", substituteEnvVars("${A}-${B"))
	assert.Equal(t, "x/x", substituteEnvVars("${A}/${A}"))
	assert.Equal(t, "/p", substituteEnvVars("${UNSET_TABML_VAR}/p"))
}
