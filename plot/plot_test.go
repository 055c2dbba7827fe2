package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func requireFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestConfusionMatrix(t *testing.T) {
	dir := t.TempDir()
	cm := mat.NewDense(2, 2, []float64{50, 3, 7, 40})
	path := filepath.Join(dir, "cm.png")
	require.NoError(t, ConfusionMatrix(cm, []string{"opinion", "claim"}, "Validation", path))
	requireFile(t, path)

	// A uniform matrix must not break the colour scale.
	svg := filepath.Join(dir, "nested", "uniform.svg")
	require.NoError(t, ConfusionMatrix(mat.NewDense(2, 2, []float64{1, 1, 1, 1}), []string{"0", "1"}, "", svg))
	requireFile(t, svg)

	require.Error(t, ConfusionMatrix(cm, []string{"only one"}, "", path))
	require.Error(t, ConfusionMatrix(mat.NewDense(2, 3, nil), []string{"a", "b"}, "", path))
}

func TestHistogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.png")
	groups := map[string][]float64{
		"claim":   {80, 90, 95, 100, 110},
		"opinion": {40, 45, 60, 70},
	}
	require.NoError(t, Histogram(groups, 10, "Text length", "text_length", path))
	requireFile(t, path)

	require.Error(t, Histogram(groups, 0, "", "", path))
	require.Error(t, Histogram(map[string][]float64{}, 5, "", "", path))
}

func TestBars(t *testing.T) {
	dir := t.TempDir()
	imp := filepath.Join(dir, "importances.png")
	require.NoError(t, FeatureImportances(
		[]string{"video_view_count", "video_like_count", "text_length"},
		[]float64{0.2, 0.7, 0.1}, "Feature importances", imp))
	requireFile(t, imp)

	bar := filepath.Join(dir, "bar.pdf")
	require.NoError(t, GroupedBar([]string{"Fintech", "Health"}, []float64{12, 20}, "Max years", bar))
	requireFile(t, bar)

	require.Error(t, FeatureImportances([]string{"a"}, []float64{1, 2}, "", imp))
	require.Error(t, GroupedBar(nil, nil, "", bar))
}
