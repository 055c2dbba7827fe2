package ensemble

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/pkg/errors"
)

func TestGradientBoostingClassifier_LeafWeights(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 10, 11, 12, 13})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	gb := NewGradientBoostingClassifier(
		WithBoostRounds(1),
		WithBoostMaxDepth(1),
		WithLearningRate(0.3),
		WithLambda(1),
		WithMinChildWeight(0),
	)
	require.NoError(t, gb.Fit(X, y))
	require.Len(t, gb.Trees(), 1)

	root := gb.Trees()[0].Nodes[0]
	assert.Equal(t, 0, root.Feature)
	assert.Equal(t, 6.5, root.Threshold)

	// G = ±2 and H = 1 on each side, so w = -G/(H+λ) = ∓1, shrunk by 0.3.
	margin, err := gb.DecisionFunction(X)
	require.NoError(t, err)
	assert.InDelta(t, -0.3, margin.AtVec(0), 1e-12)
	assert.InDelta(t, 0.3, margin.AtVec(7), 1e-12)

	proba, err := gb.PredictProba(X)
	require.NoError(t, err)
	assert.InDelta(t, errors.Sigmoid(0.3), proba.At(7, 1), 1e-12)
	assert.InDelta(t, 1.0, proba.At(7, 0)+proba.At(7, 1), 1e-12)
	assert.Equal(t, []float64{1}, gb.GetFeatureImportances())
}

func TestGradientBoostingClassifier_MinChildWeight(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 10, 11, 12, 13})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	// Every row starts with hessian 0.25, so no child can reach 5.
	gb := NewGradientBoostingClassifier(WithBoostRounds(1), WithMinChildWeight(5))
	require.NoError(t, gb.Fit(X, y))
	assert.Len(t, gb.Trees()[0].Nodes, 1)
	assert.InDelta(t, 0.0, gb.Trees()[0].Nodes[0].Weight, 1e-12)
}

func TestGradientBoostingClassifier_Fit(t *testing.T) {
	X, y := blobs(200, 2, 5)

	gb := NewGradientBoostingClassifier(WithBoostRounds(30), WithBoostMaxDepth(3), WithBoostRandomState(0))
	require.NoError(t, gb.Fit(X, y))
	score, err := gb.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	imp := gb.GetFeatureImportances()
	require.Len(t, imp, 3)
	assert.Greater(t, imp[0], 0.5)
	assert.Equal(t, []float64{0, 1}, gb.Classes())

	t.Run("Sampling is seeded", func(t *testing.T) {
		opts := []BoostOption{WithBoostRounds(10), WithSubsample(0.6), WithColsampleByTree(0.5), WithBoostRandomState(9)}
		a := NewGradientBoostingClassifier(opts...)
		b := NewGradientBoostingClassifier(opts...)
		require.NoError(t, a.Fit(X, y))
		require.NoError(t, b.Fit(X, y))
		ma, err := a.DecisionFunction(X)
		require.NoError(t, err)
		mb, err := b.DecisionFunction(X)
		require.NoError(t, err)
		assert.True(t, mat.Equal(ma, mb))
	})
}

func TestGradientBoostingClassifier_Errors(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})

	err := NewGradientBoostingClassifier().Fit(X, mat.NewDense(4, 1, []float64{0, 1, 2, 1}))
	assert.Error(t, err)

	err = NewGradientBoostingClassifier(WithLearningRate(0)).Fit(X, mat.NewDense(4, 1, []float64{0, 1, 0, 1}))
	assert.Error(t, err)

	_, err = NewGradientBoostingClassifier().PredictProba(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	gb := NewGradientBoostingClassifier(WithBoostRounds(2))
	require.NoError(t, gb.Fit(X, mat.NewDense(4, 1, []float64{0, 0, 1, 1})))
	_, err = gb.Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestGradientBoostingClassifier_Params(t *testing.T) {
	gb := NewGradientBoostingClassifier()
	require.NoError(t, gb.SetParams(map[string]interface{}{
		"max_depth":        8,
		"min_child_weight": 3,
		"learning_rate":    0.1,
		"n_estimators":     300,
		"objective":        "binary:logistic",
		"random_state":     0,
	}))
	p := gb.Clone().GetParams()
	assert.Equal(t, 8, p["max_depth"])
	assert.Equal(t, 3.0, p["min_child_weight"])
	assert.Equal(t, 0.1, p["learning_rate"])
	assert.Equal(t, 300, p["n_estimators"])
	assert.Equal(t, int64(0), p["random_state"])

	assert.Error(t, gb.SetParams(map[string]interface{}{"objective": "multi:softmax"}))
	assert.Error(t, gb.SetParams(map[string]interface{}{"booster": "dart"}))
}

func TestGradientBoostingClassifier_GobRoundTrip(t *testing.T) {
	X, y := blobs(60, 1, 4)
	gb := NewGradientBoostingClassifier(WithBoostRounds(5), WithBoostMaxDepth(2), WithLearningRate(0.1))
	require.NoError(t, gb.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(gb, &buf))
	loaded := NewGradientBoostingClassifier()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	assert.Equal(t, 0.1, loaded.GetParams()["learning_rate"])
	want, err := gb.DecisionFunction(X)
	require.NoError(t, err)
	got, err := loaded.DecisionFunction(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}
