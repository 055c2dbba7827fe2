package model_selection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

func TestTrainTestSplit(t *testing.T) {
	t.Run("Fraction rounds test size up", func(t *testing.T) {
		train, test, err := TrainTestSplit(10, 0.25, SplitOptions{})
		require.NoError(t, err)
		assert.Len(t, test, 3)
		assert.Len(t, train, 7)
		assert.Equal(t, []int{7, 8, 9}, test)
	})

	t.Run("Whole number test size", func(t *testing.T) {
		train, test, err := TrainTestSplit(10, 4, SplitOptions{Shuffle: true, Seed: 1})
		require.NoError(t, err)
		assert.Len(t, test, 4)
		assert.Len(t, train, 6)
	})

	t.Run("Partitions are disjoint and complete", func(t *testing.T) {
		train, test, err := TrainTestSplit(97, 0.2, SplitOptions{Shuffle: true, Seed: 42})
		require.NoError(t, err)
		all := append(append([]int{}, train...), test...)
		sort.Ints(all)
		for i := range all {
			assert.Equal(t, i, all[i])
		}
	})

	t.Run("Same seed same split", func(t *testing.T) {
		_, a, err := TrainTestSplit(50, 0.3, SplitOptions{Shuffle: true, Seed: 7})
		require.NoError(t, err)
		_, b, err := TrainTestSplit(50, 0.3, SplitOptions{Shuffle: true, Seed: 7})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("Invalid test size", func(t *testing.T) {
		_, _, err := TrainTestSplit(10, 1.5, SplitOptions{})
		assert.Error(t, err)
		_, _, err = TrainTestSplit(10, 10, SplitOptions{})
		assert.Error(t, err)
		_, _, err = TrainTestSplit(10, 0, SplitOptions{})
		assert.Error(t, err)
	})
}

func TestStratifiedTrainTestSplit(t *testing.T) {
	t.Run("Class proportions preserved", func(t *testing.T) {
		labels := make([]float64, 100)
		for i := 0; i < 20; i++ {
			labels[i] = 1
		}
		train, test, err := TrainTestSplit(100, 0.25, SplitOptions{Stratify: labels, Seed: 0})
		require.NoError(t, err)
		require.Len(t, test, 25)
		require.Len(t, train, 75)

		positives := 0
		for _, idx := range test {
			if labels[idx] == 1 {
				positives++
			}
		}
		assert.Equal(t, 5, positives)
	})

	t.Run("Remainder goes to larger class", func(t *testing.T) {
		groups := map[float64][]int{0: make([]int, 5), 1: make([]int, 5)}
		alloc := LargestRemainder([]float64{0, 1}, groups, 3, 10)
		assert.Equal(t, 3, alloc[0]+alloc[1])
		assert.Equal(t, 2, alloc[0])
		assert.Equal(t, 1, alloc[1])

		groups = map[float64][]int{0: make([]int, 3), 1: make([]int, 7)}
		alloc = LargestRemainder([]float64{0, 1}, groups, 5, 10)
		assert.Equal(t, 5, alloc[0]+alloc[1])
		assert.Equal(t, 4, alloc[1])
	})

	t.Run("Single class rejected", func(t *testing.T) {
		_, _, err := TrainTestSplit(4, 0.5, SplitOptions{Stratify: []float64{1, 1, 1, 1}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrSingleClass))
	})

	t.Run("Singleton class rejected", func(t *testing.T) {
		_, _, err := TrainTestSplit(4, 0.5, SplitOptions{Stratify: []float64{0, 0, 0, 1}})
		assert.Error(t, err)
	})

	t.Run("Label length mismatch", func(t *testing.T) {
		_, _, err := TrainTestSplit(4, 0.5, SplitOptions{Stratify: []float64{0, 1}})
		assert.Error(t, err)
	})
}

func TestSplitXY(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{0, 0, 1, 10, 2, 20, 3, 30})
	y := mat.NewDense(4, 1, []float64{0, 1, 0, 1})

	xtr, xte, ytr, yte := SplitXY(X, y, []int{3, 0}, []int{2, 1})
	assert.Equal(t, 30.0, xtr.At(0, 1))
	assert.Equal(t, 0.0, xtr.At(1, 1))
	assert.Equal(t, 20.0, xte.At(0, 1))
	assert.Equal(t, 1.0, ytr.At(0, 0))
	assert.Equal(t, 1.0, yte.At(1, 0))
}
