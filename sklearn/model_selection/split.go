// Package model_selection provides data splitting, cross-validation
// splitters, parameter grids and exhaustive grid search.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// SplitOptions controls TrainTestSplit.
type SplitOptions struct {
	// Shuffle permutes rows before splitting. Stratified splits always shuffle.
	Shuffle bool
	// Seed makes the permutation reproducible.
	Seed uint64
	// Stratify holds one label per row. When set, every label keeps its
	// share of rows in both partitions.
	Stratify []float64
}

// TrainTestSplit partitions row indices 0..n-1 into train and test sets.
// The test set has ceil(testSize*n) rows when testSize is a fraction in
// (0, 1), or testSize rows when it is a whole number >= 1. The two sets are
// disjoint and together cover every row.
func TrainTestSplit(n int, testSize float64, opts SplitOptions) (train, test []int, err error) {
	nTest, err := resolveTestSize(n, testSize)
	if err != nil {
		return nil, nil, err
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	if opts.Stratify != nil {
		if len(opts.Stratify) != n {
			return nil, nil, errors.NewDimensionError("TrainTestSplit", n, len(opts.Stratify), 0)
		}
		return stratifiedSplit(opts.Stratify, nTest, rng)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if opts.Shuffle {
		rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
		return indices[nTest:], indices[:nTest], nil
	}
	return indices[:n-nTest], indices[n-nTest:], nil
}

func resolveTestSize(n int, testSize float64) (int, error) {
	if n < 2 {
		return 0, errors.NewValueError("TrainTestSplit", "need at least 2 samples to split")
	}
	var nTest int
	switch {
	case testSize > 0 && testSize < 1:
		nTest = int(math.Ceil(testSize * float64(n)))
	case testSize >= 1 && testSize == math.Trunc(testSize):
		nTest = int(testSize)
	default:
		return 0, errors.NewValidationError("test_size", "must be a fraction in (0, 1) or a whole number of rows", testSize)
	}
	if nTest >= n {
		return 0, errors.NewValidationError("test_size", "leaves no training rows", testSize)
	}
	return nTest, nil
}

// stratifiedSplit allocates test rows to classes by largest remainder:
// each class first gets floor(nTest * share), then the rows still missing
// go to the classes with the largest fractional parts (larger classes and
// then smaller labels win ties).
func stratifiedSplit(labels []float64, nTest int, rng *rand.Rand) (train, test []int, err error) {
	n := len(labels)
	groups := make(map[float64][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	classes := make([]float64, 0, len(groups))
	for l := range groups {
		classes = append(classes, l)
	}
	sort.Float64s(classes)
	if len(classes) < 2 {
		return nil, nil, errors.Wrap(errors.ErrSingleClass, "TrainTestSplit: stratify needs at least 2 classes")
	}
	for _, l := range classes {
		if len(groups[l]) < 2 {
			return nil, nil, errors.NewValueError("TrainTestSplit",
				"the least populated class in stratify has only 1 member, which is too few")
		}
	}

	alloc := LargestRemainder(classes, groups, nTest, n)

	for _, l := range classes {
		idx := groups[l]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:alloc[l]]...)
		train = append(train, idx[alloc[l]:]...)
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// LargestRemainder distributes total rows over classes proportionally to
// their group sizes out of n. The allocations sum to total.
func LargestRemainder(classes []float64, groups map[float64][]int, total, n int) map[float64]int {
	type rem struct {
		label float64
		frac  float64
		size  int
	}
	alloc := make(map[float64]int, len(classes))
	rems := make([]rem, 0, len(classes))
	assigned := 0
	for _, l := range classes {
		exact := float64(total) * float64(len(groups[l])) / float64(n)
		base := int(math.Floor(exact))
		if base > len(groups[l]) {
			base = len(groups[l])
		}
		alloc[l] = base
		assigned += base
		rems = append(rems, rem{label: l, frac: exact - float64(base), size: len(groups[l])})
	}
	sort.SliceStable(rems, func(i, j int) bool {
		if rems[i].frac != rems[j].frac {
			return rems[i].frac > rems[j].frac
		}
		if rems[i].size != rems[j].size {
			return rems[i].size > rems[j].size
		}
		return rems[i].label < rems[j].label
	})
	for i := 0; assigned < total; i = (i + 1) % len(rems) {
		l := rems[i].label
		if alloc[l] < len(groups[l]) {
			alloc[l]++
			assigned++
		}
	}
	return alloc
}

// TakeRows copies the given rows of m, in order, into a new matrix.
func TakeRows(m mat.Matrix, indices []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	row := make([]float64, cols)
	for i, idx := range indices {
		mat.Row(row, idx, m)
		out.SetRow(i, row)
	}
	return out
}

// SplitXY materialises train and test matrices for the given row indices.
func SplitXY(X, y mat.Matrix, train, test []int) (XTrain, XTest, yTrain, yTest *mat.Dense) {
	return TakeRows(X, train), TakeRows(X, test), TakeRows(y, train), TakeRows(y, test)
}
