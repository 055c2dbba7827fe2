package model_selection

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// Splitter partitions the rows of X into cross-validation folds.
type Splitter interface {
	Split(X, y mat.Matrix) ([]CVFold, error)
	GetNSplits() int
}

// CVFold holds the row indices of one train/validation round.
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

const defaultSplits = 5

// KFold assigns consecutive blocks of rows to folds, optionally after a
// seeded shuffle.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold returns a KFold; nSplits below 2 falls back to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	if nSplits < 2 {
		nSplits = defaultSplits
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

func (kf *KFold) GetNSplits() int { return kf.NSplits }

// Split gives fold i a block of n/k rows, plus one for the first n%k folds.
func (kf *KFold) Split(X, _ mat.Matrix) ([]CVFold, error) {
	n, _ := X.Dims()
	if err := checkSplits("KFold.Split", kf.NSplits, n); err != nil {
		return nil, err
	}

	order := identity(n)
	if kf.Shuffle {
		rng := seededRand(kf.RandomSeed)
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	assign := make([]int, n)
	pos := 0
	for f := 0; f < kf.NSplits; f++ {
		size := n / kf.NSplits
		if f < n%kf.NSplits {
			size++
		}
		for _, row := range order[pos : pos+size] {
			assign[row] = f
		}
		pos += size
	}
	return buildFolds(assign, kf.NSplits, order), nil
}

// StratifiedKFold keeps each class's share roughly constant across folds.
// Rows are dealt round robin over the label-sorted sequence, so per-fold
// class counts differ by at most one; Shuffle only changes which rows of a
// class land in which fold.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewStratifiedKFold returns a StratifiedKFold; nSplits below 2 falls back to 5.
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = defaultSplits
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

func (skf *StratifiedKFold) GetNSplits() int { return skf.NSplits }

// Split returns folds stratified on the first column of y.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]CVFold, error) {
	const op = "StratifiedKFold.Split"
	n, _ := X.Dims()
	if yr, _ := y.Dims(); yr != n {
		return nil, errors.NewDimensionError(op, n, yr, 0)
	}
	if err := checkSplits(op, skf.NSplits, n); err != nil {
		return nil, err
	}

	members := make(map[float64][]int)
	for i := 0; i < n; i++ {
		members[y.At(i, 0)] = append(members[y.At(i, 0)], i)
	}
	labels := make([]float64, 0, len(members))
	largest := 0
	for l, rows := range members {
		labels = append(labels, l)
		largest = max(largest, len(rows))
	}
	slices.Sort(labels)
	if largest < skf.NSplits {
		return nil, errors.NewValueError(op,
			fmt.Sprintf("n_splits=%d cannot be greater than the number of members in each class", skf.NSplits))
	}

	var rng *rand.Rand
	if skf.Shuffle {
		rng = seededRand(skf.RandomSeed)
	}

	assign := make([]int, n)
	dealt := 0
	for _, l := range labels {
		rows := members[l]
		// The fold ids this class receives, in dealing order.
		ids := make([]int, len(rows))
		for i := range ids {
			ids[i] = (dealt + i) % skf.NSplits
		}
		dealt += len(rows)
		slices.Sort(ids)
		if rng != nil {
			rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		}
		for i, row := range rows {
			assign[row] = ids[i]
		}
	}
	return buildFolds(assign, skf.NSplits, identity(n)), nil
}

func checkSplits(op string, k, n int) error {
	if k > n {
		return errors.NewValueError(op,
			fmt.Sprintf("cannot have number of splits n_splits=%d greater than the number of samples: n_samples=%d", k, n))
	}
	return nil
}

func seededRand(seed int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// buildFolds turns a per-row fold id into folds. Validation rows follow
// order; training rows are ascending.
func buildFolds(assign []int, k int, order []int) []CVFold {
	folds := make([]CVFold, k)
	for _, row := range order {
		f := assign[row]
		folds[f].TestIndices = append(folds[f].TestIndices, row)
	}
	for row, f := range assign {
		for g := range folds {
			if g != f {
				folds[g].TrainIndices = append(folds[g].TrainIndices, row)
			}
		}
	}
	return folds
}
