// Package naive_bayes implements multinomial and Gaussian naive Bayes
// classifiers.
package naive_bayes

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// jointLogLikelihood computes log P(x, c) for each row and class.
type jointLogLikelihood func(X mat.Matrix) (*mat.Dense, error)

func logProbaFrom(jll *mat.Dense) *mat.Dense {
	rows, cols := jll.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		row := jll.RawRowView(i)
		norm := errors.LogSumExp(row)
		for k := 0; k < cols; k++ {
			out.Set(i, k, row[k]-norm)
		}
	}
	return out
}

func probaFrom(jll *mat.Dense) *mat.Dense {
	logp := logProbaFrom(jll)
	logp.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, logp)
	return logp
}

func predictFrom(jll *mat.Dense, classes []float64) *mat.Dense {
	rows, cols := jll.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < cols; k++ {
			if jll.At(i, k) > jll.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, classes[best])
	}
	return out
}

func accuracy(pred, y mat.Matrix) (float64, error) {
	rows, _ := pred.Dims()
	yr, _ := y.Dims()
	if rows != yr {
		return 0, errors.NewDimensionError("Score", rows, yr, 0)
	}
	if rows == 0 {
		return 0, errors.ErrEmptyData
	}
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}

func uniqueLabels(y mat.Matrix) []float64 {
	rows, _ := y.Dims()
	seen := make(map[float64]struct{})
	for i := 0; i < rows; i++ {
		seen[y.At(i, 0)] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func labelIndex(classes []float64) map[float64]int {
	idx := make(map[float64]int, len(classes))
	for k, c := range classes {
		idx[c] = k
	}
	return idx
}

func checkXY(op string, X, y mat.Matrix) (int, int, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.Wrapf(errors.ErrEmptyData, "%s", op)
	}
	if yr, _ := y.Dims(); yr != rows {
		return 0, 0, errors.NewDimensionError(op, rows, yr, 0)
	}
	return rows, cols, nil
}

func unknownLabel(op string, label float64, classes []float64) error {
	return errors.NewValueError(op, fmt.Sprintf("label %v is not in classes %v", label, classes))
}
