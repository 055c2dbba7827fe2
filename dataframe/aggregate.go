package dataframe

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// AggFunc names a reduction over the non-missing values of a column.
type AggFunc string

const (
	AggMean   AggFunc = "mean"
	AggMax    AggFunc = "max"
	AggMin    AggFunc = "min"
	AggSum    AggFunc = "sum"
	AggMedian AggFunc = "median"
	AggCount  AggFunc = "count"
	AggStd    AggFunc = "std"
)

// ParseAggFunc validates an aggregation name.
func ParseAggFunc(name string) (AggFunc, error) {
	switch fn := AggFunc(name); fn {
	case AggMean, AggMax, AggMin, AggSum, AggMedian, AggCount, AggStd:
		return fn, nil
	}
	return "", errors.NewValidationError("agg", "expected mean, max, min, sum, median, count or std", name)
}

func nonNull(values []float64) stats.Float64Data {
	out := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// aggregate reduces data, which must not contain NaN. Empty input gives
// NaN (0 for count and sum) and std uses ddof=1.
func aggregate(data stats.Float64Data, fn AggFunc) float64 {
	switch fn {
	case AggCount:
		return float64(len(data))
	case AggSum:
		v, _ := stats.Sum(data)
		return v
	}
	if len(data) == 0 {
		return math.NaN()
	}
	var v float64
	var err error
	switch fn {
	case AggMean:
		v, err = stats.Mean(data)
	case AggMax:
		v, err = stats.Max(data)
	case AggMin:
		v, err = stats.Min(data)
	case AggMedian:
		v, err = stats.Median(data)
	case AggStd:
		if len(data) < 2 {
			return math.NaN()
		}
		v, err = stats.StandardDeviationSample(data)
	}
	if err != nil {
		return math.NaN()
	}
	return v
}

// quantile computes the q-th quantile with linear interpolation between
// the closest ranks, the pandas default.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Describe summarises every numeric column: count, mean, std, min, 25%,
// 50%, 75% and max. The first column, "stat", names the statistic.
func (f *Frame) Describe() (*Frame, error) {
	stat := []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	cols := []*Series{NewStringSeries("stat", stat)}
	for _, c := range f.cols {
		if c.Kind() != Float {
			continue
		}
		data := nonNull(c.floats)
		sorted := append([]float64(nil), data...)
		sort.Float64s(sorted)
		cols = append(cols, NewFloatSeries(c.Name(), []float64{
			aggregate(data, AggCount),
			aggregate(data, AggMean),
			aggregate(data, AggStd),
			quantile(sorted, 0),
			quantile(sorted, 0.25),
			quantile(sorted, 0.5),
			quantile(sorted, 0.75),
			quantile(sorted, 1),
		}))
	}
	if len(cols) == 1 {
		return nil, errors.NewValueError("Describe", "frame has no numeric columns")
	}
	return New(cols...)
}

// DescribeObject summarises string columns: count, unique, top and freq.
func (f *Frame) DescribeObject() (*Frame, error) {
	cols := []*Series{NewStringSeries("stat", []string{"count", "unique", "top", "freq"})}
	for _, c := range f.cols {
		if c.Kind() != String {
			continue
		}
		counts := make(map[string]int)
		var order []string
		n := 0
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			n++
			if counts[c.strs[i]] == 0 {
				order = append(order, c.strs[i])
			}
			counts[c.strs[i]]++
		}
		top, freq := "", 0
		for _, k := range order {
			if counts[k] > freq {
				top, freq = k, counts[k]
			}
		}
		cols = append(cols, NewStringSeries(c.Name(), []string{
			formatFloat(float64(n)), formatFloat(float64(len(counts))), top, formatFloat(float64(freq)),
		}))
	}
	if len(cols) == 1 {
		return nil, errors.NewValueError("DescribeObject", "frame has no string columns")
	}
	return New(cols...)
}

// ColumnInfo is one line of Info.
type ColumnInfo struct {
	Name    string
	Kind    Kind
	NonNull int
}

// Info lists every column with its kind and non-missing count.
func (f *Frame) Info() []ColumnInfo {
	out := make([]ColumnInfo, len(f.cols))
	for i, c := range f.cols {
		out[i] = ColumnInfo{Name: c.Name(), Kind: c.Kind(), NonNull: c.Len() - c.NullCount()}
	}
	return out
}

// IsNA returns the number of missing values per column as a frame with
// columns "column" and "missing".
func (f *Frame) IsNA() *Frame {
	names := f.Columns()
	counts := make([]float64, len(names))
	for i, c := range f.cols {
		counts[i] = float64(c.NullCount())
	}
	return mustNew(NewStringSeries("column", names), NewFloatSeries("missing", counts))
}

// ValueCounts counts the distinct non-missing values of col, most frequent
// first with ties ordered by value. With normalize the counts are divided
// by the number of non-missing rows and the column is named "proportion".
func (f *Frame) ValueCounts(col string, normalize bool) (*Frame, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	rep := make(map[string]int)
	total := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		k := c.Str(i)
		if _, ok := rep[k]; !ok {
			rep[k] = i
		}
		counts[k]++
		total++
	}
	idx := make([]int, 0, len(rep))
	for _, i := range rep {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool {
		ca, cb := counts[c.Str(idx[a])], counts[c.Str(idx[b])]
		if ca != cb {
			return ca > cb
		}
		return c.less(idx[a], idx[b])
	})

	name := "count"
	values := make([]float64, len(idx))
	for k, i := range idx {
		values[k] = float64(counts[c.Str(i)])
		if normalize {
			values[k] /= float64(total)
		}
	}
	if normalize {
		name = "proportion"
	}
	return New(c.take(idx), NewFloatSeries(name, values))
}
