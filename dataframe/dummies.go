package dataframe

import (
	"sort"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// Categories returns the sorted distinct non-missing values of col,
// formatted as strings. Numeric columns sort numerically.
func (f *Frame) Categories(col string) ([]string, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	first := make(map[string]int)
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		if _, ok := first[c.Str(i)]; !ok {
			first[c.Str(i)] = i
		}
	}
	idx := make([]int, 0, len(first))
	for _, i := range first {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return c.less(idx[a], idx[b]) })
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = c.Str(i)
	}
	return out, nil
}

// GetDummies replaces each of cols with 0/1 indicator columns named
// "<col>_<value>", appended after the remaining columns. Categories are
// sorted and dropFirst removes the first one. Missing values encode as all
// zeros.
func (f *Frame) GetDummies(cols []string, dropFirst bool) (*Frame, error) {
	if len(cols) == 0 {
		return nil, errors.NewValueError("GetDummies", "no columns given")
	}
	out, err := f.Drop(cols...)
	if err != nil {
		return nil, err
	}
	for _, col := range cols {
		cats, err := f.Categories(col)
		if err != nil {
			return nil, err
		}
		if dropFirst && len(cats) > 0 {
			cats = cats[1:]
		}
		src, err := f.Col(col)
		if err != nil {
			return nil, err
		}
		for _, d := range Indicators(src, cats) {
			if out, err = out.WithColumn(d); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// DummyName is the indicator column name for category cat of col.
func DummyName(col, cat string) string {
	return col + "_" + cat
}

// Indicators encodes src against a fixed category list as one 0/1 column
// per category, named by DummyName. Missing values and values outside the
// list encode as all zeros.
func Indicators(src *Series, cats []string) []*Series {
	pos := make(map[string]int, len(cats))
	values := make([][]float64, len(cats))
	for k, cat := range cats {
		pos[cat] = k
		values[k] = make([]float64, src.Len())
	}
	for i := 0; i < src.Len(); i++ {
		if src.IsNull(i) {
			continue
		}
		if k, ok := pos[src.Str(i)]; ok {
			values[k][i] = 1
		}
	}
	out := make([]*Series, len(cats))
	for k, cat := range cats {
		out[k] = NewFloatSeries(DummyName(src.Name(), cat), values[k])
	}
	return out
}
