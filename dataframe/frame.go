package dataframe

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// Frame is an ordered set of equal-length columns. Operations return new
// frames and never modify their receiver.
type Frame struct {
	cols  []*Series
	index map[string]int
}

// New builds a frame from columns. Column names must be unique and all
// columns must have the same length.
func New(cols ...*Series) (*Frame, error) {
	f := &Frame{cols: make([]*Series, 0, len(cols)), index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if _, dup := f.index[c.Name()]; dup {
			return nil, errors.NewValueError("dataframe.New", "duplicate column "+c.Name())
		}
		if len(f.cols) > 0 && c.Len() != f.cols[0].Len() {
			return nil, errors.NewDimensionError("dataframe.New", f.cols[0].Len(), c.Len(), 0)
		}
		f.index[c.Name()] = len(f.cols)
		f.cols = append(f.cols, c)
	}
	return f, nil
}

func mustNew(cols ...*Series) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// NRows returns the number of rows.
func (f *Frame) NRows() int {
	if len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].Len()
}

// NCols returns the number of columns.
func (f *Frame) NCols() int { return len(f.cols) }

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) { return f.NRows(), f.NCols() }

// Size returns rows*columns.
func (f *Frame) Size() int { return f.NRows() * f.NCols() }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name()
	}
	return names
}

// Has reports whether the frame has a column named name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Col returns the named column.
func (f *Frame) Col(name string) (*Series, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.NewColumnNotFoundError(name, f.Columns())
	}
	return f.cols[i], nil
}

func (f *Frame) floatCol(op, name string) (*Series, error) {
	c, err := f.Col(name)
	if err != nil {
		return nil, err
	}
	if c.Kind() != Float {
		return nil, errors.NewValueError(op, "column "+name+" is not numeric")
	}
	return c, nil
}

// Take returns the rows at idx, in order.
func (f *Frame) Take(idx []int) *Frame {
	cols := make([]*Series, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.take(idx)
	}
	return mustNew(cols...)
}

func seq(lo, hi int) []int {
	out := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > f.NRows() {
		n = f.NRows()
	}
	return f.Take(seq(0, n))
}

// Tail returns the last n rows.
func (f *Frame) Tail(n int) *Frame {
	rows := f.NRows()
	if n > rows {
		n = rows
	}
	return f.Take(seq(rows-n, rows))
}

// Select returns the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Series, 0, len(names))
	for _, n := range names {
		c, err := f.Col(n)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Drop returns the frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if !f.Has(n) {
			return nil, errors.NewColumnNotFoundError(n, f.Columns())
		}
		drop[n] = true
	}
	cols := make([]*Series, 0, len(f.cols))
	for _, c := range f.cols {
		if !drop[c.Name()] {
			cols = append(cols, c)
		}
	}
	return New(cols...)
}

// WithColumn adds s, or replaces the column with the same name in place.
func (f *Frame) WithColumn(s *Series) (*Frame, error) {
	if f.NCols() > 0 && s.Len() != f.NRows() {
		return nil, errors.NewDimensionError("WithColumn", f.NRows(), s.Len(), 0)
	}
	cols := append([]*Series(nil), f.cols...)
	if i, ok := f.index[s.Name()]; ok {
		cols[i] = s
	} else {
		cols = append(cols, s)
	}
	return New(cols...)
}

// Concat joins frames side by side. All frames must have the same number
// of rows and distinct column names.
func Concat(frames ...*Frame) (*Frame, error) {
	var cols []*Series
	for _, fr := range frames {
		cols = append(cols, fr.cols...)
	}
	return New(cols...)
}

// Filter keeps the rows where mask is true.
func (f *Frame) Filter(mask []bool) (*Frame, error) {
	if len(mask) != f.NRows() {
		return nil, errors.NewDimensionError("Filter", f.NRows(), len(mask), 0)
	}
	idx := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	return f.Take(idx), nil
}

// FloatMask evaluates pred on every value of a numeric column.
func (f *Frame) FloatMask(col string, pred func(float64) bool) ([]bool, error) {
	c, err := f.floatCol("FloatMask", col)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, c.Len())
	for i := range mask {
		mask[i] = pred(c.floats[i])
	}
	return mask, nil
}

// StringMask evaluates pred on every formatted value of a column. Missing
// values are passed as "".
func (f *Frame) StringMask(col string, pred func(string) bool) ([]bool, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, c.Len())
	for i := range mask {
		mask[i] = pred(c.Str(i))
	}
	return mask, nil
}

// FilterEq keeps rows where col equals value. value is a float64 for
// numeric columns and a string otherwise.
func (f *Frame) FilterEq(col string, value interface{}) (*Frame, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	var mask []bool
	switch v := value.(type) {
	case float64:
		mask, err = f.FloatMask(col, func(x float64) bool { return x == v })
	case int:
		mask, err = f.FloatMask(col, func(x float64) bool { return x == float64(v) })
	case string:
		mask, err = f.StringMask(col, func(x string) bool { return x == v })
	default:
		return nil, errors.NewValidationError("value", "expected float64, int or string", value)
	}
	if err != nil {
		return nil, err
	}
	if c.Kind() == String {
		for i := range mask {
			mask[i] = mask[i] && !c.IsNull(i)
		}
	}
	return f.Filter(mask)
}

// SortBy sorts rows by col. The sort is stable and missing values go last
// in either direction.
func (f *Frame) SortBy(col string, ascending bool) (*Frame, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	idx := seq(0, f.NRows())
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if ascending || c.IsNull(i) || c.IsNull(j) {
			return c.less(i, j)
		}
		return c.less(j, i)
	})
	return f.Take(idx), nil
}

// Sample draws n rows without replacement using a seeded generator.
func (f *Frame) Sample(n int, seed uint64) (*Frame, error) {
	if n < 0 || n > f.NRows() {
		return nil, errors.NewValidationError("n", "cannot take a larger sample than the population", n)
	}
	r := rand.New(rand.NewPCG(seed, seed))
	return f.Take(r.Perm(f.NRows())[:n]), nil
}

// DropNA removes every row with at least one missing value.
func (f *Frame) DropNA() *Frame {
	idx := make([]int, 0, f.NRows())
	for i := 0; i < f.NRows(); i++ {
		keep := true
		for _, c := range f.cols {
			if c.IsNull(i) {
				keep = false
				break
			}
		}
		if keep {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// Duplicated counts rows that repeat an earlier row exactly.
func (f *Frame) Duplicated() int {
	seen := make(map[string]struct{}, f.NRows())
	dups := 0
	for i := 0; i < f.NRows(); i++ {
		k := f.rowKey(i, f.cols)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

func (f *Frame) rowKey(i int, cols []*Series) string {
	var key []byte
	for _, c := range cols {
		if c.IsNull(i) {
			key = append(key, 0)
		} else {
			key = append(key, 1)
			key = append(key, c.Str(i)...)
		}
		key = append(key, 0x1f)
	}
	return string(key)
}

// Mean returns the mean of the non-missing values of a numeric column.
func (f *Frame) Mean(col string) (float64, error) {
	c, err := f.floatCol("Mean", col)
	if err != nil {
		return 0, err
	}
	return aggregate(nonNull(c.floats), AggMean), nil
}

// ToMatrix copies the named numeric columns, or every column when none are
// named, into a dense matrix.
func (f *Frame) ToMatrix(cols ...string) (*mat.Dense, error) {
	if len(cols) == 0 {
		cols = f.Columns()
	}
	if len(cols) == 0 || f.NRows() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "ToMatrix")
	}
	out := mat.NewDense(f.NRows(), len(cols), nil)
	for j, name := range cols {
		c, err := f.floatCol("ToMatrix", name)
		if err != nil {
			return nil, err
		}
		for i, v := range c.floats {
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// FromMatrix wraps the columns of m as Float series named names.
func FromMatrix(m mat.Matrix, names []string) (*Frame, error) {
	rows, cols := m.Dims()
	if len(names) != cols {
		return nil, errors.NewDimensionError("FromMatrix", cols, len(names), 1)
	}
	series := make([]*Series, cols)
	for j := 0; j < cols; j++ {
		col := make([]float64, rows)
		mat.Col(col, j, m)
		series[j] = &Series{name: names[j], kind: Float, floats: col}
	}
	return New(series...)
}
