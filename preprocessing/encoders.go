package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/dataframe"
	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// OneHotEncoder learns the categories of string columns on a training
// frame and expands them into 0/1 indicator columns named "<col>_<value>".
// Categories unseen during Fit encode as all zeros.
type OneHotEncoder struct {
	state *model.StateManager

	// DropFirst drops the first (alphabetically smallest) category of every
	// column.
	DropFirst bool

	// Columns are the encoded input columns in Fit order.
	Columns []string
	// Categories maps each input column to its sorted kept categories.
	Categories map[string][]string
}

// NewOneHotEncoder creates a OneHotEncoder.
func NewOneHotEncoder(dropFirst bool) *OneHotEncoder {
	return &OneHotEncoder{state: model.NewStateManager(), DropFirst: dropFirst}
}

// Fit learns the categories of cols from df.
func (e *OneHotEncoder) Fit(df *dataframe.Frame, cols ...string) error {
	if len(cols) == 0 {
		return errors.NewValueError("OneHotEncoder.Fit", "no columns given")
	}
	if df.NRows() == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	categories := make(map[string][]string, len(cols))
	for _, col := range cols {
		cats, err := df.Categories(col)
		if err != nil {
			return err
		}
		if e.DropFirst && len(cats) > 0 {
			cats = cats[1:]
		}
		categories[col] = cats
	}
	e.Columns = append([]string(nil), cols...)
	e.Categories = categories
	e.state.SetDimensions(len(cols), df.NRows())
	e.state.SetFitted()
	return nil
}

// Transform drops the fitted columns from df and appends their indicator
// columns after the remaining ones.
func (e *OneHotEncoder) Transform(df *dataframe.Frame) (*dataframe.Frame, error) {
	if err := e.state.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	out, err := df.Drop(e.Columns...)
	if err != nil {
		return nil, err
	}
	for _, col := range e.Columns {
		src, err := df.Col(col)
		if err != nil {
			return nil, err
		}
		for _, s := range dataframe.Indicators(src, e.Categories[col]) {
			if out, err = out.WithColumn(s); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// FitTransform fits on df and transforms it.
func (e *OneHotEncoder) FitTransform(df *dataframe.Frame, cols ...string) (*dataframe.Frame, error) {
	if err := e.Fit(df, cols...); err != nil {
		return nil, err
	}
	return e.Transform(df)
}

// FeatureNames returns the names of the produced indicator columns.
func (e *OneHotEncoder) FeatureNames() []string {
	var names []string
	for _, col := range e.Columns {
		for _, cat := range e.Categories[col] {
			names = append(names, dataframe.DummyName(col, cat))
		}
	}
	return names
}

// IsFitted reports whether Fit has completed.
func (e *OneHotEncoder) IsFitted() bool { return e.state.IsFitted() }

// LabelEncoder maps string labels to integer class ids in sorted label
// order.
type LabelEncoder struct {
	state *model.StateManager

	Classes []string
	index   map[string]int
}

// NewLabelEncoder creates a LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager()}
}

// Fit learns the distinct labels.
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	seen := make(map[string]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	e.Classes = make([]string, 0, len(seen))
	for l := range seen {
		e.Classes = append(e.Classes, l)
	}
	sort.Strings(e.Classes)
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
	e.state.SetDimensions(1, len(labels))
	e.state.SetFitted()
	return nil
}

// Transform returns the class id of every label. Unknown labels are a
// ValueError.
func (e *LabelEncoder) Transform(labels []string) ([]float64, error) {
	if err := e.state.RequireFitted("LabelEncoder", "Transform"); err != nil {
		return nil, err
	}
	out := make([]float64, len(labels))
	for i, l := range labels {
		id, ok := e.index[l]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("y contains previously unseen label %q", l))
		}
		out[i] = float64(id)
	}
	return out, nil
}

// FitTransform fits on labels and encodes them.
func (e *LabelEncoder) FitTransform(labels []string) ([]float64, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform maps class ids back to labels.
func (e *LabelEncoder) InverseTransform(ids []float64) ([]string, error) {
	if err := e.state.RequireFitted("LabelEncoder", "InverseTransform"); err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		k := int(id)
		if float64(k) != id || k < 0 || k >= len(e.Classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", fmt.Sprintf("invalid class id %v", id))
		}
		out[i] = e.Classes[k]
	}
	return out, nil
}
