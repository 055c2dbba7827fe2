// Package preprocessing provides transformers that are fit on a training
// partition and applied unchanged to held-out data: scalers, categorical
// encoders and a bag-of-n-grams text vectorizer.
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tabml/core/model"
	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// constantEps is the spread below which a column is treated as constant
// and left unscaled.
const constantEps = 1e-8

// affine holds a fitted per-column map x -> (x - shift) / div * width + base.
// Both scalers are instances of it.
type affine struct {
	name  string
	state *model.StateManager
	shift []float64
	div   []float64
	width float64
	base  float64
}

func newAffine(name string) affine {
	return affine{name: name, state: model.NewStateManager(), width: 1}
}

// fit validates X and calls colFn with each column to obtain its shift and
// divisor.
func (a *affine) fit(X mat.Matrix, colFn func(col []float64) (shift, div float64)) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError(a.name+".Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix(a.name+".Fit", X, rows, cols, -1); err != nil {
		return err
	}
	a.shift = make([]float64, cols)
	a.div = make([]float64, cols)
	buf := make([]float64, rows)
	for j := range cols {
		mat.Col(buf, j, X)
		a.shift[j], a.div[j] = colFn(buf)
	}
	a.state.SetDimensions(cols, rows)
	a.state.SetFitted()
	return nil
}

func (a *affine) apply(method string, X mat.Matrix, inverse bool) (mat.Matrix, error) {
	if err := a.state.RequireFitted(a.name, method); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := a.state.RequireFeatures(a.name+"."+method, cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, cols, nil)
	if inverse {
		out.Apply(func(_, j int, v float64) float64 {
			return (v-a.base)/a.width*a.div[j] + a.shift[j]
		}, X)
	} else {
		out.Apply(func(_, j int, v float64) float64 {
			return (v-a.shift[j])/a.div[j]*a.width + a.base
		}, X)
	}
	return out, nil
}

func (a *affine) nFeatures() int {
	n, _ := a.state.GetDimensions()
	return n
}

// StandardScaler centres each feature on its training mean and divides by
// the population standard deviation.
type StandardScaler struct {
	affine

	// Mean is the per-feature mean, zero when WithMean is false.
	Mean []float64
	// Scale is the per-feature standard deviation; constant features and
	// WithStd=false give 1.
	Scale []float64

	WithMean bool
	WithStd  bool
}

// NewStandardScaler creates a StandardScaler.
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	train, err := scaler.FitTransform(XTrain)
//	test, err := scaler.Transform(XTest)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{affine: newAffine("StandardScaler"), WithMean: withMean, WithStd: withStd}
}

// NewStandardScalerDefault centres and scales.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit records the mean and standard deviation of every column of X.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	err := s.fit(X, func(col []float64) (float64, float64) {
		mean, variance := stat.PopMeanVariance(col, nil)
		shift, div := 0.0, 1.0
		if s.WithMean {
			shift = mean
		}
		if sd := math.Sqrt(variance); s.WithStd && sd >= constantEps {
			div = sd
		}
		return shift, div
	})
	if err != nil {
		return err
	}
	s.Mean, s.Scale = s.shift, s.div
	return nil
}

// Transform returns (X - Mean) / Scale.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("Transform", X, false)
}

// FitTransform fits on X and transforms it.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform undoes Transform.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("InverseTransform", X, true)
}

func (s *StandardScaler) IsFitted() bool { return s.state.IsFitted() }

// GetParams returns with_mean and with_std.
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"with_mean": s.WithMean, "with_std": s.WithStd}
}

func (s *StandardScaler) String() string {
	desc := fmt.Sprintf("with_mean=%t, with_std=%t", s.WithMean, s.WithStd)
	if s.IsFitted() {
		desc += fmt.Sprintf(", n_features=%d", s.nFeatures())
	}
	return "StandardScaler(" + desc + ")"
}

// MinMaxScaler maps each feature's training [min, max] onto FeatureRange.
// Values outside the training range are not clipped.
type MinMaxScaler struct {
	affine

	DataMin []float64
	DataMax []float64
	// Scale is DataMax - DataMin, or 1 for constant features.
	Scale []float64

	FeatureRange [2]float64
}

// NewMinMaxScaler creates a MinMaxScaler targeting featureRange.
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{affine: newAffine("MinMaxScaler"), FeatureRange: featureRange}
}

// NewMinMaxScalerDefault maps to [0, 1].
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0, 1})
}

// Fit records the per-column minimum and maximum of X.
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	lo, hi := m.FeatureRange[0], m.FeatureRange[1]
	if lo >= hi {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}
	var maxima []float64
	err := m.fit(X, func(col []float64) (float64, float64) {
		low, high := floats.Min(col), floats.Max(col)
		maxima = append(maxima, high)
		if high-low < constantEps {
			return low, 1
		}
		return low, high - low
	})
	if err != nil {
		return err
	}
	m.width, m.base = hi-lo, lo
	m.DataMin, m.DataMax, m.Scale = m.shift, maxima, m.div
	return nil
}

// Transform maps X into FeatureRange.
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return m.apply("Transform", X, false)
}

// FitTransform fits on X and transforms it.
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform undoes Transform.
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	return m.apply("InverseTransform", X, true)
}

func (m *MinMaxScaler) IsFitted() bool { return m.state.IsFitted() }

// GetParams returns feature_range.
func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"feature_range": m.FeatureRange}
}

func (m *MinMaxScaler) String() string {
	desc := fmt.Sprintf("feature_range=[%.1f, %.1f]", m.FeatureRange[0], m.FeatureRange[1])
	if m.IsFitted() {
		desc += fmt.Sprintf(", n_features=%d", m.nFeatures())
	}
	return "MinMaxScaler(" + desc + ")"
}

var (
	_ model.InverseTransformer = (*StandardScaler)(nil)
	_ model.InverseTransformer = (*MinMaxScaler)(nil)
)
