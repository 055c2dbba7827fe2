// Package dataframe is a small column-oriented table for exploratory
// analysis: typed columns, CSV/XLSX loading, descriptive statistics,
// grouping and the encodings needed to feed estimators.
package dataframe

import (
	"math"
	"strconv"
	"time"
)

// Kind is the element type of a Series.
type Kind int

const (
	Float Kind = iota
	String
	Time
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float64"
	case String:
		return "object"
	case Time:
		return "datetime64"
	}
	return "unknown"
}

// Series is a named, immutable column. Missing floats are NaN; missing
// strings and times are tracked by a null mask.
type Series struct {
	name   string
	kind   Kind
	floats []float64
	strs   []string
	times  []time.Time
	null   []bool
}

// NewFloatSeries creates a Float series. NaN marks a missing value.
func NewFloatSeries(name string, values []float64) *Series {
	return &Series{name: name, kind: Float, floats: append([]float64(nil), values...)}
}

// NewStringSeries creates a String series with no missing values.
func NewStringSeries(name string, values []string) *Series {
	return &Series{name: name, kind: String, strs: append([]string(nil), values...), null: make([]bool, len(values))}
}

// NewStringSeriesNA creates a String series with an explicit null mask.
func NewStringSeriesNA(name string, values []string, null []bool) *Series {
	s := NewStringSeries(name, values)
	copy(s.null, null)
	for i, isNull := range s.null {
		if isNull {
			s.strs[i] = ""
		}
	}
	return s
}

// NewTimeSeries creates a Time series; zero times are missing.
func NewTimeSeries(name string, values []time.Time) *Series {
	s := &Series{name: name, kind: Time, times: append([]time.Time(nil), values...), null: make([]bool, len(values))}
	for i, t := range values {
		s.null[i] = t.IsZero()
	}
	return s
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// Kind returns the element kind.
func (s *Series) Kind() Kind { return s.kind }

// Len returns the number of rows.
func (s *Series) Len() int {
	switch s.kind {
	case Float:
		return len(s.floats)
	case String:
		return len(s.strs)
	default:
		return len(s.times)
	}
}

// Rename returns a copy of s under a new name.
func (s *Series) Rename(name string) *Series {
	c := *s
	c.name = name
	return &c
}

// IsNull reports whether row i is missing.
func (s *Series) IsNull(i int) bool {
	if s.kind == Float {
		return math.IsNaN(s.floats[i])
	}
	return s.null[i]
}

// NullCount returns the number of missing rows.
func (s *Series) NullCount() int {
	n := 0
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			n++
		}
	}
	return n
}

// Float returns row i of a Float series, or NaN for other kinds.
func (s *Series) Float(i int) float64 {
	if s.kind != Float {
		return math.NaN()
	}
	return s.floats[i]
}

// Str returns row i formatted as a string. Missing values are "".
func (s *Series) Str(i int) string {
	if s.IsNull(i) {
		return ""
	}
	switch s.kind {
	case Float:
		return formatFloat(s.floats[i])
	case String:
		return s.strs[i]
	default:
		return s.times[i].Format("2006-01-02 15:04:05")
	}
}

// TimeAt returns row i of a Time series.
func (s *Series) TimeAt(i int) time.Time {
	if s.kind != Time {
		return time.Time{}
	}
	return s.times[i]
}

// Floats returns a copy of the values of a Float series.
func (s *Series) Floats() []float64 {
	return append([]float64(nil), s.floats...)
}

// Strings returns every row formatted with Str.
func (s *Series) Strings() []string {
	out := make([]string, s.Len())
	for i := range out {
		out[i] = s.Str(i)
	}
	return out
}

// take returns a new series holding rows idx in order.
func (s *Series) take(idx []int) *Series {
	out := &Series{name: s.name, kind: s.kind}
	switch s.kind {
	case Float:
		out.floats = make([]float64, len(idx))
		for k, i := range idx {
			out.floats[k] = s.floats[i]
		}
	case String:
		out.strs = make([]string, len(idx))
		out.null = make([]bool, len(idx))
		for k, i := range idx {
			out.strs[k] = s.strs[i]
			out.null[k] = s.null[i]
		}
	case Time:
		out.times = make([]time.Time, len(idx))
		out.null = make([]bool, len(idx))
		for k, i := range idx {
			out.times[k] = s.times[i]
			out.null[k] = s.null[i]
		}
	}
	return out
}

// less orders rows i and j; missing values sort last.
func (s *Series) less(i, j int) bool {
	ni, nj := s.IsNull(i), s.IsNull(j)
	if ni || nj {
		return !ni && nj
	}
	switch s.kind {
	case Float:
		return s.floats[i] < s.floats[j]
	case String:
		return s.strs[i] < s.strs[j]
	default:
		return s.times[i].Before(s.times[j])
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
