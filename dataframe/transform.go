package dataframe

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// TimeLayouts are tried in order when ToDatetime is called without a layout.
var TimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/06",
	"01/02/2006 03:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 15:04",
}

func (s *Series) parseTime(layout string) (*Series, error) {
	times := make([]time.Time, s.Len())
	var chosen string
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			continue
		}
		raw := strings.TrimSpace(s.Str(i))
		if layout != "" {
			t, err := time.Parse(layout, raw)
			if err != nil {
				return nil, errors.NewParseError(s.name, i, raw, "datetime")
			}
			times[i] = t
			continue
		}
		if chosen != "" {
			if t, err := time.Parse(chosen, raw); err == nil {
				times[i] = t
				continue
			}
		}
		ok := false
		for _, l := range TimeLayouts {
			if t, err := time.Parse(l, raw); err == nil {
				times[i], chosen, ok = t, l, true
				break
			}
		}
		if !ok {
			return nil, errors.NewParseError(s.name, i, raw, "datetime")
		}
	}
	return NewTimeSeries(s.name, times), nil
}

// ToDatetime converts a string column to Time. An empty layout tries each
// of TimeLayouts.
func (f *Frame) ToDatetime(col, layout string) (*Frame, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	if c.Kind() == Time {
		return f, nil
	}
	t, err := c.parseTime(layout)
	if err != nil {
		return nil, err
	}
	return f.WithColumn(t)
}

// Year derives a numeric column holding the calendar year of a Time column.
func (f *Frame) Year(col, as string) (*Frame, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	if c.Kind() != Time {
		return nil, errors.NewValueError("Year", "column "+col+" is not a datetime")
	}
	years := make([]float64, c.Len())
	for i := range years {
		if c.IsNull(i) {
			years[i] = math.NaN()
		} else {
			years[i] = float64(c.times[i].Year())
		}
	}
	return f.WithColumn(NewFloatSeries(as, years))
}

// StrLen derives a numeric column with the character count of each value.
func (f *Frame) StrLen(col, as string) (*Frame, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, c.Len())
	for i := range out {
		if c.IsNull(i) {
			out[i] = math.NaN()
		} else {
			out[i] = float64(utf8.RuneCountInString(c.Str(i)))
		}
	}
	return f.WithColumn(NewFloatSeries(as, out))
}

// Sub derives as = a - b for two numeric columns.
func (f *Frame) Sub(a, b, as string) (*Frame, error) {
	ca, err := f.floatCol("Sub", a)
	if err != nil {
		return nil, err
	}
	cb, err := f.floatCol("Sub", b)
	if err != nil {
		return nil, err
	}
	out := make([]float64, ca.Len())
	for i := range out {
		out[i] = ca.floats[i] - cb.floats[i]
	}
	return f.WithColumn(NewFloatSeries(as, out))
}

// Replace maps the values of a string column to numbers, replacing the
// column. Values missing from mapping are an error.
func (f *Frame) Replace(col string, mapping map[string]float64) (*Frame, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, c.Len())
	for i := range out {
		if c.IsNull(i) {
			out[i] = math.NaN()
			continue
		}
		v, ok := mapping[c.Str(i)]
		if !ok {
			return nil, errors.NewParseError(col, i, c.Str(i), "mapped value")
		}
		out[i] = v
	}
	return f.WithColumn(NewFloatSeries(col, out))
}

// AsString converts a column to String, formatting numbers without a
// trailing ".0".
func (f *Frame) AsString(col string) (*Frame, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	null := make([]bool, c.Len())
	for i := range null {
		null[i] = c.IsNull(i)
	}
	return f.WithColumn(NewStringSeriesNA(col, c.Strings(), null))
}

// Rename renames a column.
func (f *Frame) Rename(from, to string) (*Frame, error) {
	c, err := f.Col(from)
	if err != nil {
		return nil, err
	}
	if from != to && f.Has(to) {
		return nil, errors.NewValueError("Rename", "column "+to+" already exists")
	}
	cols := append([]*Series(nil), f.cols...)
	cols[f.index[from]] = c.Rename(to)
	return New(cols...)
}

var currencyScale = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
	'T': 1e12,
}

// ParseCurrencyValue parses amounts such as "$4B", "$1.5M" or "$320,000".
func ParseCurrencyValue(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	scale := 1.0
	if m, ok := currencyScale[strings.ToUpper(s[len(s)-1:])[0]]; ok {
		scale = m
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * scale, true
}

// ParseCurrency converts a string column of currency amounts to numbers.
// Unparsable cells fail with a ParseError naming the row.
func (f *Frame) ParseCurrency(col string) (*Frame, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	if c.Kind() == Float {
		return f, nil
	}
	out := make([]float64, c.Len())
	for i := range out {
		if c.IsNull(i) {
			out[i] = math.NaN()
			continue
		}
		v, ok := ParseCurrencyValue(c.Str(i))
		if !ok {
			return nil, errors.NewParseError(col, i, c.Str(i), "currency")
		}
		out[i] = v
	}
	return f.WithColumn(NewFloatSeries(col, out))
}
