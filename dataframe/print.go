package dataframe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
)

// MaxPrintRows is the row count above which String elides the middle.
var MaxPrintRows = 20

// String renders the frame as an aligned table with a leading row index.
func (f *Frame) String() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t", strings.Join(f.Columns(), "\t"), "\t\n")

	rows := f.NRows()
	head, tail := rows, 0
	if rows > MaxPrintRows {
		head, tail = MaxPrintRows/2, MaxPrintRows/2
	}
	writeRow := func(i int) {
		cells := make([]string, len(f.cols))
		for j, c := range f.cols {
			cells[j] = cellString(c, i)
		}
		fmt.Fprint(tw, i, "\t", strings.Join(cells, "\t"), "\t\n")
	}
	for i := 0; i < head; i++ {
		writeRow(i)
	}
	if tail > 0 {
		fmt.Fprint(tw, "...", strings.Repeat("\t...", len(f.cols)), "\t\n")
		for i := rows - tail; i < rows; i++ {
			writeRow(i)
		}
	}
	tw.Flush()
	fmt.Fprintf(&b, "\n[%d rows x %d columns]\n", rows, len(f.cols))
	return b.String()
}

func cellString(c *Series, i int) string {
	if c.IsNull(i) {
		return "NaN"
	}
	if c.Kind() == Float {
		v := c.floats[i]
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatFloat(v, 'f', 0, 64)
		}
		return strconv.FormatFloat(v, 'f', 6, 64)
	}
	return c.Str(i)
}

// InfoString renders Info like pandas' DataFrame.info().
func (f *Frame) InfoString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "RangeIndex: %d entries, 0 to %d\n", f.NRows(), f.NRows()-1)
	fmt.Fprintf(&b, "Data columns (total %d columns):\n", f.NCols())
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " #\tColumn\tNon-Null Count\tDtype")
	for i, ci := range f.Info() {
		fmt.Fprintf(tw, " %d\t%s\t%d non-null\t%s\n", i, ci.Name, ci.NonNull, ci.Kind)
	}
	tw.Flush()
	return b.String()
}
