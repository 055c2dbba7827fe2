package dataframe

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// DefaultNA are the cell values read as missing, as pandas does.
var DefaultNA = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

// ReadOptions controls parsing of delimited and spreadsheet input.
type ReadOptions struct {
	// Comma is the field delimiter; defaults to ','.
	Comma rune
	// NA adds tokens to DefaultNA.
	NA []string
	// Parse forces the kind of specific columns. Time columns are parsed
	// with ParseTime.
	Parse map[string]Kind
}

// ReadCSV reads a delimited table with a header row. Column kinds are
// inferred: Float when every non-missing cell parses as a number, String
// otherwise.
func ReadCSV(r io.Reader, opts ReadOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	return fromRecords(records, opts)
}

// ReadCSVFile opens path and reads it with ReadCSV. Files ending in .gz or
// .zst are decompressed on the fly.
func ReadCSVFile(path string, opts ReadOptions) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "gzip %s", path)
		}
		defer gz.Close()
		r = gz
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "zstd %s", path)
		}
		defer zr.Close()
		r = zr
	}
	df, err := ReadCSV(r, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return df, nil
}

// ReadExcel reads a worksheet whose first row is the header. An empty
// sheet name selects the first sheet.
func ReadExcel(path, sheet string, opts ReadOptions) (*Frame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.Wrapf(errors.ErrEmptyData, "%s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheet)
	}
	return fromRecords(rows, opts)
}

func fromRecords(records [][]string, opts ReadOptions) (*Frame, error) {
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "no header row")
	}
	header := records[0]
	names := make([]string, len(header))
	for j, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(j)
		}
		names[j] = h
	}
	na := make(map[string]bool, len(DefaultNA)+len(opts.NA))
	for _, tok := range DefaultNA {
		na[tok] = true
	}
	for _, tok := range opts.NA {
		na[tok] = true
	}

	body := records[1:]
	cols := make([]*Series, len(names))
	for j, name := range names {
		cells := make([]string, len(body))
		null := make([]bool, len(body))
		for i, rec := range body {
			if j < len(rec) {
				cells[i] = rec[j]
			}
			null[i] = na[cells[i]]
		}
		kind, forced := opts.Parse[name]
		if !forced {
			kind = inferKind(cells, null)
		}
		s, err := buildSeries(name, kind, cells, null)
		if err != nil {
			return nil, err
		}
		cols[j] = s
	}
	return New(cols...)
}

func inferKind(cells []string, null []bool) Kind {
	for i, c := range cells {
		if null[i] {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err != nil {
			return String
		}
	}
	return Float
}

func buildSeries(name string, kind Kind, cells []string, null []bool) (*Series, error) {
	switch kind {
	case Float:
		vals := make([]float64, len(cells))
		for i, c := range cells {
			if null[i] {
				vals[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
			if err != nil {
				return nil, errors.NewParseError(name, i, c, "float64")
			}
			vals[i] = v
		}
		return &Series{name: name, kind: Float, floats: vals}, nil
	case Time:
		s := NewStringSeriesNA(name, cells, null)
		return s.parseTime("")
	default:
		return NewStringSeriesNA(name, cells, null), nil
	}
}

// WriteCSV writes the frame with a header row. Missing values are written
// as empty cells.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	rec := make([]string, f.NCols())
	for i := 0; i < f.NRows(); i++ {
		for j, c := range f.cols {
			rec[j] = c.Str(i)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// WriteCSVFile writes the frame to path, compressing for .gz and .zst.
func (f *Frame) WriteCSVFile(path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz := gzip.NewWriter(file)
		if err := f.WriteCSV(gz); err != nil {
			return err
		}
		return errors.Wrap(gz.Close(), "gzip close")
	case ".zst":
		zw, err := zstd.NewWriter(file)
		if err != nil {
			return errors.Wrap(err, "zstd writer")
		}
		if err := f.WriteCSV(zw); err != nil {
			return err
		}
		return errors.Wrap(zw.Close(), "zstd close")
	default:
		return f.WriteCSV(file)
	}
}
