package dataframe

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCSVFileRoundTrip(t *testing.T) {
	df := trips(t)
	for _, name := range []string{"trips.csv", "trips.csv.gz", "trips.csv.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, df.WriteCSVFile(path))
			back, err := ReadCSVFile(path, ReadOptions{})
			require.NoError(t, err)
			assert.Equal(t, df.Columns(), back.Columns())
			assert.Equal(t, df.String(), back.String())
		})
	}
}

func TestReadCSVFileMissing(t *testing.T) {
	_, err := ReadCSVFile(filepath.Join(t.TempDir(), "nope.csv"), ReadOptions{})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	df, err := New(
		NewStringSeriesNA("s", []string{"a", ""}, []bool{false, true}),
		NewFloatSeries("x", []float64{1.5, 2}),
	)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, df.WriteCSV(&buf))
	assert.Equal(t, "s,x\na,1.5\n,2\n", buf.String())
}

func TestReadExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unicorns.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Company", "Valuation", "Year Founded"},
		{"Bytedance", "$180B", 2012},
		{"SpaceX", "$100B", 2002},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	df, err := ReadExcel(path, "", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Company", "Valuation", "Year Founded"}, df.Columns())
	year, _ := df.Col("Year Founded")
	assert.Equal(t, Float, year.Kind())
	assert.Equal(t, 2012.0, year.Float(0))

	df, err = df.ParseCurrency("Valuation")
	require.NoError(t, err)
	v, _ := df.Col("Valuation")
	assert.Equal(t, 180e9, v.Float(0))

	_, err = ReadExcel(path, "Missing", ReadOptions{})
	assert.Error(t, err)
}

func TestReadCSVSemicolon(t *testing.T) {
	df, err := ReadCSV(strings.NewReader("a;b\n1;2\n"), ReadOptions{Comma: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, df.Columns())
}
