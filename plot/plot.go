// Package plot renders the static charts of the walkthroughs with
// gonum/plot. The output format follows the file extension of the target
// path (png, svg, pdf, eps, jpg or tif).
package plot

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// Canvas size of every chart.
var (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

func save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return errors.Wrapf(p.Save(Width, Height, path), "save chart %s", path)
}

// cmGrid adapts a confusion matrix to plotter.GridXYZ with row 0 drawn at
// the top.
type cmGrid struct{ cm *mat.Dense }

func (g cmGrid) Dims() (c, r int) {
	r, c = g.cm.Dims()
	return c, r
}

func (g cmGrid) X(c int) float64 { return float64(c) }
func (g cmGrid) Y(r int) float64 { return float64(r) }
func (g cmGrid) Z(c, r int) float64 {
	n, _ := g.cm.Dims()
	return g.cm.At(n-1-r, c)
}

// ConfusionMatrix draws cm as an annotated heat map. labels name the
// classes in row/column order.
func ConfusionMatrix(cm *mat.Dense, labels []string, title, path string) error {
	return errors.SafeExecute("plot.ConfusionMatrix", func() error {
		r, c := cm.Dims()
		if r == 0 || r != c {
			return errors.NewDimensionError("plot.ConfusionMatrix", r, c, 1)
		}
		if len(labels) != r {
			return errors.NewDimensionError("plot.ConfusionMatrix", r, len(labels), 0)
		}
		p := plot.New()
		p.Title.Text = title
		p.X.Label.Text = "Predicted label"
		p.Y.Label.Text = "True label"

		grid := cmGrid{cm: cm}
		hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
		if hm.Min == hm.Max {
			hm.Max = hm.Min + 1
		}
		p.Add(hm)

		var cells plotter.XYLabels
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				cells.XYs = append(cells.XYs, plotter.XY{X: float64(j), Y: float64(r - 1 - i)})
				cells.Labels = append(cells.Labels, fmt.Sprintf("%g", cm.At(i, j)))
			}
		}
		annotations, err := plotter.NewLabels(cells)
		if err != nil {
			return errors.WithStack(err)
		}
		p.Add(annotations)

		reversed := make([]string, r)
		for i, l := range labels {
			reversed[r-1-i] = l
		}
		p.NominalX(labels...)
		p.NominalY(reversed...)
		return save(p, path)
	})
}

// Histogram draws dodged bars of values binned on a shared range, one
// series per group. Groups are drawn in sorted name order.
func Histogram(groups map[string][]float64, bins int, title, xlabel, path string) error {
	return errors.SafeExecute("plot.Histogram", func() error {
		if bins < 1 {
			return errors.NewValidationError("bins", "must be positive", bins)
		}
		names := make([]string, 0, len(groups))
		var all []float64
		for name, vals := range groups {
			names = append(names, name)
			for _, v := range vals {
				if !math.IsNaN(v) {
					all = append(all, v)
				}
			}
		}
		if len(all) == 0 {
			return errors.NewModelError("plot.Histogram", "empty data", errors.ErrEmptyData)
		}
		sort.Strings(names)
		lo, hi := floats.Min(all), floats.Max(all)
		if hi == lo {
			hi = lo + 1
		}
		step := (hi - lo) / float64(bins)
		ticks := make([]string, bins)
		for b := range ticks {
			ticks[b] = fmt.Sprintf("%.0f", lo+step*float64(b))
		}

		p := plot.New()
		p.Title.Text = title
		p.X.Label.Text = xlabel
		p.Y.Label.Text = "Count"
		p.Legend.Top = true

		width := vg.Points(float64(20) / float64(len(names)))
		for k, name := range names {
			counts := make(plotter.Values, bins)
			for _, v := range groups[name] {
				if math.IsNaN(v) {
					continue
				}
				b := int((v - lo) / step)
				if b >= bins {
					b = bins - 1
				}
				counts[b]++
			}
			bar, err := plotter.NewBarChart(counts, width)
			if err != nil {
				return errors.WithStack(err)
			}
			bar.LineStyle.Width = 0
			bar.Color = plotutil.Color(k)
			bar.Offset = width * vg.Length(float64(k)-float64(len(names)-1)/2)
			p.Add(bar)
			p.Legend.Add(name, bar)
		}
		p.NominalX(ticks...)
		return save(p, path)
	})
}

// FeatureImportances draws a bar chart of values sorted in descending
// order.
func FeatureImportances(names []string, values []float64, title, path string) error {
	if len(names) != len(values) {
		return errors.NewDimensionError("plot.FeatureImportances", len(names), len(values), 0)
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })
	sortedNames := make([]string, len(idx))
	sortedValues := make([]float64, len(idx))
	for k, i := range idx {
		sortedNames[k] = names[i]
		sortedValues[k] = values[i]
	}
	return bars("plot.FeatureImportances", sortedNames, sortedValues, title, "Mean decrease in impurity", path)
}

// GroupedBar draws one bar per aggregated group.
func GroupedBar(labels []string, values []float64, title, path string) error {
	return bars("plot.GroupedBar", labels, values, title, "", path)
}

func bars(op string, labels []string, values []float64, title, ylabel, path string) error {
	return errors.SafeExecute(op, func() error {
		if len(labels) == 0 {
			return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
		}
		if len(labels) != len(values) {
			return errors.NewDimensionError(op, len(labels), len(values), 0)
		}
		p := plot.New()
		p.Title.Text = title
		p.Y.Label.Text = ylabel
		bar, err := plotter.NewBarChart(plotter.Values(values), vg.Points(16))
		if err != nil {
			return errors.WithStack(err)
		}
		bar.Color = plotutil.Color(0)
		bar.LineStyle.Width = 0
		p.Add(bar)
		p.NominalX(labels...)
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = -1
		p.X.Tick.Label.YAlign = -0.5
		return save(p, path)
	})
}
