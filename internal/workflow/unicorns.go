package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/YuminosukeSato/tabml/dataframe"
	"github.com/YuminosukeSato/tabml/internal/config"
	"github.com/YuminosukeSato/tabml/pkg/errors"
	"github.com/YuminosukeSato/tabml/pkg/log"
	"github.com/YuminosukeSato/tabml/plot"
)

// UnicornSummary collects the answers of the unicorn company walkthrough.
type UnicornSummary struct {
	Rows, Cols, Size int

	Head     *dataframe.Frame
	Info     string
	Describe *dataframe.Frame

	Sample *dataframe.Frame
	// MaxYearsByIndustry holds the longest time to unicorn status per
	// industry within the sample, sorted ascending.
	MaxYearsByIndustry *dataframe.Frame
	// MaxValuationByIndustry holds the largest valuation in dollars per
	// industry over the full dataset.
	MaxValuationByIndustry *dataframe.Frame
	ChartPath              string
}

// Unicorns explores the unicorn companies dataset: structure, join dates
// and how long companies took to reach a billion dollar valuation.
func Unicorns(ctx context.Context, cfg *config.Config, logger log.Logger) (*UnicornSummary, error) {
	logger = logger.With(log.DatasetKey, "unicorns")
	df, err := load(cfg, "unicorns", cfg.Data.Unicorns, logger)
	if err != nil {
		return nil, err
	}
	s := &UnicornSummary{Size: df.Size(), Head: df.Head(10)}
	s.Rows, s.Cols = df.Shape()
	if s.Describe, err = df.Describe(); err != nil {
		return nil, err
	}

	if df, err = df.ToDatetime("Date Joined", ""); err != nil {
		return nil, errors.Wrap(err, "parse join dates")
	}
	if df, err = df.Year("Date Joined", "Year Joined"); err != nil {
		return nil, err
	}
	if df, err = df.ParseCurrency("Valuation"); err != nil {
		return nil, errors.Wrap(err, "parse valuations")
	}
	s.Info = df.InfoString()

	if s.MaxValuationByIndustry, err = df.GroupBy("Industry").Agg("Valuation", dataframe.AggMax); err != nil {
		return nil, err
	}

	n := cfg.Unicorns.SampleSize
	if n > df.NRows() {
		n = df.NRows()
	}
	if s.Sample, err = df.Sample(n, cfg.Unicorns.SampleSeed); err != nil {
		return nil, err
	}
	if s.Sample, err = s.Sample.Sub("Year Joined", "Year Founded", "years_till_unicorn"); err != nil {
		return nil, err
	}
	grouped, err := s.Sample.GroupBy("Industry").Agg("years_till_unicorn", dataframe.AggMax)
	if err != nil {
		return nil, err
	}
	if s.MaxYearsByIndustry, err = grouped.SortBy("years_till_unicorn", true); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Output.Plots {
		industries, _ := s.MaxYearsByIndustry.Col("Industry")
		years, _ := s.MaxYearsByIndustry.Col("years_till_unicorn")
		s.ChartPath = cfg.PlotPath("unicorn_years_till_unicorn")
		if err := plot.GroupedBar(industries.Strings(), years.Floats(),
			"Maximum years to unicorn status by industry", s.ChartPath); err != nil {
			return nil, errors.Wrap(err, "unicorn chart")
		}
		logger.Info("chart written", log.PathKey, s.ChartPath)
	}

	logger.Info("unicorn walkthrough finished",
		log.SamplesKey, s.Rows,
		"industries", s.MaxYearsByIndustry.NRows(),
	)
	return s, nil
}

func (s *UnicornSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Unicorn companies: shape (%d, %d), size %d\n\n", s.Rows, s.Cols, s.Size)
	section(&b, "First 10 companies", s.Head)
	fmt.Fprintf(&b, "%s\n", s.Info)
	section(&b, "Summary statistics", s.Describe)
	section(&b, "Max years till unicorn by industry (sample)", s.MaxYearsByIndustry)
	section(&b, "Max valuation by industry", s.MaxValuationByIndustry)
	return b.String()
}
