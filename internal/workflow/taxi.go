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

// Payment type codes of the taxi data dictionary.
const (
	PaymentCreditCard = 1
	PaymentCash       = 2
)

// TaxiSummary collects the answers of the taxi trip walkthrough.
type TaxiSummary struct {
	Rows, Cols int

	LongestTrips     *dataframe.Frame
	HighestTotals    *dataframe.Frame
	LowestTotals     *dataframe.Frame
	PaymentCounts    *dataframe.Frame
	AvgTipCreditCard float64
	AvgTipCash       float64
	VendorCounts     *dataframe.Frame
	VendorMeanTotal  *dataframe.Frame

	CreditCardPassengers *dataframe.Frame
	CreditCardTipByParty *dataframe.Frame
	ChartPath            string
}

// Taxi explores the 2017 yellow taxi trip sample: longest trips, fare
// extremes, payment mix and tipping behaviour.
func Taxi(ctx context.Context, cfg *config.Config, logger log.Logger) (*TaxiSummary, error) {
	logger = logger.With(log.DatasetKey, "taxi")
	df, err := load(cfg, "taxi", cfg.Data.Taxi, logger)
	if err != nil {
		return nil, err
	}
	s := &TaxiSummary{}
	s.Rows, s.Cols = df.Shape()

	byDistance, err := df.SortBy("trip_distance", false)
	if err != nil {
		return nil, err
	}
	s.LongestTrips = byDistance.Head(10)

	byTotal, err := df.SortBy("total_amount", false)
	if err != nil {
		return nil, err
	}
	totals, err := byTotal.Select("total_amount")
	if err != nil {
		return nil, err
	}
	s.HighestTotals = totals.Head(20)
	s.LowestTotals = totals.Tail(20)

	if s.PaymentCounts, err = df.ValueCounts("payment_type", false); err != nil {
		return nil, err
	}
	creditCard, err := df.FilterEq("payment_type", PaymentCreditCard)
	if err != nil {
		return nil, err
	}
	cash, err := df.FilterEq("payment_type", PaymentCash)
	if err != nil {
		return nil, err
	}
	if s.AvgTipCreditCard, err = creditCard.Mean("tip_amount"); err != nil {
		return nil, err
	}
	if s.AvgTipCash, err = cash.Mean("tip_amount"); err != nil {
		return nil, err
	}

	if s.VendorCounts, err = df.ValueCounts("VendorID", false); err != nil {
		return nil, err
	}
	if s.VendorMeanTotal, err = df.GroupBy("VendorID").Agg("total_amount", dataframe.AggMean); err != nil {
		return nil, err
	}

	if s.CreditCardPassengers, err = creditCard.ValueCounts("passenger_count", false); err != nil {
		return nil, err
	}
	if s.CreditCardTipByParty, err = creditCard.GroupBy("passenger_count").Agg("tip_amount", dataframe.AggMean); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Output.Plots {
		keys, _ := s.CreditCardTipByParty.Col("passenger_count")
		tips, _ := s.CreditCardTipByParty.Col("tip_amount")
		s.ChartPath = cfg.PlotPath("taxi_tip_by_passenger_count")
		if err := plot.GroupedBar(keys.Strings(), tips.Floats(), "Mean credit card tip by passenger count", s.ChartPath); err != nil {
			return nil, errors.Wrap(err, "taxi chart")
		}
		logger.Info("chart written", log.PathKey, s.ChartPath)
	}

	logger.Info("taxi walkthrough finished",
		"avg_tip_credit_card", s.AvgTipCreditCard,
		"avg_tip_cash", s.AvgTipCash,
	)
	return s, nil
}

func (s *TaxiSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Taxi trips: %d rows x %d columns\n\n", s.Rows, s.Cols)
	section(&b, "Top 10 trips by distance", s.LongestTrips)
	section(&b, "Highest 20 total amounts", s.HighestTotals)
	section(&b, "Lowest 20 total amounts", s.LowestTotals)
	section(&b, "Payment types", s.PaymentCounts)
	fmt.Fprintf(&b, "Avg. cc tip: %v\nAvg. cash tip: %v\n\n", s.AvgTipCreditCard, s.AvgTipCash)
	section(&b, "Vendors", s.VendorCounts)
	section(&b, "Mean total amount by vendor", s.VendorMeanTotal)
	section(&b, "Credit card passenger counts", s.CreditCardPassengers)
	section(&b, "Mean credit card tip by passenger count", s.CreditCardTipByParty)
	return b.String()
}

func section(b *strings.Builder, title string, df fmt.Stringer) {
	fmt.Fprintf(b, "%s\n%s\n", title, df)
}
