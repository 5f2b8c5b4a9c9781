package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"factorlab/internal/domain"
)

// Header identifies the run a report describes.
type Header struct {
	Strategy  string
	Period    string
	Benchmark string
	RunID     string
}

// WriteSummary writes the summary as an aligned two-column table in the
// order the statistics are computed.
func WriteSummary(w io.Writer, h Header, s domain.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"strategy", h.Strategy},
		{"period", h.Period},
		{"benchmark", h.Benchmark},
		{"run", h.RunID},
		{"range", FormatDate(s.Start) + " .. " + FormatDate(s.End)},
		{"trading days", FormatInt(s.TradingDays)},
		{"cumulative nav", FormatRatio(s.CumulativeNAV)},
		{"annual return", FormatPct(s.AnnualReturn)},
		{"max drawdown", FormatPct(s.MaxDrawdown.Depth)},
		{"drawdown start", FormatDate(s.MaxDrawdown.Start)},
		{"drawdown end", FormatDate(s.MaxDrawdown.End)},
		{"return/drawdown", FormatRatio(s.ReturnDrawdownRatio)},
		{"win periods", strconv.Itoa(s.WinPeriods)},
		{"loss periods", strconv.Itoa(s.LossPeriods)},
		{"win rate", FormatPct(s.WinRate)},
		{"mean period return", FormatPct(s.MeanPeriod)},
		{"profit/loss", FormatRatio(s.ProfitLoss)},
		{"best period", FormatPct(s.BestPeriod)},
		{"worst period", FormatPct(s.WorstPeriod)},
		{"max win streak", strconv.Itoa(s.MaxWinStreak)},
		{"max loss streak", strconv.Itoa(s.MaxLossStreak)},
		{"annual volatility", FormatPct(s.AnnualVolatility)},
		{"sharpe", FormatRatio(s.Sharpe)},
		{"benchmark nav", FormatRatio(s.BenchmarkNAV)},
		{"benchmark annual", FormatPct(s.BenchmarkAnnualReturn)},
		{"excess annual", FormatSignedPct(s.ExcessAnnualReturn)},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}

// WriteReturns writes one row per calendar bucket. layout formats the
// bucket date, e.g. "2006" for years or "2006-01" for months.
func WriteReturns(w io.Writer, title, layout string, returns []domain.PeriodReturn) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\treturn\t\n", title)
	for _, r := range returns {
		fmt.Fprintf(tw, "%s\t%s\t\n", r.Date.Format(layout), FormatSignedPct(r.Return))
	}
	return tw.Flush()
}

// WriteSelections writes one row per period: the decision date, basket
// size, realised return and held symbols (at most maxSymbols of them).
func WriteSelections(w io.Writer, selections []domain.PeriodSelection, maxSymbols int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "period end\tcount\treturn\tholding")
	for _, s := range selections {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			FormatDate(s.PeriodEnd), s.Count, FormatSignedPct(s.TotalReturn), FormatSymbols(s.Symbols, maxSymbols))
	}
	return tw.Flush()
}
