// Package backtest implements a periodic cross-sectional factor backtest:
// rank the universe on each period end, hold the selected fractile
// equal-weighted through the next period net of trading costs, chain the
// periods into an equity curve and summarise it.
//
// All functions are pure transformations over in-memory, date-ordered
// slices; nothing here performs I/O.
package backtest

import (
	"fmt"
	"log/slog"
	"time"

	"factorlab/internal/domain"
)

// Input is the data a backtest runs over.
type Input struct {
	// Calendar is the benchmark's trading days in increasing date order.
	Calendar []domain.CalendarDay
	// Panel holds one row per (snapshot date, instrument).
	Panel []domain.InstrumentRecord
}

// Options configures a backtest run.
type Options struct {
	Period Period
	Rank   RankOptions
	Costs  Costs
	Logger *slog.Logger
}

// Result is everything a backtest produces.
type Result struct {
	// Dense has one row per evaluable period, including periods without a
	// selection.
	Dense   []domain.PeriodSelection
	Equity  []domain.EquityPoint
	Summary domain.Summary
	Yearly  []domain.PeriodReturn
	Monthly []domain.PeriodReturn
}

// Run executes the full pipeline.
func Run(in Input, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := opts.Costs.Validate(); err != nil {
		return nil, err
	}

	skeleton, err := BuildSkeleton(in.Calendar, opts.Period)
	if err != nil {
		return nil, fmt.Errorf("building period skeleton: %w", err)
	}

	baskets, err := Rank(in.Panel, opts.Rank)
	if err != nil {
		return nil, fmt.Errorf("ranking panel: %w", err)
	}

	selections := make([]domain.PeriodSelection, 0, len(baskets))
	for _, b := range baskets {
		if len(b.Members) == 0 {
			log.Debug("no eligible instruments", "date", b.Date.Format(time.DateOnly))
			continue
		}
		sel, err := ComposeBasket(b, opts.Costs)
		if err != nil {
			return nil, fmt.Errorf("composing basket: %w", err)
		}
		selections = append(selections, sel)
	}

	dense, unmatched, err := FillGaps(skeleton, selections)
	if err != nil {
		return nil, fmt.Errorf("filling period gaps: %w", err)
	}
	for _, d := range unmatched {
		log.Debug("selection outside evaluable periods", "date", d.Format(time.DateOnly))
	}

	equity, err := BuildEquity(in.Calendar, dense)
	if err != nil {
		return nil, fmt.Errorf("building equity curve: %w", err)
	}

	res := &Result{
		Dense:   dense,
		Equity:  equity,
		Summary: Evaluate(equity, dense),
		Yearly:  YearlyReturns(equity),
		Monthly: MonthlyReturns(equity),
	}
	log.Info("backtest complete",
		"periods", len(dense),
		"selected_periods", len(selections)-len(unmatched),
		"trading_days", len(equity),
		"nav", res.Summary.CumulativeNAV,
	)
	return res, nil
}
