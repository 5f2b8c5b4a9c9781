package backtest

import (
	"fmt"
	"strings"
	"time"

	"factorlab/internal/domain"
)

// EmptyHolding marks days where the decided basket had no members.
const EmptyHolding = "empty"

// HoldingLabel identifies a period's basket on the daily curve.
func HoldingLabel(sel *domain.PeriodSelection) string {
	if sel.Empty() {
		return EmptyHolding
	}
	return strings.Join(sel.Symbols, " ")
}

// BuildEquity lays the dense period series onto the trading calendar and
// folds it into the strategy and benchmark NAV curves.
//
// The basket decided at a period end is held from the next trading day
// until the following decision takes over. Days up to and including the
// first decision have no holding and are left out. The remaining days must
// match the concatenated per-period daily returns one for one.
func BuildEquity(cal []domain.CalendarDay, dense []domain.PeriodSelection) ([]domain.EquityPoint, error) {
	decided := make(map[time.Time]int, len(dense))
	flat := 0
	for i := range dense {
		decided[dayKey(dense[i].PeriodEnd)] = i
		flat += len(dense[i].DailyReturns)
	}

	points := make([]domain.EquityPoint, 0, flat)
	holding := -1 // index into dense of the basket currently held
	offset := 0   // position inside dense[holding].DailyReturns
	for _, day := range cal {
		if holding >= 0 {
			sel := &dense[holding]
			if offset >= len(sel.DailyReturns) {
				return nil, fmt.Errorf("%w: period %s covers %d days, calendar holds it longer (%s)",
					ErrLengthMismatch, sel.PeriodEnd.Format(time.DateOnly), len(sel.DailyReturns), day.Date.Format(time.DateOnly))
			}
			points = append(points, domain.EquityPoint{
				Date:            day.Date,
				Holding:         HoldingLabel(sel),
				DailyReturn:     sel.DailyReturns[offset],
				BenchmarkReturn: day.BenchmarkReturn,
			})
			offset++
		}
		if i, ok := decided[dayKey(day.Date)]; ok {
			if holding >= 0 && offset != len(dense[holding].DailyReturns) {
				sel := &dense[holding]
				return nil, fmt.Errorf("%w: period %s covers %d days, calendar holds it %d",
					ErrLengthMismatch, sel.PeriodEnd.Format(time.DateOnly), len(sel.DailyReturns), offset)
			}
			holding, offset = i, 0
		}
	}
	if len(points) != flat {
		return nil, fmt.Errorf("%w: %d daily returns for %d held days", ErrLengthMismatch, flat, len(points))
	}

	nav, bench := 1.0, 1.0
	for i := range points {
		nav *= 1 + points[i].DailyReturn
		bench *= 1 + points[i].BenchmarkReturn
		points[i].NAV = nav
		points[i].BenchmarkNAV = bench
	}
	return points, nil
}
