package backtest

import (
	"fmt"
	"time"

	"factorlab/internal/domain"
)

// FillGaps overlays the composed selections onto the skeleton so that every
// period appears exactly once. Periods without a selection keep the
// skeleton's zero returns and empty basket. Selections dated outside the
// skeleton (typically the final, unevaluable period) are skipped and their
// dates returned as unmatched.
func FillGaps(skeleton, selections []domain.PeriodSelection) (dense []domain.PeriodSelection, unmatched []time.Time, err error) {
	slot := make(map[time.Time]int, len(skeleton))
	dense = make([]domain.PeriodSelection, len(skeleton))
	for i, row := range skeleton {
		key := dayKey(row.PeriodEnd)
		if _, dup := slot[key]; dup {
			return nil, nil, fmt.Errorf("%w: skeleton %s", ErrDuplicatePeriod, row.PeriodEnd.Format(time.DateOnly))
		}
		slot[key] = i
		dense[i] = domain.PeriodSelection{
			PeriodEnd:    row.PeriodEnd,
			DailyReturns: append([]float64(nil), row.DailyReturns...),
		}
	}

	seen := make(map[time.Time]bool, len(selections))
	for _, sel := range selections {
		key := dayKey(sel.PeriodEnd)
		if seen[key] {
			return nil, nil, fmt.Errorf("%w: selection %s", ErrDuplicatePeriod, sel.PeriodEnd.Format(time.DateOnly))
		}
		seen[key] = true

		i, ok := slot[key]
		if !ok {
			unmatched = append(unmatched, sel.PeriodEnd)
			continue
		}
		if want := len(dense[i].DailyReturns); len(sel.DailyReturns) != want {
			return nil, nil, fmt.Errorf("%w: selection %s has %d days, calendar has %d",
				ErrLengthMismatch, sel.PeriodEnd.Format(time.DateOnly), len(sel.DailyReturns), want)
		}
		sel.PeriodEnd = dense[i].PeriodEnd
		dense[i] = sel
	}
	return dense, unmatched, nil
}
