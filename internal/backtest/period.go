package backtest

import (
	"fmt"
	"strings"
	"time"

	"factorlab/internal/domain"
)

// Period is a rebalancing cadence code.
type Period string

const (
	PeriodDaily     Period = "D"
	PeriodWeekly    Period = "W" // weeks ending Sunday
	PeriodMonthly   Period = "M"
	PeriodQuarterly Period = "Q"
	PeriodYearly    Period = "A"
)

// ParsePeriod normalises a period code. "Y" is accepted as an alias for "A".
func ParsePeriod(code string) (Period, error) {
	switch p := Period(strings.ToUpper(strings.TrimSpace(code))); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return p, nil
	case "Y":
		return PeriodYearly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, code)
	}
}

// BucketEnd returns the last calendar day of the period containing t. Two
// dates fall in the same period iff their bucket ends are equal.
func (p Period) BucketEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch p {
	case PeriodDaily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodWeekly:
		toSunday := (7 - int(t.Weekday())) % 7
		return time.Date(y, m, d+toSunday, 0, 0, 0, 0, loc)
	case PeriodMonthly:
		return time.Date(y, m+1, 0, 0, 0, 0, 0, loc)
	case PeriodQuarterly:
		qEnd := ((int(m)-1)/3 + 1) * 3
		return time.Date(y, time.Month(qEnd)+1, 0, 0, 0, 0, 0, loc)
	case PeriodYearly:
		return time.Date(y, 12, 31, 0, 0, 0, 0, loc)
	}
	return time.Time{}
}

// periodSpan is a run of consecutive calendar days in the same period.
type periodSpan struct {
	last time.Time
	days int
}

// splitPeriods groups the calendar into consecutive non-empty periods.
func splitPeriods(cal []domain.CalendarDay, p Period) ([]periodSpan, error) {
	if len(cal) == 0 {
		return nil, ErrEmptyCalendar
	}
	if _, err := ParsePeriod(string(p)); err != nil {
		return nil, err
	}

	var spans []periodSpan
	var bucket time.Time
	for i, day := range cal {
		if i > 0 && !day.Date.After(cal[i-1].Date) {
			return nil, fmt.Errorf("%w: %s after %s", ErrUnsortedCalendar,
				day.Date.Format(time.DateOnly), cal[i-1].Date.Format(time.DateOnly))
		}
		b := p.BucketEnd(day.Date)
		if i == 0 || !b.Equal(bucket) {
			spans = append(spans, periodSpan{})
			bucket = b
		}
		s := &spans[len(spans)-1]
		s.last = day.Date
		s.days++
	}
	return spans, nil
}

// BuildSkeleton produces the dense period timeline every selection is later
// overlaid on: one row per period keyed by the period's last trading day,
// holding an all-zero return sequence as long as the next period. The final
// period has no next period to evaluate and is dropped.
func BuildSkeleton(cal []domain.CalendarDay, p Period) ([]domain.PeriodSelection, error) {
	spans, err := splitPeriods(cal, p)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.PeriodSelection, 0, len(spans)-1)
	for i := 0; i < len(spans)-1; i++ {
		rows = append(rows, domain.PeriodSelection{
			PeriodEnd:    spans[i].last,
			DailyReturns: make([]float64, spans[i+1].days),
		})
	}
	return rows, nil
}

// dayKey normalises t to midnight UTC of its calendar date so dates coming
// from different sources compare equal as map keys.
func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
