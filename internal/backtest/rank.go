package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"factorlab/internal/domain"
)

// DefaultMinListedDays excludes instruments listed for 250 trading days or
// fewer.
const DefaultMinListedDays = 250

// Filter is an extra row predicate applied after the eligibility checks.
type Filter struct {
	Name string
	Keep func(r *domain.InstrumentRecord) bool
}

// PositiveFactor keeps rows whose named factor is strictly positive.
func PositiveFactor(factor string) Filter {
	return Filter{
		Name: factor + ">0",
		Keep: func(r *domain.InstrumentRecord) bool {
			v, ok := r.Factor(factor)
			return ok && v > 0
		},
	}
}

// RankOptions configures the cross-sectional selection.
type RankOptions struct {
	Factor        string
	Ascending     bool
	Fractile      float64 // keep rows with percentile rank in (0, Fractile]
	MinListedDays int
	Filters       []Filter
}

// Validate checks the options for values that cannot select anything
// meaningful.
func (o RankOptions) Validate() error {
	if o.Factor == "" {
		return fmt.Errorf("%w: factor name required", ErrInvalidOptions)
	}
	if !(o.Fractile > 0 && o.Fractile <= 1) {
		return fmt.Errorf("%w: fractile %v outside (0, 1]", ErrInvalidOptions, o.Fractile)
	}
	if o.MinListedDays < 0 {
		return fmt.Errorf("%w: negative min listed days", ErrInvalidOptions)
	}
	return nil
}

// Basket is the ranked selection made on one period-end date. Members are
// in rank order; a date where nothing survived filtering has no members.
type Basket struct {
	Date    time.Time
	Members []domain.InstrumentRecord
}

// Eligible reports whether the instrument can be bought at the next open:
// listed long enough, trading tomorrow, not opening limit-up, not suspended,
// not ST and not being delisted.
func Eligible(r *domain.InstrumentRecord, minListedDays int) bool {
	return r.ListedDays > minListedDays &&
		r.NextDayTradable &&
		!r.NextDayLimitUp &&
		!r.NextDaySuspended &&
		!r.NextDayST &&
		!r.NextDayDelisting
}

// Rank filters the panel and selects, per snapshot date, the instruments
// whose factor percentile rank falls within the fractile. Baskets are
// returned in date order, one per date present in the panel.
//
// Ties are broken by first-seen order: the instrument appearing earlier in
// records ranks first. Percentile rank is ordinal/n over the rows that
// survived filtering, so the result does not depend on sort internals.
func Rank(records []domain.InstrumentRecord, opts RankOptions) ([]Basket, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	groups := make(map[time.Time][]int)
	var dates []time.Time
	for i := range records {
		d := dayKey(records[i].Date)
		if _, ok := groups[d]; !ok {
			dates = append(dates, d)
			groups[d] = nil
		}
		if !keep(&records[i], opts) {
			continue
		}
		groups[d] = append(groups[d], i)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	baskets := make([]Basket, 0, len(dates))
	for _, d := range dates {
		baskets = append(baskets, Basket{
			Date:    d,
			Members: selectFractile(records, groups[d], opts),
		})
	}
	return baskets, nil
}

// keep drops rows that cannot be held: the final snapshot has no following
// period and therefore no forward returns.
func keep(r *domain.InstrumentRecord, opts RankOptions) bool {
	if len(r.ForwardDailyReturns) == 0 {
		return false
	}
	if !Eligible(r, opts.MinListedDays) {
		return false
	}
	if v, ok := r.Factor(opts.Factor); !ok || math.IsNaN(v) {
		return false
	}
	for _, f := range opts.Filters {
		if !f.Keep(r) {
			return false
		}
	}
	return true
}

// selectFractile orders idx (first-seen order) by factor and returns the
// rows whose rank/n is within the fractile.
func selectFractile(records []domain.InstrumentRecord, idx []int, opts RankOptions) []domain.InstrumentRecord {
	n := len(idx)
	if n == 0 {
		return nil
	}

	ordered := make([]int, n)
	copy(ordered, idx)
	factor := func(i int) float64 { return records[ordered[i]].Factors[opts.Factor] }
	sort.SliceStable(ordered, func(i, j int) bool {
		if opts.Ascending {
			return factor(i) < factor(j)
		}
		return factor(i) > factor(j)
	})

	var picked []domain.InstrumentRecord
	for pos, i := range ordered {
		if float64(pos+1)/float64(n) > opts.Fractile {
			break
		}
		picked = append(picked, records[i])
	}
	return picked
}
