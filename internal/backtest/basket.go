package backtest

import (
	"fmt"
	"time"

	"factorlab/internal/domain"
)

// Costs are one-time proportional trading frictions of a rebalance.
type Costs struct {
	Commission float64 // charged on entry and on exit
	StampTax   float64 // charged on exit only
}

// DefaultCosts is 0.86 bp commission and 0.1% stamp tax.
var DefaultCosts = Costs{Commission: 0.86 / 10000, StampTax: 1.0 / 1000}

// Validate rejects negative rates and rates that consume the whole position.
func (c Costs) Validate() error {
	if c.Commission < 0 || c.StampTax < 0 || c.Commission*2+c.StampTax >= 1 {
		return fmt.Errorf("%w: costs %+v", ErrInvalidOptions, c)
	}
	return nil
}

// ComposeBasket turns a basket into its realised next-period performance.
//
// Entry happens at the next open, so each member's first forward return is
// replaced by its open-to-close return. Every member is compounded on its
// own and the basket value on day d is the mean of the members' cumulative
// values (buy-and-hold, not daily rebalanced). The entry commission scales
// the whole path, which slightly overstates its effect after day one; exit
// commission and stamp tax scale only the last day.
func ComposeBasket(b Basket, c Costs) (domain.PeriodSelection, error) {
	if len(b.Members) == 0 {
		return domain.PeriodSelection{}, fmt.Errorf("%w: %s", ErrEmptyBasket, b.Date.Format(time.DateOnly))
	}

	days := len(b.Members[0].ForwardDailyReturns)
	if days == 0 {
		return domain.PeriodSelection{}, fmt.Errorf("%w: %s %s has no forward returns",
			ErrLengthMismatch, b.Date.Format(time.DateOnly), b.Members[0].Symbol)
	}

	path := make([]float64, days)
	symbols := make([]string, 0, len(b.Members))
	names := make([]string, 0, len(b.Members))
	for _, m := range b.Members {
		if len(m.ForwardDailyReturns) != days {
			return domain.PeriodSelection{}, fmt.Errorf("%w: %s %s has %d days, basket has %d",
				ErrLengthMismatch, b.Date.Format(time.DateOnly), m.Symbol, len(m.ForwardDailyReturns), days)
		}
		nav := 1.0
		for d, r := range m.ForwardDailyReturns {
			if d == 0 {
				r = m.ForwardOpenReturn
			}
			nav *= 1 + r
			path[d] += nav
		}
		symbols = append(symbols, m.Symbol)
		names = append(names, m.Name)
	}

	n := float64(len(b.Members))
	for d := range path {
		path[d] = path[d] / n * (1 - c.Commission)
	}
	path[days-1] *= 1 - c.Commission - c.StampTax

	daily := make([]float64, days)
	prev := 1.0
	for d, v := range path {
		daily[d] = v/prev - 1
		prev = v
	}

	return domain.PeriodSelection{
		PeriodEnd:    b.Date,
		Count:        len(b.Members),
		Symbols:      symbols,
		Names:        names,
		DailyReturns: daily,
		TotalReturn:  path[days-1] - 1,
	}, nil
}
