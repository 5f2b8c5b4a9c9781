package builtins

import (
	"factorlab/internal/backtest"
	"factorlab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*PELow)(nil)

// PELow buys the cheapest decile by trailing price-to-earnings. Loss-making
// instruments (PE-TTM <= 0) are excluded.
type PELow struct {
	fractile float64
}

// NewPELow creates the low-PE strategy holding the bottom 10%.
func NewPELow() *PELow {
	return &PELow{fractile: 0.1}
}

// Name returns "pe-low".
func (s *PELow) Name() string {
	return "pe-low"
}

func (s *PELow) Description() string {
	return "lowest 10% by trailing PE, PE-TTM > 0"
}

func (s *PELow) RankOptions() backtest.RankOptions {
	return backtest.RankOptions{
		Factor:        "pe_ttm",
		Ascending:     true,
		Fractile:      s.fractile,
		MinListedDays: backtest.DefaultMinListedDays,
		Filters:       []backtest.Filter{backtest.PositiveFactor("pe_ttm")},
	}
}
