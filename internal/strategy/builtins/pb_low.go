package builtins

import (
	"factorlab/internal/backtest"
	"factorlab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*PBLow)(nil)

// PBLow buys the cheapest decile by price-to-book. Non-positive PB (negative
// book value) is excluded before ranking.
type PBLow struct {
	fractile float64
}

// NewPBLow creates the low-PB strategy holding the bottom 10%.
func NewPBLow() *PBLow {
	return &PBLow{fractile: 0.1}
}

// Name returns "pb-low".
func (s *PBLow) Name() string {
	return "pb-low"
}

func (s *PBLow) Description() string {
	return "lowest 10% by price-to-book, PB > 0"
}

// RankOptions ranks ascending on "pb".
func (s *PBLow) RankOptions() backtest.RankOptions {
	return backtest.RankOptions{
		Factor:        "pb",
		Ascending:     true,
		Fractile:      s.fractile,
		MinListedDays: backtest.DefaultMinListedDays,
		Filters:       []backtest.Filter{backtest.PositiveFactor("pb")},
	}
}
