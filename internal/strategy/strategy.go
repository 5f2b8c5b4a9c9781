// Package strategy defines the Strategy interface for factor selection rules
// and provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"fmt"
	"sort"

	"factorlab/internal/backtest"
	"factorlab/internal/config"
)

// Strategy is the interface that all factor strategies must implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Description is a one-line human readable summary.
	Description() string

	// RankOptions returns how the strategy ranks each cross-section.
	RankOptions() backtest.RankOptions
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the registered strategy named in cfg, or an ad-hoc factor
// strategy built from cfg's factor fields when no name is given.
func (r *Registry) Resolve(cfg config.BacktestConfig) (Strategy, error) {
	if cfg.Strategy == "" {
		return FromConfig(cfg)
	}
	s, ok := r.Get(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", cfg.Strategy, r.List())
	}
	return s, nil
}

// Factor is a single-factor strategy: keep the top fractile of instruments
// ordered by one factor.
type Factor struct {
	ID           string
	Summary      string
	FactorName   string
	Ascending    bool
	Fractile     float64
	PositiveOnly bool
}

// Compile-time interface check.
var _ Strategy = (*Factor)(nil)

func (f *Factor) Name() string        { return f.ID }
func (f *Factor) Description() string { return f.Summary }

// RankOptions ranks on FactorName, keeping only positive values when
// PositiveOnly is set.
func (f *Factor) RankOptions() backtest.RankOptions {
	opts := backtest.RankOptions{
		Factor:        f.FactorName,
		Ascending:     f.Ascending,
		Fractile:      f.Fractile,
		MinListedDays: backtest.DefaultMinListedDays,
	}
	if f.PositiveOnly {
		opts.Filters = append(opts.Filters, backtest.PositiveFactor(f.FactorName))
	}
	return opts
}

// FromConfig builds an ad-hoc factor strategy from the backtest section.
func FromConfig(cfg config.BacktestConfig) (*Factor, error) {
	if cfg.Factor == "" {
		return nil, fmt.Errorf("%w: factor is required", backtest.ErrInvalidOptions)
	}
	f := &Factor{
		ID:           "custom-" + cfg.Factor,
		FactorName:   cfg.Factor,
		Ascending:    cfg.Ascending,
		Fractile:     cfg.Fractile,
		PositiveOnly: cfg.PositiveOnly,
	}
	order := "highest"
	if cfg.Ascending {
		order = "lowest"
	}
	f.Summary = fmt.Sprintf("%s %.0f%% by %s", order, cfg.Fractile*100, cfg.Factor)
	if err := f.RankOptions().Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
