package strategy

import (
	"errors"
	"testing"

	"factorlab/internal/backtest"
	"factorlab/internal/config"
	"factorlab/internal/domain"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string                      { return s.name }
func (s *stubStrategy) Description() string               { return "stub" }
func (s *stubStrategy) RankOptions() backtest.RankOptions { return backtest.RankOptions{} }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := &stubStrategy{name: "test-strategy"}

	r.Register(s)

	got, ok := r.Get("test-strategy")
	if !ok {
		t.Fatal("Get returned false for registered strategy")
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Get returned strategy with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered strategy")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "beta"})
	r.Register(&stubStrategy{name: "alpha"})

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "pb-low"})

	cfg := config.Defaults().Backtest
	s, err := r.Resolve(cfg)
	if err != nil || s.Name() != "pb-low" {
		t.Errorf("Resolve(pb-low) = %v, %v", s, err)
	}

	cfg.Strategy = "missing"
	if _, err := r.Resolve(cfg); err == nil {
		t.Error("Resolve should fail for an unknown strategy")
	}

	cfg.Strategy = ""
	cfg.Factor = "roe"
	cfg.Ascending = false
	s, err = r.Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve(ad-hoc): %v", err)
	}
	if s.Name() != "custom-roe" || s.RankOptions().Factor != "roe" {
		t.Errorf("ad-hoc strategy = %s %+v", s.Name(), s.RankOptions())
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.BacktestConfig{Factor: "pb", Ascending: true, Fractile: 0.1, PositiveOnly: true}
	f, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if f.Description() != "lowest 10% by pb" {
		t.Errorf("Description = %q", f.Description())
	}

	opts := f.RankOptions()
	if opts.Factor != "pb" || !opts.Ascending || opts.Fractile != 0.1 || opts.MinListedDays != backtest.DefaultMinListedDays {
		t.Errorf("RankOptions = %+v", opts)
	}
	if len(opts.Filters) != 1 {
		t.Fatalf("got %d filters, want 1", len(opts.Filters))
	}
	neg := &domain.InstrumentRecord{Factors: map[string]float64{"pb": -0.5}}
	if opts.Filters[0].Keep(neg) {
		t.Error("positive-only filter kept a negative PB")
	}

	cfg.PositiveOnly = false
	f, _ = FromConfig(cfg)
	if len(f.RankOptions().Filters) != 0 {
		t.Error("filters should be empty without positive_only")
	}

	if _, err := FromConfig(config.BacktestConfig{Fractile: 0.1}); !errors.Is(err, backtest.ErrInvalidOptions) {
		t.Errorf("missing factor error = %v", err)
	}
	if _, err := FromConfig(config.BacktestConfig{Factor: "pb", Fractile: 2}); !errors.Is(err, backtest.ErrInvalidOptions) {
		t.Errorf("bad fractile error = %v", err)
	}
}
