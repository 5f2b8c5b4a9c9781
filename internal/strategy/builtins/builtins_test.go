package builtins

import (
	"testing"

	"factorlab/internal/domain"
)

func TestRegistryHoldsBuiltins(t *testing.T) {
	r := NewRegistry()
	names := r.List()
	if len(names) != 2 || names[0] != "pb-low" || names[1] != "pe-low" {
		t.Fatalf("List = %v, want [pb-low pe-low]", names)
	}
}

func TestBuiltinRankOptions(t *testing.T) {
	tests := []struct {
		name   string
		factor string
	}{
		{"pb-low", "pb"},
		{"pe-low", "pe_ttm"},
	}
	r := NewRegistry()
	for _, tt := range tests {
		s, ok := r.Get(tt.name)
		if !ok {
			t.Fatalf("%s not registered", tt.name)
		}
		opts := s.RankOptions()
		if err := opts.Validate(); err != nil {
			t.Errorf("%s: Validate() = %v", tt.name, err)
		}
		if opts.Factor != tt.factor || !opts.Ascending || opts.Fractile != 0.1 {
			t.Errorf("%s: options = %+v", tt.name, opts)
		}
		if s.Description() == "" {
			t.Errorf("%s: empty description", tt.name)
		}

		zero := &domain.InstrumentRecord{Factors: map[string]float64{tt.factor: 0}}
		pos := &domain.InstrumentRecord{Factors: map[string]float64{tt.factor: 0.8}}
		if len(opts.Filters) != 1 || opts.Filters[0].Keep(zero) || !opts.Filters[0].Keep(pos) {
			t.Errorf("%s: filter should keep only positive %s", tt.name, tt.factor)
		}
	}
}
