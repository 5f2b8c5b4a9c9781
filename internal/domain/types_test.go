package domain

import (
	"testing"
	"time"
)

func TestTypesExist(t *testing.T) {
	// Verify InstrumentRecord can be instantiated with zero values.
	rec := InstrumentRecord{}
	if rec.Symbol != "" || rec.Name != "" {
		t.Error("expected empty Symbol/Name for zero-value InstrumentRecord")
	}
	if !rec.Date.IsZero() {
		t.Error("expected zero Date for zero-value InstrumentRecord")
	}
	if _, ok := rec.Factor("pb"); ok {
		t.Error("expected missing factor on zero-value InstrumentRecord")
	}
	if rec.NextDayTradable || rec.NextDayLimitUp || rec.NextDaySuspended || rec.NextDayST || rec.NextDayDelisting {
		t.Error("expected false eligibility flags for zero-value InstrumentRecord")
	}

	// A zero-value selection is an empty basket.
	sel := PeriodSelection{}
	if !sel.Empty() {
		t.Error("expected zero-value PeriodSelection to be empty")
	}

	// Verify enum constants are defined correctly.
	if MarketUS != "us" || MarketCN != "cn" {
		t.Error("Market constants have unexpected values")
	}

	// Verify structs can be constructed with real values.
	d := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	rec = InstrumentRecord{
		Symbol:  "sh600000",
		Name:    "浦发银行",
		Date:    d,
		Factors: map[string]float64{"pb": 0.42},
	}
	if v, ok := rec.Factor("pb"); !ok || v != 0.42 {
		t.Errorf("Factor(pb) = %v, %v, want 0.42, true", v, ok)
	}

	sel = PeriodSelection{PeriodEnd: d, Count: 1, Symbols: []string{"sh600000"}}
	if sel.Empty() {
		t.Error("expected selection with Count 1 to be non-empty")
	}
}
