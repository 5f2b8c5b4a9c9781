package strategy

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"factorlab/internal/backtest"
	"factorlab/internal/config"
	"factorlab/internal/domain"
	"factorlab/internal/store"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// seedStores writes a five-day benchmark and a January panel snapshot.
func seedStores(t *testing.T) (*store.ParquetStore, *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	ps := store.NewParquetStore(dir)
	closes := []domain.IndexClose{
		{Date: date("2024-01-30"), Close: 100},
		{Date: date("2024-01-31"), Close: 101},
		{Date: date("2024-02-01"), Close: 102},
		{Date: date("2024-02-02"), Close: 101},
		{Date: date("2024-03-01"), Close: 103},
		{Date: date("2024-03-04"), Close: 104},
	}
	if err := ps.WriteIndex(ctx, "sh000300", closes); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}

	row := func(symbol string, pb float64, fwd ...float64) domain.InstrumentRecord {
		return domain.InstrumentRecord{
			Symbol:              symbol,
			Name:                symbol,
			Date:                date("2024-01-31"),
			Factors:             map[string]float64{"pb": pb},
			ForwardDailyReturns: fwd,
			ForwardOpenReturn:   fwd[0],
			ListedDays:          500,
			NextDayTradable:     true,
		}
	}
	panel := []domain.InstrumentRecord{
		row("a", 1, 0.02, 0.01),
		row("b", 2, -0.01, 0.03),
		row("neg", -1, 0.5, 0.5),
	}
	if err := ps.WritePanel(ctx, "M", panel); err != nil {
		t.Fatalf("WritePanel: %v", err)
	}

	runs, err := store.NewSQLiteStore(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { runs.Close() })
	return ps, runs
}

func halfPB() *Factor {
	return &Factor{ID: "pb-half", FactorName: "pb", Ascending: true, Fractile: 0.5, PositiveOnly: true}
}

func TestBacktesterRun(t *testing.T) {
	ps, runs := seedStores(t)
	ctx := context.Background()

	bt := NewBacktester(ps, ps, runs, ps, nil)
	bt.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	res, err := bt.Run(ctx, Request{
		Strategy:      halfPB(),
		Period:        backtest.PeriodMonthly,
		Start:         date("2024-01-01"),
		End:           date("2024-03-31"),
		Benchmark:     "sh000300",
		Costs:         backtest.DefaultCosts,
		MinListedDays: backtest.DefaultMinListedDays,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Only "a" survives: "neg" is filtered and "b" ranks in the top half.
	if res.TotalTrades != 1 {
		t.Errorf("TotalTrades = %d, want 1", res.TotalTrades)
	}
	dense := res.Detail.Dense
	if len(dense) != 2 || dense[0].Symbols[0] != "a" || !dense[1].Empty() {
		t.Fatalf("dense selections = %+v", dense)
	}
	if math.Abs(res.TotalReturn-dense[0].TotalReturn) > 1e-12 {
		t.Errorf("TotalReturn = %v, want %v", res.TotalReturn, dense[0].TotalReturn)
	}
	if res.Run.Strategy != "pb-half" || res.Run.Factor != "pb" || res.Run.Period != "M" {
		t.Errorf("run = %+v", res.Run)
	}

	saved, err := runs.GetRun(ctx, res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !saved.CreatedAt.Equal(bt.now()) || saved.Summary.Periods != 2 {
		t.Errorf("saved run = %+v", saved)
	}
	eq, err := runs.ListEquity(ctx, res.RunID)
	if err != nil || len(eq) != 4 {
		t.Fatalf("ListEquity = %d points, %v; want 4", len(eq), err)
	}
	if eq[0].Holding != "a" || eq[3].Holding != backtest.EmptyHolding {
		t.Errorf("holdings = %q .. %q", eq[0].Holding, eq[3].Holding)
	}

	exported, err := ps.ReadEquity(ctx, res.RunID)
	if err != nil || len(exported) != 4 {
		t.Errorf("exported equity = %d points, %v; want 4", len(exported), err)
	}
}

func TestBacktesterRunKeepsListingFilter(t *testing.T) {
	ps, _ := seedStores(t)
	ctx := context.Background()

	// A recent listing with the lowest pb would take the basket if the
	// strategy's listing threshold were dropped.
	recent := domain.InstrumentRecord{
		Symbol:              "new",
		Date:                date("2024-01-31"),
		Factors:             map[string]float64{"pb": 0.5},
		ForwardDailyReturns: []float64{0.1, 0.1},
		ListedDays:          100,
		NextDayTradable:     true,
	}
	if err := ps.WritePanel(ctx, "M", []domain.InstrumentRecord{recent}); err != nil {
		t.Fatalf("WritePanel: %v", err)
	}

	bt := NewBacktester(ps, ps, nil, nil, nil)
	res, err := bt.Run(ctx, Request{
		Strategy:  halfPB(),
		Period:    backtest.PeriodMonthly,
		Start:     date("2024-01-01"),
		End:       date("2024-03-31"),
		Benchmark: "sh000300",
		Costs:     backtest.DefaultCosts,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := res.Detail.Dense[0].Symbols
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("basket = %v, want [a]", got)
	}
}

func TestBacktesterRunErrors(t *testing.T) {
	ps, _ := seedStores(t)
	bt := NewBacktester(ps, ps, nil, nil, nil)
	ctx := context.Background()

	req := Request{
		Strategy:  halfPB(),
		Period:    backtest.PeriodMonthly,
		Start:     date("2024-01-01"),
		End:       date("2024-03-31"),
		Benchmark: "sz399001",
		Costs:     backtest.DefaultCosts,
	}
	if _, err := bt.Run(ctx, req); err == nil {
		t.Error("Run with a missing benchmark should fail")
	}

	req.Benchmark = "sh000300"
	req.Strategy = nil
	if _, err := bt.Run(ctx, req); err == nil {
		t.Error("Run without a strategy should fail")
	}

	// Without a run store nothing is persisted but the run still succeeds.
	req.Strategy = halfPB()
	res, err := bt.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run without stores: %v", err)
	}
	if res.RunID == "" || res.Detail == nil {
		t.Errorf("result = %+v", res)
	}
}

func TestRequestFromConfig(t *testing.T) {
	r := NewRegistry()
	r.Register(halfPB())

	bc := configForTest()
	req, err := RequestFromConfig(r, bc)
	if err != nil {
		t.Fatalf("RequestFromConfig: %v", err)
	}
	if req.Strategy.Name() != "pb-half" || req.Period != backtest.PeriodWeekly {
		t.Errorf("request = %+v", req)
	}
	if !req.Start.Equal(date("2020-01-01")) || !req.End.Equal(date("2020-12-31")) {
		t.Errorf("range = %v..%v", req.Start, req.End)
	}
	if req.Costs.Commission != bc.CommissionRate || req.MinListedDays != bc.MinListedDays {
		t.Errorf("costs/min days = %+v %d", req.Costs, req.MinListedDays)
	}

	bc.Period = "X"
	if _, err := RequestFromConfig(r, bc); err == nil {
		t.Error("unknown period should fail")
	}
	bc = configForTest()
	bc.EndDate = "2019-01-01"
	if _, err := RequestFromConfig(r, bc); err == nil {
		t.Error("end before start should fail")
	}
}

func configForTest() config.BacktestConfig {
	bc := config.Defaults().Backtest
	bc.Strategy = "pb-half"
	bc.Period = "W"
	bc.StartDate = "2020-01-01"
	bc.EndDate = "2020-12-31"
	return bc
}
