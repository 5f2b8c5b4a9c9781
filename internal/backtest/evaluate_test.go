package backtest

import (
	"math"
	"testing"
	"time"

	"factorlab/internal/domain"
)

// curve builds an equity curve from consecutive daily returns starting on
// start.
func curve(start string, returns ...float64) []domain.EquityPoint {
	points := make([]domain.EquityPoint, len(returns))
	d := day(start)
	nav := 1.0
	for i, r := range returns {
		nav *= 1 + r
		points[i] = domain.EquityPoint{Date: d, DailyReturn: r, NAV: nav, BenchmarkNAV: 1}
		d = d.AddDate(0, 0, 1)
	}
	return points
}

func periods(returns ...float64) []domain.PeriodSelection {
	out := make([]domain.PeriodSelection, len(returns))
	for i, r := range returns {
		out[i] = domain.PeriodSelection{TotalReturn: r}
		if r != 0 {
			out[i].Count = 1
		}
	}
	return out
}

func TestEvaluatePeriodStatistics(t *testing.T) {
	dense := periods(0.05, 0, -0.02, 0.03, 0.04, -0.01)
	s := Evaluate(curve("2024-01-01", 0.01, 0.02), dense)

	if s.WinPeriods != 3 || s.LossPeriods != 3 {
		t.Errorf("win/loss = %d/%d, want 3/3", s.WinPeriods, s.LossPeriods)
	}
	if s.WinPeriods+s.LossPeriods != len(dense) {
		t.Errorf("win+loss = %d, want %d", s.WinPeriods+s.LossPeriods, len(dense))
	}
	if !approx(s.WinRate, 0.5) {
		t.Errorf("WinRate = %v, want 0.5", s.WinRate)
	}
	if !approx(s.MeanPeriod, 0.015) {
		t.Errorf("MeanPeriod = %v, want 0.015", s.MeanPeriod)
	}
	// mean(wins)=0.04, mean(losses incl. the empty period)=-0.01
	if s.ProfitLoss != 4 {
		t.Errorf("ProfitLoss = %v, want 4", s.ProfitLoss)
	}
	if s.BestPeriod != 0.05 || s.WorstPeriod != -0.02 {
		t.Errorf("best/worst = %v/%v, want 0.05/-0.02", s.BestPeriod, s.WorstPeriod)
	}
	if s.MaxWinStreak != 2 || s.MaxLossStreak != 2 {
		t.Errorf("streaks = %d/%d, want 2/2", s.MaxWinStreak, s.MaxLossStreak)
	}
	if s.Periods != 6 || s.TradingDays != 2 {
		t.Errorf("Periods/TradingDays = %d/%d, want 6/2", s.Periods, s.TradingDays)
	}
}

func TestEvaluateUndefinedRatios(t *testing.T) {
	// No losing periods: profit/loss ratio is undefined.
	s := Evaluate(curve("2024-01-01", 0.01, 0.01), periods(0.01, 0.02))
	if !math.IsNaN(s.ProfitLoss) {
		t.Errorf("ProfitLoss = %v, want NaN", s.ProfitLoss)
	}
	if s.MaxLossStreak != 0 || s.MaxWinStreak != 2 {
		t.Errorf("streaks = %d/%d, want 2/0", s.MaxWinStreak, s.MaxLossStreak)
	}
	// Monotonic curve: no drawdown, so the ratio is undefined.
	if s.MaxDrawdown.Depth != 0 || !math.IsNaN(s.ReturnDrawdownRatio) {
		t.Errorf("drawdown = %v ratio = %v, want 0 and NaN", s.MaxDrawdown.Depth, s.ReturnDrawdownRatio)
	}

	// Only zero-return losses: mean loss is zero.
	s = Evaluate(nil, periods(0.01, 0, 0))
	if !math.IsNaN(s.ProfitLoss) {
		t.Errorf("ProfitLoss with zero losses = %v, want NaN", s.ProfitLoss)
	}

	// No periods at all.
	s = Evaluate(nil, nil)
	if !math.IsNaN(s.WinRate) || !math.IsNaN(s.MeanPeriod) || !math.IsNaN(s.CumulativeNAV) {
		t.Errorf("empty evaluation = %+v, want NaN ratios", s)
	}
	if s.WinPeriods != 0 || s.LossPeriods != 0 {
		t.Errorf("empty win/loss = %d/%d, want 0/0", s.WinPeriods, s.LossPeriods)
	}

	// A single day has no elapsed time to annualise over.
	s = Evaluate(curve("2024-01-01", 0.01), periods(0.01))
	if !math.IsNaN(s.AnnualReturn) || !math.IsNaN(s.Sharpe) {
		t.Errorf("single day annual=%v sharpe=%v, want NaN", s.AnnualReturn, s.Sharpe)
	}
}

func TestEvaluateCurveStatistics(t *testing.T) {
	eq := curve("2024-01-01", 0.1, 0.1, -0.2, 0.1)
	s := Evaluate(eq, periods(0.0648))

	last := eq[len(eq)-1].NAV
	if s.CumulativeNAV != Round2(last) {
		t.Errorf("CumulativeNAV = %v, want %v", s.CumulativeNAV, Round2(last))
	}
	wantAnnual := math.Pow(last, 365.0/3) - 1
	if !approx(s.AnnualReturn, wantAnnual) {
		t.Errorf("AnnualReturn = %v, want %v", s.AnnualReturn, wantAnnual)
	}
	if !approx(s.MaxDrawdown.Depth, -0.2) {
		t.Errorf("MaxDrawdown = %v, want -0.2", s.MaxDrawdown.Depth)
	}
	if !s.MaxDrawdown.Start.Equal(day("2024-01-02")) || !s.MaxDrawdown.End.Equal(day("2024-01-03")) {
		t.Errorf("drawdown window = %s..%s, want 2024-01-02..2024-01-03",
			s.MaxDrawdown.Start.Format(time.DateOnly), s.MaxDrawdown.End.Format(time.DateOnly))
	}
	if math.Abs(s.ReturnDrawdownRatio-wantAnnual/0.2) > 0.01 {
		t.Errorf("ReturnDrawdownRatio = %v, want %v", s.ReturnDrawdownRatio, Round2(wantAnnual/0.2))
	}
	if !(s.AnnualVolatility > 0) || math.IsNaN(s.Sharpe) {
		t.Errorf("volatility = %v sharpe = %v, want defined values", s.AnnualVolatility, s.Sharpe)
	}
	if s.BenchmarkNAV != 1 || s.BenchmarkAnnualReturn != 0 {
		t.Errorf("benchmark = %v/%v, want 1/0", s.BenchmarkNAV, s.BenchmarkAnnualReturn)
	}
	if !s.Start.Equal(day("2024-01-01")) || !s.End.Equal(day("2024-01-04")) {
		t.Errorf("range = %v..%v", s.Start, s.End)
	}
}

func TestMaxDrawdownStartIsEarliestPeak(t *testing.T) {
	eq := curve("2024-01-01", 0, 0.2, 0, -0.25, 0.1)
	dd := MaxDrawdown(eq)

	if !approx(dd.Depth, -0.25) {
		t.Errorf("Depth = %v, want -0.25", dd.Depth)
	}
	if !dd.Start.Equal(day("2024-01-02")) {
		t.Errorf("Start = %s, want 2024-01-02", dd.Start.Format(time.DateOnly))
	}
	if !dd.End.Equal(day("2024-01-04")) {
		t.Errorf("End = %s, want 2024-01-04", dd.End.Format(time.DateOnly))
	}

	// Start NAV is at least every NAV up to End.
	for _, p := range eq {
		if p.Date.After(dd.End) {
			break
		}
		if !p.Date.Before(dd.Start) && p.NAV > eq[1].NAV {
			t.Errorf("NAV %v on %s exceeds drawdown start NAV %v", p.NAV, p.Date.Format(time.DateOnly), eq[1].NAV)
		}
	}
}

func TestMaxDrawdownNeverPositive(t *testing.T) {
	for _, eq := range [][]domain.EquityPoint{
		curve("2024-01-01", 0.01, 0.02, 0.03),
		curve("2024-01-01", -0.01, -0.02, -0.03),
		curve("2024-01-01", 0.05, -0.1, 0.2, -0.3),
	} {
		if dd := MaxDrawdown(eq); dd.Depth > 0 {
			t.Errorf("MaxDrawdown = %v, want <= 0", dd.Depth)
		}
	}
	if dd := MaxDrawdown(nil); !math.IsNaN(dd.Depth) {
		t.Errorf("MaxDrawdown(nil) = %v, want NaN", dd.Depth)
	}
}

func TestYearlyAndMonthlyReturns(t *testing.T) {
	eq := []domain.EquityPoint{
		{Date: day("2023-12-28"), DailyReturn: 0.1},
		{Date: day("2023-12-29"), DailyReturn: 0.1},
		{Date: day("2024-01-02"), DailyReturn: -0.5},
		{Date: day("2024-03-01"), DailyReturn: 0.2},
	}

	yearly := YearlyReturns(eq)
	if len(yearly) != 2 {
		t.Fatalf("YearlyReturns returned %d buckets, want 2", len(yearly))
	}
	if !yearly[0].Date.Equal(day("2023-12-31")) || !approx(yearly[0].Return, 0.21) {
		t.Errorf("2023 = %+v, want 2023-12-31 0.21", yearly[0])
	}
	if !yearly[1].Date.Equal(day("2024-12-31")) || !approx(yearly[1].Return, 0.5*1.2-1) {
		t.Errorf("2024 = %+v, want 2024-12-31 -0.4", yearly[1])
	}

	monthly := MonthlyReturns(eq)
	wantDates := []string{"2023-12-31", "2024-01-31", "2024-02-29", "2024-03-31"}
	wantReturns := []float64{0.21, -0.5, 0, 0.2}
	if len(monthly) != len(wantDates) {
		t.Fatalf("MonthlyReturns returned %d buckets, want %d", len(monthly), len(wantDates))
	}
	for i := range monthly {
		if !monthly[i].Date.Equal(day(wantDates[i])) || !approx(monthly[i].Return, wantReturns[i]) {
			t.Errorf("monthly[%d] = %s %v, want %s %v", i,
				monthly[i].Date.Format(time.DateOnly), monthly[i].Return, wantDates[i], wantReturns[i])
		}
	}

	if YearlyReturns(nil) != nil {
		t.Error("YearlyReturns(nil) should be nil")
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{2.345, 2.35},
		{-1.234, -1.23},
		{1.005, 1.01},
		{3, 3},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if !math.IsNaN(Round2(math.NaN())) {
		t.Error("Round2(NaN) should be NaN")
	}
	if !math.IsInf(Round2(math.Inf(1)), 1) {
		t.Error("Round2(+Inf) should be +Inf")
	}
}
