package backtest

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"factorlab/internal/domain"
)

// TradingDaysPerYear annualises daily volatility.
const TradingDaysPerYear = 252

// Evaluate computes the summary statistics of a backtest from its daily
// equity curve and its dense period series. It never fails: statistics that
// are undefined for the input are NaN.
func Evaluate(equity []domain.EquityPoint, dense []domain.PeriodSelection) domain.Summary {
	nan := math.NaN()
	s := domain.Summary{
		CumulativeNAV:         nan,
		AnnualReturn:          nan,
		MaxDrawdown:           domain.Drawdown{Depth: nan},
		ReturnDrawdownRatio:   nan,
		AnnualVolatility:      nan,
		Sharpe:                nan,
		BenchmarkNAV:          nan,
		BenchmarkAnnualReturn: nan,
		ExcessAnnualReturn:    nan,
		TradingDays:           len(equity),
		Periods:               len(dense),
	}
	evaluatePeriods(&s, dense)
	if len(equity) == 0 {
		return s
	}

	first, last := equity[0], equity[len(equity)-1]
	s.Start, s.End = first.Date, last.Date
	s.CumulativeNAV = Round2(last.NAV)
	s.BenchmarkNAV = last.BenchmarkNAV

	elapsed := last.Date.Sub(first.Date).Hours() / 24
	s.AnnualReturn = annualize(last.NAV, elapsed)
	s.BenchmarkAnnualReturn = annualize(last.BenchmarkNAV, elapsed)
	s.ExcessAnnualReturn = s.AnnualReturn - s.BenchmarkAnnualReturn

	s.MaxDrawdown = MaxDrawdown(equity)
	if s.MaxDrawdown.Depth != 0 {
		s.ReturnDrawdownRatio = Round2(s.AnnualReturn / math.Abs(s.MaxDrawdown.Depth))
	}

	if len(equity) > 1 {
		daily := make([]float64, len(equity))
		for i, p := range equity {
			daily[i] = p.DailyReturn
		}
		mean, std := stat.MeanStdDev(daily, nil)
		s.AnnualVolatility = std * math.Sqrt(TradingDaysPerYear)
		if std > 0 {
			s.Sharpe = mean / std * math.Sqrt(TradingDaysPerYear)
		}
	}
	return s
}

// annualize converts a cumulative NAV over elapsed calendar days into a
// 365-day compounded rate.
func annualize(nav, elapsedDays float64) float64 {
	if elapsedDays <= 0 {
		return math.NaN()
	}
	return math.Pow(nav, 365/elapsedDays) - 1
}

// evaluatePeriods fills the per-period statistics. Every dense period
// counts, so empty periods (zero return) are losses.
func evaluatePeriods(s *domain.Summary, dense []domain.PeriodSelection) {
	nan := math.NaN()
	s.WinRate, s.MeanPeriod, s.ProfitLoss = nan, nan, nan
	s.BestPeriod, s.WorstPeriod = nan, nan
	if len(dense) == 0 {
		return
	}

	returns := make([]float64, len(dense))
	var wins, losses []float64
	for i, p := range dense {
		returns[i] = p.TotalReturn
		if p.TotalReturn > 0 {
			wins = append(wins, p.TotalReturn)
		} else {
			losses = append(losses, p.TotalReturn)
		}
	}

	s.WinPeriods, s.LossPeriods = len(wins), len(losses)
	s.WinRate = float64(len(wins)) / float64(len(dense))
	s.MeanPeriod = stat.Mean(returns, nil)
	s.BestPeriod = floats.Max(returns)
	s.WorstPeriod = floats.Min(returns)
	if len(wins) > 0 && len(losses) > 0 {
		if lossMean := stat.Mean(losses, nil); lossMean != 0 {
			s.ProfitLoss = Round2(stat.Mean(wins, nil) / math.Abs(lossMean))
		}
	}
	s.MaxWinStreak = longestRun(returns, func(r float64) bool { return r > 0 })
	s.MaxLossStreak = longestRun(returns, func(r float64) bool { return r <= 0 })
}

// longestRun returns the length of the longest run of consecutive values
// satisfying match.
func longestRun(values []float64, match func(float64) bool) int {
	best, run := 0, 0
	for _, v := range values {
		if !match(v) {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}

// MaxDrawdown finds the deepest decline of NAV from its running maximum.
// End is the first day the deepest decline is reached; Start is the
// highest-NAV day at or before End, the earliest one on ties.
func MaxDrawdown(equity []domain.EquityPoint) domain.Drawdown {
	if len(equity) == 0 {
		return domain.Drawdown{Depth: math.NaN()}
	}

	peak := math.Inf(-1)
	depth, end := 0.0, 0
	for i, p := range equity {
		peak = math.Max(peak, p.NAV)
		if dd := p.NAV/peak - 1; dd < depth {
			depth, end = dd, i
		}
	}

	start := 0
	for i := 1; i <= end; i++ {
		if equity[i].NAV > equity[start].NAV {
			start = i
		}
	}
	return domain.Drawdown{Depth: depth, Start: equity[start].Date, End: equity[end].Date}
}

// YearlyReturns compounds daily strategy returns per calendar year.
func YearlyReturns(equity []domain.EquityPoint) []domain.PeriodReturn {
	return compoundBuckets(equity, PeriodYearly)
}

// MonthlyReturns compounds daily strategy returns per calendar month.
func MonthlyReturns(equity []domain.EquityPoint) []domain.PeriodReturn {
	return compoundBuckets(equity, PeriodMonthly)
}

// compoundBuckets compounds returns within each bucket of p, labelling each
// bucket with its last calendar day. Buckets between the first and last
// point that contain no trading day are reported with a zero return.
func compoundBuckets(equity []domain.EquityPoint, p Period) []domain.PeriodReturn {
	if len(equity) == 0 {
		return nil
	}

	growth := make(map[time.Time]float64)
	for _, pt := range equity {
		b := p.BucketEnd(pt.Date)
		g, ok := growth[b]
		if !ok {
			g = 1
		}
		growth[b] = g * (1 + pt.DailyReturn)
	}

	var out []domain.PeriodReturn
	last := p.BucketEnd(equity[len(equity)-1].Date)
	for b := p.BucketEnd(equity[0].Date); !b.After(last); b = p.BucketEnd(b.AddDate(0, 0, 1)) {
		r := 0.0
		if g, ok := growth[b]; ok {
			r = g - 1
		}
		out = append(out, domain.PeriodReturn{Date: b, Return: r})
	}
	return out
}

// Round2 rounds half away from zero to two decimals. NaN and infinities are
// returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
