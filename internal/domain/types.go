// Package domain holds the value types shared by the factorlab packages:
// cross-sectional panel rows, the trading calendar, per-period selections,
// the daily equity curve and the summary statistics derived from it.
package domain

import "time"

// Market identifies the exchange group an instrument trades on.
type Market string

const (
	MarketUS Market = "us"
	MarketCN Market = "cn"
)

// InstrumentRecord is one row of the instrument panel: the state of a single
// instrument on a period-end snapshot date, joined with what happens to it
// over the following period.
type InstrumentRecord struct {
	Symbol string
	Name   string
	// Date is the period-end snapshot date the selection decision is made on.
	Date time.Time

	// Factors maps a factor name ("pb", "pe_ttm", ...) to its value on Date.
	Factors map[string]float64

	// ForwardDailyReturns holds the close-to-close return of every trading
	// day in the next period.
	ForwardDailyReturns []float64
	// ForwardOpenReturn is the return from the next day's open to its close,
	// i.e. the first-day return when buying at the open.
	ForwardOpenReturn float64

	// ListedDays counts trading days since listing as of Date.
	ListedDays int

	NextDayTradable  bool
	NextDayLimitUp   bool
	NextDaySuspended bool
	NextDayST        bool
	NextDayDelisting bool
}

// Factor returns the named factor value and whether it is present.
func (r *InstrumentRecord) Factor(name string) (float64, bool) {
	v, ok := r.Factors[name]
	return v, ok
}

// CalendarDay is one trading day of the benchmark-derived calendar.
type CalendarDay struct {
	Date            time.Time
	BenchmarkReturn float64
}

// PeriodSelection is the basket decided at PeriodEnd and its realised
// performance over the next period. A period without an eligible basket
// carries zero returns and no symbols.
type PeriodSelection struct {
	PeriodEnd time.Time
	Count     int
	Symbols   []string
	Names     []string
	// DailyReturns spans exactly the trading days of the next period.
	DailyReturns []float64
	TotalReturn  float64
}

// Empty reports whether no instrument was held for the period.
func (p *PeriodSelection) Empty() bool {
	return p.Count == 0
}

// EquityPoint is one trading day of the strategy equity curve.
type EquityPoint struct {
	Date time.Time
	// Holding identifies the basket held on Date (its symbols joined by a
	// space), or "empty" when the period had no selection.
	Holding         string
	DailyReturn     float64
	NAV             float64
	BenchmarkReturn float64
	BenchmarkNAV    float64
}

// Drawdown describes the deepest peak-to-trough decline of an equity curve.
type Drawdown struct {
	Depth float64 // always <= 0
	Start time.Time
	End   time.Time
}

// Summary is the single-row performance report of a backtest. Ratios that
// are undefined for the input (division by zero) are NaN.
type Summary struct {
	CumulativeNAV       float64
	AnnualReturn        float64
	MaxDrawdown         Drawdown
	ReturnDrawdownRatio float64

	WinPeriods    int
	LossPeriods   int
	WinRate       float64
	MeanPeriod    float64
	ProfitLoss    float64
	BestPeriod    float64
	WorstPeriod   float64
	MaxWinStreak  int
	MaxLossStreak int

	AnnualVolatility float64
	Sharpe           float64

	BenchmarkNAV          float64
	BenchmarkAnnualReturn float64
	ExcessAnnualReturn    float64

	TradingDays int
	Periods     int
	Start       time.Time
	End         time.Time
}

// PeriodReturn is the compounded return of a calendar bucket (a year or a
// month), keyed by the bucket's last calendar day.
type PeriodReturn struct {
	Date   time.Time
	Return float64
}

// IndexClose is one daily close of a benchmark index.
type IndexClose struct {
	Date  time.Time
	Close float64
}

// Run records one persisted backtest: its parameters and headline summary.
type Run struct {
	ID        string
	Strategy  string
	Factor    string
	Period    string
	Start     time.Time
	End       time.Time
	Benchmark string
	CreatedAt time.Time
	Summary   Summary
}
