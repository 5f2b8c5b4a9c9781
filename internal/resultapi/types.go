package resultapi

import (
	"math"
	"strconv"
)

// Num is a float64 that encodes NaN and infinities as JSON null.
type Num float64

// MarshalJSON implements json.Marshaler.
func (n Num) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// RunSummary is the headline of one run in the run list.
type RunSummary struct {
	ID            string `json:"id"`
	Strategy      string `json:"strategy"`
	Factor        string `json:"factor"`
	Period        string `json:"period"`
	Benchmark     string `json:"benchmark"`
	Start         string `json:"start"`
	End           string `json:"end"`
	CreatedAt     string `json:"createdAt"`
	CumulativeNAV Num    `json:"cumulativeNav"`
	AnnualReturn  Num    `json:"annualReturn"`
	MaxDrawdown   Num    `json:"maxDrawdown"`
	Sharpe        Num    `json:"sharpe"`
}

// RunsResponse lists stored runs, newest first.
type RunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

// Stats is the full performance summary of a run.
type Stats struct {
	CumulativeNAV         Num    `json:"cumulativeNav"`
	AnnualReturn          Num    `json:"annualReturn"`
	MaxDrawdown           Num    `json:"maxDrawdown"`
	DrawdownStart         string `json:"drawdownStart"`
	DrawdownEnd           string `json:"drawdownEnd"`
	ReturnDrawdownRatio   Num    `json:"returnDrawdownRatio"`
	WinPeriods            int    `json:"winPeriods"`
	LossPeriods           int    `json:"lossPeriods"`
	WinRate               Num    `json:"winRate"`
	MeanPeriod            Num    `json:"meanPeriod"`
	ProfitLoss            Num    `json:"profitLoss"`
	BestPeriod            Num    `json:"bestPeriod"`
	WorstPeriod           Num    `json:"worstPeriod"`
	MaxWinStreak          int    `json:"maxWinStreak"`
	MaxLossStreak         int    `json:"maxLossStreak"`
	AnnualVolatility      Num    `json:"annualVolatility"`
	Sharpe                Num    `json:"sharpe"`
	BenchmarkNAV          Num    `json:"benchmarkNav"`
	BenchmarkAnnualReturn Num    `json:"benchmarkAnnualReturn"`
	ExcessAnnualReturn    Num    `json:"excessAnnualReturn"`
	TradingDays           int    `json:"tradingDays"`
	Periods               int    `json:"periods"`
}

// BucketReturn is the compounded return of a year or month.
type BucketReturn struct {
	Date   string `json:"date"`
	Return Num    `json:"return"`
}

// RunDetailResponse is a run with its full statistics and calendar returns.
type RunDetailResponse struct {
	RunSummary
	Stats   Stats          `json:"stats"`
	Yearly  []BucketReturn `json:"yearly"`
	Monthly []BucketReturn `json:"monthly"`
}

// EquityResponse carries the equity curve as chart series aligned on Dates.
type EquityResponse struct {
	RunID    string           `json:"runId"`
	Dates    []string         `json:"dates"`
	Holdings []string         `json:"holdings"`
	Series   map[string][]Num `json:"series"` // "nav", "benchmark"
}

// Selection is one period's basket.
type Selection struct {
	PeriodEnd   string   `json:"periodEnd"`
	Count       int      `json:"count"`
	Symbols     []string `json:"symbols"`
	Names       []string `json:"names"`
	TotalReturn Num      `json:"totalReturn"`
}

// SelectionsResponse lists a run's baskets in period order.
type SelectionsResponse struct {
	RunID      string      `json:"runId"`
	Selections []Selection `json:"selections"`
}
