package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"factorlab/internal/backtest"
	"factorlab/internal/config"
	"factorlab/internal/domain"
	"factorlab/internal/store"
	"factorlab/internal/util"
)

// BacktestResult holds the summary metrics produced by a backtest run.
type BacktestResult struct {
	RunID        string
	TotalReturn  float64
	SharpeRatio  float64
	MaxDrawdown  float64
	TotalTrades  int // periods with a non-empty basket
	WinRate      float64
	ProfitFactor float64

	Run    *domain.Run
	Detail *backtest.Result
}

// Request describes a single backtest.
type Request struct {
	Strategy      Strategy
	Period        backtest.Period
	Start         time.Time
	End           time.Time
	Benchmark     string
	Costs         backtest.Costs
	MinListedDays int // zero keeps the strategy's own threshold
}

// RequestFromConfig resolves the strategy and parses the backtest section.
func RequestFromConfig(r *Registry, cfg config.BacktestConfig) (Request, error) {
	s, err := r.Resolve(cfg)
	if err != nil {
		return Request{}, err
	}
	period, err := backtest.ParsePeriod(cfg.Period)
	if err != nil {
		return Request{}, err
	}
	start, end, err := util.ParseRange(cfg.StartDate, cfg.EndDate)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Strategy:      s,
		Period:        period,
		Start:         start,
		End:           end,
		Benchmark:     cfg.Benchmark,
		Costs:         backtest.Costs{Commission: cfg.CommissionRate, StampTax: cfg.StampTaxRate},
		MinListedDays: cfg.MinListedDays,
	}, nil
}

// Backtester loads the panel and benchmark for a strategy, runs the factor
// backtest and persists the outcome.
type Backtester struct {
	panels  store.PanelStore
	bench   store.BenchmarkStore
	runs    store.RunStore     // optional
	results store.ResultWriter // optional
	log     *slog.Logger
	now     func() time.Time
}

// NewBacktester creates a Backtester reading inputs from the given stores.
// Runs are persisted to runs and exported to results when they are non-nil.
func NewBacktester(panels store.PanelStore, bench store.BenchmarkStore, runs store.RunStore, results store.ResultWriter, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Backtester{
		panels:  panels,
		bench:   bench,
		runs:    runs,
		results: results,
		log:     log,
		now:     time.Now,
	}
}

// Run executes a backtest for the requested strategy over [Start, End].
func (bt *Backtester) Run(ctx context.Context, req Request) (*BacktestResult, error) {
	if req.Strategy == nil {
		return nil, fmt.Errorf("%w: no strategy", backtest.ErrInvalidOptions)
	}
	log := bt.log.With("strategy", req.Strategy.Name(), "period", string(req.Period))

	var (
		calendar []domain.CalendarDay
		panel    []domain.InstrumentRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		calendar, err = bt.bench.LoadBenchmark(gctx, req.Benchmark, req.Start, req.End)
		if err != nil {
			return fmt.Errorf("loading benchmark %s: %w", req.Benchmark, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		panel, err = bt.panels.ReadPanel(gctx, string(req.Period), req.Start, req.End)
		if err != nil {
			return fmt.Errorf("loading %s panel: %w", req.Period, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info("inputs loaded", "trading_days", len(calendar), "panel_rows", len(panel))

	rank := req.Strategy.RankOptions()
	if req.MinListedDays > 0 {
		rank.MinListedDays = req.MinListedDays
	}

	res, err := backtest.Run(backtest.Input{Calendar: calendar, Panel: panel}, backtest.Options{
		Period: req.Period,
		Rank:   rank,
		Costs:  req.Costs,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	run := &domain.Run{
		ID:        uuid.NewString(),
		Strategy:  req.Strategy.Name(),
		Factor:    rank.Factor,
		Period:    string(req.Period),
		Start:     req.Start,
		End:       req.End,
		Benchmark: req.Benchmark,
		CreatedAt: bt.now().UTC(),
		Summary:   res.Summary,
	}

	if bt.runs != nil {
		if err := bt.runs.SaveRun(ctx, run, res.Dense, res.Equity); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
	}
	if bt.results != nil {
		if err := bt.results.WriteEquity(ctx, run.ID, res.Equity); err != nil {
			return nil, err
		}
		if err := bt.results.WriteSelections(ctx, run.ID, res.Dense); err != nil {
			return nil, err
		}
	}
	log.Info("run saved", "run", run.ID)

	total := 0.0
	if n := len(res.Equity); n > 0 {
		total = res.Equity[n-1].NAV - 1
	}
	trades := 0
	for _, p := range res.Dense {
		if !p.Empty() {
			trades++
		}
	}
	return &BacktestResult{
		RunID:        run.ID,
		TotalReturn:  total,
		SharpeRatio:  res.Summary.Sharpe,
		MaxDrawdown:  res.Summary.MaxDrawdown.Depth,
		TotalTrades:  trades,
		WinRate:      res.Summary.WinRate,
		ProfitFactor: res.Summary.ProfitLoss,
		Run:          run,
		Detail:       res,
	}, nil
}
