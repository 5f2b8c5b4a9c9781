// Package resultapi serves stored backtest runs as a JSON API.
package resultapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"factorlab/internal/backtest"
	"factorlab/internal/domain"
	"factorlab/internal/store"
)

// Server serves the run history API.
type Server struct {
	runs store.RunStore
	log  *slog.Logger
}

// NewServer creates a new results server.
func NewServer(runs store.RunStore, log *slog.Logger) *Server {
	return &Server{
		runs: runs,
		log:  log,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/runs/{id}/equity", s.handleEquity)
	mux.HandleFunc("GET /api/runs/{id}/selections", s.handleSelections)
	mux.HandleFunc("DELETE /api/runs/{id}", s.handleDelete)
	return corsMiddleware(mux)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.fail(w, "listing runs", err)
		return
	}

	resp := RunsResponse{Runs: make([]RunSummary, len(runs))}
	for i := range runs {
		resp.Runs[i] = toRunSummary(&runs[i])
	}
	writeJSON(w, resp)
}

// handleRun loads the run and its equity curve concurrently and derives the
// yearly and monthly returns from the curve.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var (
		run    *domain.Run
		equity []domain.EquityPoint
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		run, err = s.runs.GetRun(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		equity, err = s.runs.ListEquity(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, "loading run", err)
		return
	}

	writeJSON(w, RunDetailResponse{
		RunSummary: toRunSummary(run),
		Stats:      toStats(run.Summary),
		Yearly:     toBuckets(backtest.YearlyReturns(equity)),
		Monthly:    toBuckets(backtest.MonthlyReturns(equity)),
	})
}

func (s *Server) handleEquity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	points, err := s.runs.ListEquity(r.Context(), id)
	if err != nil {
		s.fail(w, "loading equity", err)
		return
	}

	resp := EquityResponse{
		RunID:    id,
		Dates:    make([]string, len(points)),
		Holdings: make([]string, len(points)),
		Series: map[string][]Num{
			"nav":       make([]Num, len(points)),
			"benchmark": make([]Num, len(points)),
		},
	}
	for i, p := range points {
		resp.Dates[i] = p.Date.Format(time.DateOnly)
		resp.Holdings[i] = p.Holding
		resp.Series["nav"][i] = Num(p.NAV)
		resp.Series["benchmark"][i] = Num(p.BenchmarkNAV)
	}
	writeJSON(w, resp)
}

func (s *Server) handleSelections(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sels, err := s.runs.ListSelections(r.Context(), id)
	if err != nil {
		s.fail(w, "loading selections", err)
		return
	}

	resp := SelectionsResponse{RunID: id, Selections: make([]Selection, len(sels))}
	for i, sel := range sels {
		resp.Selections[i] = Selection{
			PeriodEnd:   sel.PeriodEnd.Format(time.DateOnly),
			Count:       sel.Count,
			Symbols:     nonNil(sel.Symbols),
			Names:       nonNil(sel.Names),
			TotalReturn: Num(sel.TotalReturn),
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.runs.DeleteRun(r.Context(), id); err != nil {
		s.fail(w, "deleting run", err)
		return
	}
	s.log.Info("run deleted", "run", id)
	w.WriteHeader(http.StatusNoContent)
}

// fail maps a store error to an HTTP status.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.log.Error(msg, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func toRunSummary(run *domain.Run) RunSummary {
	return RunSummary{
		ID:            run.ID,
		Strategy:      run.Strategy,
		Factor:        run.Factor,
		Period:        run.Period,
		Benchmark:     run.Benchmark,
		Start:         formatDate(run.Start),
		End:           formatDate(run.End),
		CreatedAt:     run.CreatedAt.Format(time.RFC3339),
		CumulativeNAV: Num(run.Summary.CumulativeNAV),
		AnnualReturn:  Num(run.Summary.AnnualReturn),
		MaxDrawdown:   Num(run.Summary.MaxDrawdown.Depth),
		Sharpe:        Num(run.Summary.Sharpe),
	}
}

func toStats(s domain.Summary) Stats {
	return Stats{
		CumulativeNAV:         Num(s.CumulativeNAV),
		AnnualReturn:          Num(s.AnnualReturn),
		MaxDrawdown:           Num(s.MaxDrawdown.Depth),
		DrawdownStart:         formatDate(s.MaxDrawdown.Start),
		DrawdownEnd:           formatDate(s.MaxDrawdown.End),
		ReturnDrawdownRatio:   Num(s.ReturnDrawdownRatio),
		WinPeriods:            s.WinPeriods,
		LossPeriods:           s.LossPeriods,
		WinRate:               Num(s.WinRate),
		MeanPeriod:            Num(s.MeanPeriod),
		ProfitLoss:            Num(s.ProfitLoss),
		BestPeriod:            Num(s.BestPeriod),
		WorstPeriod:           Num(s.WorstPeriod),
		MaxWinStreak:          s.MaxWinStreak,
		MaxLossStreak:         s.MaxLossStreak,
		AnnualVolatility:      Num(s.AnnualVolatility),
		Sharpe:                Num(s.Sharpe),
		BenchmarkNAV:          Num(s.BenchmarkNAV),
		BenchmarkAnnualReturn: Num(s.BenchmarkAnnualReturn),
		ExcessAnnualReturn:    Num(s.ExcessAnnualReturn),
		TradingDays:           s.TradingDays,
		Periods:               s.Periods,
	}
}

func toBuckets(returns []domain.PeriodReturn) []BucketReturn {
	out := make([]BucketReturn, len(returns))
	for i, r := range returns {
		out[i] = BucketReturn{Date: r.Date.Format(time.DateOnly), Return: Num(r.Return)}
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing JSON response", "error", err)
	}
}
