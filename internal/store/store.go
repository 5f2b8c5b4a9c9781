// Package store defines storage interfaces for the backtest inputs (the
// instrument panel and benchmark index series) and its outputs (persisted
// runs with their selections and equity curves).
package store

import (
	"context"
	"errors"
	"time"

	"factorlab/internal/domain"
)

// ErrRunNotFound is returned when a run ID has no stored record.
var ErrRunNotFound = errors.New("run not found")

// PanelStore persists and retrieves cross-sectional panel snapshots.
type PanelStore interface {
	// WritePanel persists panel rows for the given period code, replacing
	// any stored row with the same (symbol, date).
	WritePanel(ctx context.Context, period string, records []domain.InstrumentRecord) error

	// ReadPanel returns the rows for the period code with dates in
	// [start, end], ordered by date and then by stored order.
	ReadPanel(ctx context.Context, period string, start, end time.Time) ([]domain.InstrumentRecord, error)
}

// BenchmarkStore persists index closes and derives the trading calendar.
type BenchmarkStore interface {
	// WriteIndex persists the daily closes of an index, replacing closes on
	// the same dates.
	WriteIndex(ctx context.Context, code string, closes []domain.IndexClose) error

	// LoadBenchmark returns the index's daily returns for trading days in
	// [start, end].
	LoadBenchmark(ctx context.Context, code string, start, end time.Time) ([]domain.CalendarDay, error)
}

// ResultWriter exports the tables of a finished run.
type ResultWriter interface {
	WriteEquity(ctx context.Context, runID string, points []domain.EquityPoint) error
	WriteSelections(ctx context.Context, runID string, selections []domain.PeriodSelection) error
}

// RunStore persists backtest runs for later inspection.
type RunStore interface {
	// SaveRun stores a run with its per-period selections and equity curve.
	SaveRun(ctx context.Context, run *domain.Run, selections []domain.PeriodSelection, equity []domain.EquityPoint) error

	// GetRun retrieves a single run by its ID.
	GetRun(ctx context.Context, id string) (*domain.Run, error)

	// ListRuns returns the most recent runs first, up to limit (0 means all).
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)

	// ListSelections returns a run's selections in period order.
	ListSelections(ctx context.Context, id string) ([]domain.PeriodSelection, error)

	// ListEquity returns a run's equity curve in date order.
	ListEquity(ctx context.Context, id string) ([]domain.EquityPoint, error)

	// DeleteRun removes a run and everything stored with it.
	DeleteRun(ctx context.Context, id string) error
}
