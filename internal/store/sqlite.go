package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"factorlab/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// migrations are applied in order; the schema version is the number of
// migrations applied.
var migrations = []string{
	`CREATE TABLE runs (
		id          TEXT PRIMARY KEY,
		strategy    TEXT NOT NULL,
		factor      TEXT NOT NULL,
		period      TEXT NOT NULL,
		start_date  INTEGER NOT NULL,
		end_date    INTEGER NOT NULL,
		benchmark   TEXT NOT NULL,
		created_at  INTEGER NOT NULL,

		cumulative_nav         REAL,
		annual_return          REAL,
		max_drawdown           REAL,
		drawdown_start         INTEGER,
		drawdown_end           INTEGER,
		return_drawdown_ratio  REAL,
		win_periods            INTEGER NOT NULL,
		loss_periods           INTEGER NOT NULL,
		win_rate               REAL,
		mean_period            REAL,
		profit_loss            REAL,
		best_period            REAL,
		worst_period           REAL,
		max_win_streak         INTEGER NOT NULL,
		max_loss_streak        INTEGER NOT NULL,
		annual_volatility      REAL,
		sharpe                 REAL,
		benchmark_nav          REAL,
		benchmark_annual       REAL,
		excess_annual          REAL,
		trading_days           INTEGER NOT NULL,
		periods                INTEGER NOT NULL,
		first_day              INTEGER,
		last_day               INTEGER
	)`,
	`CREATE TABLE selections (
		run_id       TEXT NOT NULL,
		period_end   INTEGER NOT NULL,
		count        INTEGER NOT NULL,
		symbols      TEXT NOT NULL,
		names        TEXT NOT NULL,
		total_return REAL,
		PRIMARY KEY (run_id, period_end)
	)`,
	`CREATE TABLE equity (
		run_id           TEXT NOT NULL,
		date             INTEGER NOT NULL,
		holding          TEXT NOT NULL,
		daily_return     REAL,
		nav              REAL,
		benchmark_return REAL,
		benchmark_nav    REAL,
		PRIMARY KEY (run_id, date)
	)`,
	`CREATE INDEX runs_created_at ON runs(created_at DESC)`,
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, brings its
// schema up to date and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts a run with its selections and equity curve in a single
// transaction. Saving an existing ID replaces it.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.Run, selections []domain.PeriodSelection, equity []domain.EquityPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := deleteRun(ctx, tx, run.ID); err != nil {
		return fmt.Errorf("replacing run %s: %w", run.ID, err)
	}

	sum := run.Summary
	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		id, strategy, factor, period, start_date, end_date, benchmark, created_at,
		cumulative_nav, annual_return, max_drawdown, drawdown_start, drawdown_end,
		return_drawdown_ratio, win_periods, loss_periods, win_rate, mean_period,
		profit_loss, best_period, worst_period, max_win_streak, max_loss_streak,
		annual_volatility, sharpe, benchmark_nav, benchmark_annual, excess_annual,
		trading_days, periods, first_day, last_day
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.Factor, run.Period,
		unixMilli(run.Start), unixMilli(run.End), run.Benchmark, unixMilli(run.CreatedAt),
		nullFloat(sum.CumulativeNAV), nullFloat(sum.AnnualReturn), nullFloat(sum.MaxDrawdown.Depth),
		nullTime(sum.MaxDrawdown.Start), nullTime(sum.MaxDrawdown.End),
		nullFloat(sum.ReturnDrawdownRatio), sum.WinPeriods, sum.LossPeriods,
		nullFloat(sum.WinRate), nullFloat(sum.MeanPeriod), nullFloat(sum.ProfitLoss),
		nullFloat(sum.BestPeriod), nullFloat(sum.WorstPeriod), sum.MaxWinStreak, sum.MaxLossStreak,
		nullFloat(sum.AnnualVolatility), nullFloat(sum.Sharpe), nullFloat(sum.BenchmarkNAV),
		nullFloat(sum.BenchmarkAnnualReturn), nullFloat(sum.ExcessAnnualReturn),
		sum.TradingDays, sum.Periods, nullTime(sum.Start), nullTime(sum.End),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	selStmt, err := tx.PrepareContext(ctx, `INSERT INTO selections
		(run_id, period_end, count, symbols, names, total_return) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer selStmt.Close()
	for _, sel := range selections {
		if _, err := selStmt.ExecContext(ctx, run.ID, unixMilli(sel.PeriodEnd), sel.Count,
			encodeList(sel.Symbols), encodeList(sel.Names), nullFloat(sel.TotalReturn)); err != nil {
			return fmt.Errorf("inserting selection %s: %w", sel.PeriodEnd.Format(time.DateOnly), err)
		}
	}

	eqStmt, err := tx.PrepareContext(ctx, `INSERT INTO equity
		(run_id, date, holding, daily_return, nav, benchmark_return, benchmark_nav) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eqStmt.Close()
	for _, p := range equity {
		if _, err := eqStmt.ExecContext(ctx, run.ID, unixMilli(p.Date), p.Holding,
			nullFloat(p.DailyReturn), nullFloat(p.NAV), nullFloat(p.BenchmarkReturn), nullFloat(p.BenchmarkNAV)); err != nil {
			return fmt.Errorf("inserting equity %s: %w", p.Date.Format(time.DateOnly), err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, strategy, factor, period, start_date, end_date, benchmark, created_at,
	cumulative_nav, annual_return, max_drawdown, drawdown_start, drawdown_end,
	return_drawdown_ratio, win_periods, loss_periods, win_rate, mean_period,
	profit_loss, best_period, worst_period, max_win_streak, max_loss_streak,
	annual_volatility, sharpe, benchmark_nav, benchmark_annual, excess_annual,
	trading_days, periods, first_day, last_day`

// GetRun retrieves a single run by its ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first, up to limit (0 means all).
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListSelections returns a run's selections in period order.
func (s *SQLiteStore) ListSelections(ctx context.Context, id string) ([]domain.PeriodSelection, error) {
	if err := s.requireRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT period_end, count, symbols, names, total_return
		FROM selections WHERE run_id = ? ORDER BY period_end`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PeriodSelection
	for rows.Next() {
		var (
			periodEnd      int64
			count          int
			symbols, names string
			totalReturn    sql.NullFloat64
		)
		if err := rows.Scan(&periodEnd, &count, &symbols, &names, &totalReturn); err != nil {
			return nil, err
		}
		out = append(out, domain.PeriodSelection{
			PeriodEnd:   fromMilli(periodEnd),
			Count:       count,
			Symbols:     decodeList(symbols),
			Names:       decodeList(names),
			TotalReturn: floatOrNaN(totalReturn),
		})
	}
	return out, rows.Err()
}

// ListEquity returns a run's equity curve in date order.
func (s *SQLiteStore) ListEquity(ctx context.Context, id string) ([]domain.EquityPoint, error) {
	if err := s.requireRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT date, holding, daily_return, nav, benchmark_return, benchmark_nav
		FROM equity WHERE run_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EquityPoint
	for rows.Next() {
		var (
			date                 int64
			holding              string
			ret, nav, bret, bnav sql.NullFloat64
		)
		if err := rows.Scan(&date, &holding, &ret, &nav, &bret, &bnav); err != nil {
			return nil, err
		}
		out = append(out, domain.EquityPoint{
			Date:            fromMilli(date),
			Holding:         holding,
			DailyReturn:     floatOrNaN(ret),
			NAV:             floatOrNaN(nav),
			BenchmarkReturn: floatOrNaN(bret),
			BenchmarkNAV:    floatOrNaN(bnav),
		})
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	n, err := deleteRun(ctx, tx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

// deleteRun removes a run's rows from every table and reports how many run
// rows were deleted.
func deleteRun(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	for _, table := range []string{"selections", "equity"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, id); err != nil {
			return 0, err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) requireRun(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return err
}

// ---------------------------------------------------------------------------
// Column helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.Run, error) {
	var (
		run                     domain.Run
		start, end, created     int64
		ddStart, ddEnd          sql.NullInt64
		first, last             sql.NullInt64
		nav, annual, dd, ratio  sql.NullFloat64
		winRate, mean, pl       sql.NullFloat64
		best, worst, vol, sharp sql.NullFloat64
		bnav, bannual, excess   sql.NullFloat64
	)
	sum := &run.Summary
	err := row.Scan(
		&run.ID, &run.Strategy, &run.Factor, &run.Period, &start, &end, &run.Benchmark, &created,
		&nav, &annual, &dd, &ddStart, &ddEnd,
		&ratio, &sum.WinPeriods, &sum.LossPeriods, &winRate, &mean,
		&pl, &best, &worst, &sum.MaxWinStreak, &sum.MaxLossStreak,
		&vol, &sharp, &bnav, &bannual, &excess,
		&sum.TradingDays, &sum.Periods, &first, &last,
	)
	if err != nil {
		return nil, err
	}

	run.Start, run.End, run.CreatedAt = fromMilli(start), fromMilli(end), fromMilli(created)
	sum.CumulativeNAV = floatOrNaN(nav)
	sum.AnnualReturn = floatOrNaN(annual)
	sum.MaxDrawdown = domain.Drawdown{Depth: floatOrNaN(dd), Start: nullableTime(ddStart), End: nullableTime(ddEnd)}
	sum.ReturnDrawdownRatio = floatOrNaN(ratio)
	sum.WinRate = floatOrNaN(winRate)
	sum.MeanPeriod = floatOrNaN(mean)
	sum.ProfitLoss = floatOrNaN(pl)
	sum.BestPeriod = floatOrNaN(best)
	sum.WorstPeriod = floatOrNaN(worst)
	sum.AnnualVolatility = floatOrNaN(vol)
	sum.Sharpe = floatOrNaN(sharp)
	sum.BenchmarkNAV = floatOrNaN(bnav)
	sum.BenchmarkAnnualReturn = floatOrNaN(bannual)
	sum.ExcessAnnualReturn = floatOrNaN(excess)
	sum.Start, sum.End = nullableTime(first), nullableTime(last)
	return &run, nil
}

// encodeList stores a string list as a JSON array.
func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func decodeList(s string) []string {
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil || len(items) == 0 {
		return nil
	}
	return items
}

// nullFloat stores NaN and infinities as NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// floatOrNaN reads NULL back as NaN.
func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func unixMilli(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func nullableTime(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return fromMilli(v.Int64)
}
