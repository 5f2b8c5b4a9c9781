package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"factorlab/internal/domain"
	"factorlab/internal/util"
)

// Compile-time interface checks.
var _ PanelStore = (*ParquetStore)(nil)
var _ BenchmarkStore = (*ParquetStore)(nil)
var _ ResultWriter = (*ParquetStore)(nil)

// ParquetStore implements PanelStore, BenchmarkStore and ResultWriter using
// Parquet files on disk.
type ParquetStore struct {
	DataDir string
	Market  domain.Market
}

// NewParquetStore creates a new ParquetStore rooted at the given data
// directory for the CN market.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir, Market: domain.MarketCN}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// FactorValue is one named factor of a panel row.
type FactorValue struct {
	Name  string  `parquet:"name"`
	Value float64 `parquet:"value"`
}

// PanelRecord is the Parquet schema for a panel snapshot row.
type PanelRecord struct {
	Symbol              string        `parquet:"symbol"`
	Name                string        `parquet:"name"`
	Date                int64         `parquet:"date,timestamp(millisecond)"` // Unix ms
	Factors             []FactorValue `parquet:"factors,list"`
	ForwardDailyReturns []float64     `parquet:"forward_daily_returns,list"`
	ForwardOpenReturn   float64       `parquet:"forward_open_return"`
	ListedDays          int64         `parquet:"listed_days"`
	NextDayTradable     bool          `parquet:"next_day_tradable"`
	NextDayLimitUp      bool          `parquet:"next_day_limit_up"`
	NextDaySuspended    bool          `parquet:"next_day_suspended"`
	NextDayST           bool          `parquet:"next_day_st"`
	NextDayDelisting    bool          `parquet:"next_day_delisting"`
}

// IndexRecord is the Parquet schema for daily index closes.
type IndexRecord struct {
	Code  string  `parquet:"code"`
	Date  int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	Close float64 `parquet:"close"`
}

// EquityRecord is the Parquet schema for an exported equity curve. The nav
// and benchmark columns are the chart series.
type EquityRecord struct {
	Date            int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	Holding         string  `parquet:"holding"`
	DailyReturn     float64 `parquet:"daily_return"`
	NAV             float64 `parquet:"nav"`
	BenchmarkReturn float64 `parquet:"benchmark_return"`
	Benchmark       float64 `parquet:"benchmark"`
}

// SelectionRecord is the Parquet schema for an exported period selection.
type SelectionRecord struct {
	PeriodEnd   int64    `parquet:"period_end,timestamp(millisecond)"` // Unix ms
	Count       int64    `parquet:"count"`
	Symbols     []string `parquet:"symbols,list"`
	Names       []string `parquet:"names,list"`
	TotalReturn float64  `parquet:"total_return"`
}

// ---------------------------------------------------------------------------
// PanelStore implementation
// ---------------------------------------------------------------------------

// WritePanel writes panel rows to Parquet files organized by period and
// year:
//
//	<DataDir>/<market>/panel/<PERIOD>/<YYYY>.parquet
//
// Rows already stored keep their position; replacements are written in
// place and new rows are appended, so reads preserve the original order.
func (s *ParquetStore) WritePanel(_ context.Context, period string, records []domain.InstrumentRecord) error {
	if len(records) == 0 {
		return nil
	}

	groups := make(map[int][]PanelRecord)
	for _, r := range records {
		year := r.Date.UTC().Year()
		groups[year] = append(groups[year], toPanelRecord(r))
	}

	for year, recs := range groups {
		path := s.panelPath(period, year)

		existing, err := readParquetFile[PanelRecord](path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading panel %s/%d: %w", period, year, err)
		}
		merged := mergePanelRecords(existing, recs)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing panel %s/%d: %w", period, year, err)
		}
	}
	return nil
}

// ReadPanel reads the stored year files overlapping [start, end]
// concurrently. Rows
// with an empty forward return list cannot be evaluated and are dropped.
func (s *ParquetStore) ReadPanel(ctx context.Context, period string, start, end time.Time) ([]domain.InstrumentRecord, error) {
	if end.Before(start) {
		return nil, nil
	}
	stored, err := s.PanelYears(period)
	if err != nil {
		return nil, err
	}
	var years []int
	for _, y := range stored {
		if y >= start.Year() && y <= end.Year() {
			years = append(years, y)
		}
	}

	results := make([][]PanelRecord, len(years))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, year := range years {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := readParquetFile[PanelRecord](s.panelPath(period, year))
			if errors.Is(err, fs.ErrNotExist) {
				return nil // no snapshots that year
			}
			if err != nil {
				return fmt.Errorf("reading panel %s/%d: %w", period, year, err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	from, to := util.Day(start), util.Day(end)
	var out []domain.InstrumentRecord
	for _, recs := range results {
		for _, r := range recs {
			if len(r.ForwardDailyReturns) == 0 {
				continue
			}
			if !util.InRange(time.UnixMilli(r.Date).UTC(), from, to) {
				continue
			}
			out = append(out, fromPanelRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// ListPanelPeriods returns the period codes that have panel data.
func (s *ParquetStore) ListPanelPeriods() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, string(s.Market), "panel"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var periods []string
	for _, e := range entries {
		if e.IsDir() {
			periods = append(periods, e.Name())
		}
	}
	sort.Strings(periods)
	return periods, nil
}

// PanelYears returns the years with a panel file for period, in order.
func (s *ParquetStore) PanelYears(period string) ([]int, error) {
	dir := filepath.Dir(s.panelPath(period, 0))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var years []int
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".parquet")
		if e.IsDir() || !ok {
			continue
		}
		if y, err := strconv.Atoi(name); err == nil {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years, nil
}

// ---------------------------------------------------------------------------
// BenchmarkStore implementation
// ---------------------------------------------------------------------------

// WriteIndex writes index closes to <DataDir>/<market>/index/<code>.parquet.
func (s *ParquetStore) WriteIndex(_ context.Context, code string, closes []domain.IndexClose) error {
	if len(closes) == 0 {
		return nil
	}
	path := s.indexPath(code)

	existing, err := readParquetFile[IndexRecord](path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading index %s: %w", code, err)
	}

	byDate := make(map[int64]IndexRecord, len(existing)+len(closes))
	for _, r := range existing {
		byDate[r.Date] = r
	}
	for _, c := range closes {
		r := IndexRecord{Code: code, Date: util.Day(c.Date).UnixMilli(), Close: c.Close}
		byDate[r.Date] = r
	}
	merged := make([]IndexRecord, 0, len(byDate))
	for _, r := range byDate {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing index %s: %w", code, err)
	}
	return nil
}

// LoadBenchmark turns the index closes into daily percentage changes. The
// first stored close has no prior close and yields no day; days outside
// [start, end] are clipped after the change is computed.
func (s *ParquetStore) LoadBenchmark(_ context.Context, code string, start, end time.Time) ([]domain.CalendarDay, error) {
	recs, err := readParquetFile[IndexRecord](s.indexPath(code))
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", code, err)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Date < recs[j].Date
	})

	from, to := util.Day(start), util.Day(end)
	var days []domain.CalendarDay
	for i := 1; i < len(recs); i++ {
		d := time.UnixMilli(recs[i].Date).UTC()
		if d.Before(from) || d.After(to) {
			continue
		}
		prev := recs[i-1].Close
		ret := math.NaN()
		if prev != 0 {
			ret = recs[i].Close/prev - 1
		}
		days = append(days, domain.CalendarDay{Date: d, BenchmarkReturn: ret})
	}
	return days, nil
}

// ---------------------------------------------------------------------------
// ResultWriter implementation
// ---------------------------------------------------------------------------

// WriteEquity exports an equity curve to <DataDir>/results/<run>/equity.parquet.
func (s *ParquetStore) WriteEquity(_ context.Context, runID string, points []domain.EquityPoint) error {
	recs := make([]EquityRecord, len(points))
	for i, p := range points {
		recs[i] = EquityRecord{
			Date:            p.Date.UnixMilli(),
			Holding:         p.Holding,
			DailyReturn:     p.DailyReturn,
			NAV:             p.NAV,
			BenchmarkReturn: p.BenchmarkReturn,
			Benchmark:       p.BenchmarkNAV,
		}
	}
	if err := writeParquetFile(s.resultPath(runID, "equity"), recs); err != nil {
		return fmt.Errorf("writing equity for run %s: %w", runID, err)
	}
	return nil
}

// ReadEquity reads back an exported equity curve.
func (s *ParquetStore) ReadEquity(_ context.Context, runID string) ([]domain.EquityPoint, error) {
	recs, err := readParquetFile[EquityRecord](s.resultPath(runID, "equity"))
	if err != nil {
		return nil, err
	}
	points := make([]domain.EquityPoint, len(recs))
	for i, r := range recs {
		points[i] = domain.EquityPoint{
			Date:            time.UnixMilli(r.Date).UTC(),
			Holding:         r.Holding,
			DailyReturn:     r.DailyReturn,
			NAV:             r.NAV,
			BenchmarkReturn: r.BenchmarkReturn,
			BenchmarkNAV:    r.Benchmark,
		}
	}
	return points, nil
}

// WriteSelections exports period selections to
// <DataDir>/results/<run>/selections.parquet.
func (s *ParquetStore) WriteSelections(_ context.Context, runID string, selections []domain.PeriodSelection) error {
	recs := make([]SelectionRecord, len(selections))
	for i, sel := range selections {
		recs[i] = SelectionRecord{
			PeriodEnd:   sel.PeriodEnd.UnixMilli(),
			Count:       int64(sel.Count),
			Symbols:     sel.Symbols,
			Names:       sel.Names,
			TotalReturn: sel.TotalReturn,
		}
	}
	if err := writeParquetFile(s.resultPath(runID, "selections"), recs); err != nil {
		return fmt.Errorf("writing selections for run %s: %w", runID, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// panelPath returns the filesystem path for a panel Parquet file.
// Layout: <dataDir>/<market>/panel/<PERIOD>/<YYYY>.parquet
func (s *ParquetStore) panelPath(period string, year int) string {
	return filepath.Join(s.DataDir, string(s.Market), "panel", strings.ToUpper(period), fmt.Sprintf("%d.parquet", year))
}

// indexPath returns the filesystem path for an index Parquet file.
// Layout: <dataDir>/<market>/index/<code>.parquet
func (s *ParquetStore) indexPath(code string) string {
	return filepath.Join(s.DataDir, string(s.Market), "index", strings.ToLower(code)+".parquet")
}

// resultPath returns the filesystem path for an exported run table.
// Layout: <dataDir>/results/<run>/<table>.parquet
func (s *ParquetStore) resultPath(runID, table string) string {
	return filepath.Join(s.DataDir, "results", runID, table+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

// readParquetFile returns an error matching fs.ErrNotExist when path is
// missing.
func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergePanelRecords deduplicates panel rows by (symbol, date), preferring
// incoming rows. Existing rows keep their position and new rows follow in
// input order; the result is stably sorted by date.
func mergePanelRecords(existing, incoming []PanelRecord) []PanelRecord {
	type key struct {
		symbol string
		date   int64
	}
	index := make(map[key]int, len(existing)+len(incoming))
	merged := make([]PanelRecord, 0, len(existing)+len(incoming))
	for _, r := range existing {
		index[key{r.Symbol, r.Date}] = len(merged)
		merged = append(merged, r)
	}
	for _, r := range incoming {
		k := key{r.Symbol, r.Date}
		if i, ok := index[k]; ok {
			merged[i] = r
			continue
		}
		index[k] = len(merged)
		merged = append(merged, r)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})
	return merged
}

func toPanelRecord(r domain.InstrumentRecord) PanelRecord {
	names := make([]string, 0, len(r.Factors))
	for name := range r.Factors {
		names = append(names, name)
	}
	sort.Strings(names)
	factors := make([]FactorValue, len(names))
	for i, name := range names {
		factors[i] = FactorValue{Name: name, Value: r.Factors[name]}
	}

	return PanelRecord{
		Symbol:              r.Symbol,
		Name:                r.Name,
		Date:                util.Day(r.Date).UnixMilli(),
		Factors:             factors,
		ForwardDailyReturns: r.ForwardDailyReturns,
		ForwardOpenReturn:   r.ForwardOpenReturn,
		ListedDays:          int64(r.ListedDays),
		NextDayTradable:     r.NextDayTradable,
		NextDayLimitUp:      r.NextDayLimitUp,
		NextDaySuspended:    r.NextDaySuspended,
		NextDayST:           r.NextDayST,
		NextDayDelisting:    r.NextDayDelisting,
	}
}

func fromPanelRecord(r PanelRecord) domain.InstrumentRecord {
	factors := make(map[string]float64, len(r.Factors))
	for _, f := range r.Factors {
		factors[f.Name] = f.Value
	}
	return domain.InstrumentRecord{
		Symbol:              r.Symbol,
		Name:                r.Name,
		Date:                time.UnixMilli(r.Date).UTC(),
		Factors:             factors,
		ForwardDailyReturns: r.ForwardDailyReturns,
		ForwardOpenReturn:   r.ForwardOpenReturn,
		ListedDays:          int(r.ListedDays),
		NextDayTradable:     r.NextDayTradable,
		NextDayLimitUp:      r.NextDayLimitUp,
		NextDaySuspended:    r.NextDaySuspended,
		NextDayST:           r.NextDayST,
		NextDayDelisting:    r.NextDayDelisting,
	}
}
