package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"asrama/internal/cache"
	"asrama/internal/core"
	applog "asrama/internal/log"
	"asrama/internal/period"
	"asrama/internal/store"
)

// FinanceService validates and stores monthly finance records and serves
// the aggregated series behind the dashboard chart.
type FinanceService struct {
	store     store.FinanceStore
	publisher Publisher
	series    cache.Cache[period.Series]
	logger    *applog.Logger
}

func NewFinanceService(fs store.FinanceStore, publisher Publisher, series cache.Cache[period.Series], logger *applog.Logger) *FinanceService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &FinanceService{
		store:     fs,
		publisher: publisher,
		series:    series,
		logger:    logger.WithComponent(applog.ComponentFinance),
	}
}

// List returns every record, newest month first.
func (s *FinanceService) List(ctx context.Context) ([]core.FinancialRecord, error) {
	records, err := s.store.ListFinance(ctx)
	if err != nil {
		return nil, fmt.Errorf("list finance: %w", err)
	}
	sortNewestFirst(records)
	return records, nil
}

func sortNewestFirst(records []core.FinancialRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Year != records[j].Year {
			return records[i].Year > records[j].Year
		}
		mi, _ := core.MonthIndex(records[i].Month)
		mj, _ := core.MonthIndex(records[j].Month)
		return mi > mj
	})
}

func (s *FinanceService) Create(ctx context.Context, f core.FinancialRecord) (core.FinancialRecord, error) {
	if err := prepareFinance(&f); err != nil {
		return core.FinancialRecord{}, err
	}
	saved, err := s.store.CreateFinance(ctx, f)
	if err != nil {
		return core.FinancialRecord{}, fmt.Errorf("create finance: %w", err)
	}
	s.changed(ctx, applog.OpCreate, saved.ID, saved.Year)
	return saved, nil
}

func (s *FinanceService) Update(ctx context.Context, f core.FinancialRecord) (core.FinancialRecord, error) {
	if err := prepareFinance(&f); err != nil {
		return core.FinancialRecord{}, err
	}
	saved, err := s.store.UpdateFinance(ctx, f)
	if err != nil {
		return core.FinancialRecord{}, fmt.Errorf("update finance %d: %w", f.ID, err)
	}
	s.changed(ctx, applog.OpUpdate, saved.ID, saved.Year)
	return saved, nil
}

func (s *FinanceService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteFinance(ctx, id); err != nil {
		return fmt.Errorf("delete finance %d: %w", id, err)
	}
	s.changed(ctx, applog.OpDelete, id, 0)
	return nil
}

// prepareFinance validates f and rewrites its month to the canonical name.
func prepareFinance(f *core.FinancialRecord) error {
	if err := core.Validate(f); err != nil {
		return err
	}
	month, err := core.CanonicalMonth(f.Month)
	if err != nil {
		return err
	}
	f.Month = month
	return f.Validate()
}

// changed drops cached series and publishes the change. Publishing is best
// effort; the record is already stored.
func (s *FinanceService) changed(ctx context.Context, op string, id int64, year int) {
	if s.series != nil {
		s.series.Purge()
	}
	s.logger.InfoContext(ctx, "Finance record changed",
		applog.FieldOperation, op,
		applog.FieldRecordID, id,
		applog.FieldYear, year)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishFinanceChanged(ctx, op, id, year); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish finance change",
			applog.FieldRecordID, id,
			applog.FieldError, err)
	}
}

// knownEntries loads the records whose month is in the calendar, in
// aggregation form, and returns the others separately.
func (s *FinanceService) knownEntries(ctx context.Context) ([]period.Entry, []core.FinancialRecord, error) {
	records, err := s.store.ListFinance(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list finance: %w", err)
	}
	known := records[:0:0]
	var unknown []core.FinancialRecord
	for _, f := range records {
		if f.KnownMonth() {
			known = append(known, f)
		} else {
			unknown = append(unknown, f)
		}
	}
	return period.FromRecords(known), unknown, nil
}

// Series aggregates the records at granularity g. A zero year covers every year.
func (s *FinanceService) Series(ctx context.Context, g period.Granularity, year int) (period.Series, error) {
	if !g.Valid() {
		return period.Series{}, period.ErrUnknownGranularity
	}
	key := string(g) + ":" + strconv.Itoa(year)
	if s.series != nil {
		if cached, ok := s.series.Get(key); ok {
			return cached, nil
		}
	}

	entries, unknown, err := s.knownEntries(ctx)
	if err != nil {
		return period.Series{}, err
	}
	// A chart without the unplaceable months would misstate the totals.
	if len(unknown) > 0 {
		return period.Series{}, &core.MonthError{Record: unknown[0]}
	}
	buckets, err := period.Aggregate(entries, g)
	if err != nil {
		return period.Series{}, fmt.Errorf("aggregate %s: %w", g, err)
	}
	if g != period.Yearly {
		buckets = period.FilterYear(buckets, year)
	}
	series := period.ToSeries(g, year, buckets)

	if s.series != nil {
		s.series.Set(key, series)
	}
	s.logger.DebugContext(ctx, "Aggregated finance series",
		applog.FieldGranularity, string(g),
		applog.FieldYear, year,
		applog.FieldCount, len(buckets))
	return series, nil
}

// Years lists the years that have records, newest first.
func (s *FinanceService) Years(ctx context.Context) ([]int, error) {
	entries, _, err := s.knownEntries(ctx)
	if err != nil {
		return nil, err
	}
	return period.Years(entries), nil
}

// YearTotals sums one year's records. Records with an unknown month are
// left out and logged; the finance page lists them for correction.
func (s *FinanceService) YearTotals(ctx context.Context, year int) (core.Totals, error) {
	entries, unknown, err := s.knownEntries(ctx)
	if err != nil {
		return core.Totals{}, err
	}
	for _, f := range unknown {
		s.logger.WarnContext(ctx, "Skipping finance record with unknown month",
			applog.FieldRecordID, f.ID,
			applog.FieldMonth, f.Month,
			applog.FieldYear, f.Year)
	}
	buckets, err := period.Aggregate(entries, period.Yearly)
	if err != nil {
		return core.Totals{}, err
	}
	return period.Totals(period.FilterYear(buckets, year)), nil
}
