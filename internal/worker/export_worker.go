// Package worker keeps the spreadsheet export in step with the dashboard data.
// It reacts to change events from the broker and also re-exports on a timer
// in case an event was lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"asrama/internal/amqp"
	"asrama/internal/core"
	applog "asrama/internal/log"
	"asrama/internal/period"
	"asrama/internal/sheets/google"
	"asrama/internal/store"
)

type Exporter interface {
	ExportSummary(ctx context.Context, s google.Summary) error
	AppendMinutesLog(ctx context.Context, e google.MinutesLogEntry) error
}

// Source is the slice of the data backend the worker reads.
type Source interface {
	store.FinanceStore
	store.ActivityStore
	store.MinutesStore
}

type ExportWorker struct {
	source   Source
	exporter Exporter
	logger   *applog.Logger
	now      func() time.Time

	// exportMu serialises summary exports so a slow export never interleaves
	// its clear and update calls with another one.
	exportMu sync.Mutex
}

func NewExportWorker(source Source, exporter Exporter, logger *applog.Logger) *ExportWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentWorker),
		now:      time.Now,
	}
}

// Handle processes one change event. Errors that a retry cannot fix are
// logged and swallowed so the message is acked instead of redelivered forever.
func (w *ExportWorker) Handle(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		applog.FieldEventKind, msg.Kind,
		applog.FieldRecordID, msg.ID,
		applog.FieldOperation, msg.Op)

	var err error
	switch msg.Kind {
	case amqp.KindFinanceChanged:
		err = w.ExportSummary(ctx)
	case amqp.KindMinutesUploaded:
		err = w.LogMinutes(ctx, msg.ID)
	default:
		w.logger.WarnContext(ctx, "Ignoring message of unknown kind", applog.FieldEventKind, msg.Kind)
		return nil
	}

	if permanent(err) {
		w.logger.ErrorContext(ctx, "Dropping message that cannot be processed",
			applog.FieldEventKind, msg.Kind,
			applog.FieldRecordID, msg.ID,
			applog.FieldError, err)
		return nil
	}
	return err
}

func permanent(err error) bool {
	return errors.Is(err, core.ErrUnknownMonth) ||
		errors.Is(err, period.ErrNegativeAmount) ||
		errors.Is(err, store.ErrNotFound)
}

// ExportSummary rebuilds the monthly, quarterly and yearly series from every
// stored record and overwrites the summary tab with them.
func (w *ExportWorker) ExportSummary(ctx context.Context) error {
	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	records, err := w.source.ListFinance(ctx)
	if err != nil {
		return fmt.Errorf("list finance: %w", err)
	}
	summary, err := BuildSummary(records)
	if err != nil {
		return err
	}
	summary.GeneratedAt = w.now()

	start := w.now()
	if err := w.exporter.ExportSummary(ctx, summary); err != nil {
		return fmt.Errorf("export summary: %w", err)
	}
	w.logger.InfoContext(ctx, "Summary export completed",
		applog.FieldCount, len(records),
		applog.FieldDuration, w.now().Sub(start).Milliseconds())
	return nil
}

// BuildSummary aggregates records at every granularity.
func BuildSummary(records []core.FinancialRecord) (google.Summary, error) {
	entries := period.FromRecords(records)
	var s google.Summary
	targets := []struct {
		g   period.Granularity
		dst *[]period.Bucket
	}{
		{period.Monthly, &s.Monthly},
		{period.Quarterly, &s.Quarterly},
		{period.Yearly, &s.Yearly},
	}
	for _, t := range targets {
		buckets, err := period.Aggregate(entries, t.g)
		if err != nil {
			return google.Summary{}, fmt.Errorf("aggregate %s: %w", t.g, err)
		}
		*t.dst = buckets
	}
	return s, nil
}

// LogMinutes appends the uploaded document of activityID to the minutes log.
func (w *ExportWorker) LogMinutes(ctx context.Context, activityID int64) error {
	var entry google.MinutesLogEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := w.source.GetActivity(gctx, activityID)
		if err != nil {
			return fmt.Errorf("get activity %d: %w", activityID, err)
		}
		entry.Activity = a
		return nil
	})
	g.Go(func() error {
		m, err := w.source.GetMinutes(gctx, activityID)
		if err != nil {
			return fmt.Errorf("get minutes %d: %w", activityID, err)
		}
		entry.Minutes = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := w.exporter.AppendMinutesLog(ctx, entry); err != nil {
		return fmt.Errorf("append minutes log: %w", err)
	}
	return nil
}
