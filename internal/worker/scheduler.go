package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	applog "asrama/internal/log"
)

// Scheduler re-exports the summary every interval. It covers events that were
// lost while the broker or the worker was down.
type Scheduler struct {
	worker   *ExportWorker
	interval time.Duration
	logger   *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(worker *ExportWorker, interval time.Duration, logger *applog.Logger) *Scheduler {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Scheduler{
		worker:   worker,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Start runs an export right away and then every interval. It returns an
// error if the scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("export interval must be positive")
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("export scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	s.logger.InfoContext(ctx, "Export scheduler started", "interval", s.interval.String())
	return nil
}

// Stop signals the loop and waits for the export in flight to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Export scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Export scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.export(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.export(ctx)
		}
	}
}

func (s *Scheduler) export(ctx context.Context) {
	if err := s.worker.ExportSummary(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "Periodic export failed", applog.FieldError, err)
	}
}
