package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"NewsSummarizer/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case. At most one
// run is in flight at a time, whether it came from the driver or Trigger.
type Scheduler struct {
	driver       ports.Scheduler
	pipeline     *Pipeline
	keyword      string
	lookbackDays int
	logger       *slog.Logger

	running sync.Mutex
	wg      sync.WaitGroup
}

// NewScheduler returns a helper to start/stop recurring runs of keyword,
// each looking back lookbackDays from its trigger date.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, keyword string, lookbackDays int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:       driver,
		pipeline:     pipeline,
		keyword:      keyword,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.wg.Add(1)
		defer s.wg.Done()
		s.RunAt(ctx, trigger)
	})
}

// Trigger starts a run in the background as if triggered at trigger. Use
// Wait to block until it has finished.
func (s *Scheduler) Trigger(ctx context.Context, trigger time.Time) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunAt(ctx, trigger)
	}()
}

// Wait blocks until every run started through the scheduler has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunAt executes a single run as if triggered at trigger. It returns
// immediately when another run is still in progress.
func (s *Scheduler) RunAt(ctx context.Context, trigger time.Time) {
	if s.pipeline == nil {
		return
	}
	if !s.running.TryLock() {
		s.logger.Warn("previous run still in progress, skipping", "trigger", trigger.Format(time.RFC3339))
		return
	}
	defer s.running.Unlock()

	report, err := s.pipeline.Run(ctx, s.keyword, SinceDate(trigger, s.lookbackDays))
	if err != nil {
		s.logger.Error("scheduled run aborted", "run_id", report.RunID, "error", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// SinceDate returns the calendar date lookbackDays before t, at midnight in
// t's location.
func SinceDate(t time.Time, lookbackDays int) time.Time {
	if lookbackDays < 0 {
		lookbackDays = 0
	}
	y, m, d := t.Date()
	return time.Date(y, m, d-lookbackDays, 0, 0, 0, 0, t.Location())
}
