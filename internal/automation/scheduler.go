// Habitsync - Habit Automation and Streak Analytics
// Copyright 2026 HabitLab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitlab/habitsync

package automation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/habitlab/habitsync/internal/config"
	"github.com/habitlab/habitsync/internal/logging"
	"github.com/habitlab/habitsync/internal/metrics"
)

// ErrRunInProgress is returned by RunHabit when a run for the same habit
// is already executing.
var ErrRunInProgress = errors.New("automation run already in progress for this habit")

// Run outcomes recorded in metrics.
const (
	outcomeCompleted = "completed"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

// Scheduler drives periodic scan-and-dispatch cycles: every tick it
// lists the automation-enabled habits and dispatches one Processor run
// per habit.
//
// Two exclusivity guarantees hold:
//   - Scans never overlap. A tick that fires while the previous scan is
//     still running is skipped outright.
//   - Runs for the same habit id never overlap, across scans and
//     on-demand triggers alike; a second attempt is skipped, not queued.
//
// Runs for distinct habits proceed in parallel, bounded by the
// configured concurrency limit.
type Scheduler struct {
	store     Store
	processor *Processor
	cfg       *config.AutomationConfig

	locks    *keyLock
	scanning atomic.Bool
}

// NewScheduler creates a Scheduler that dispatches runs through the
// given processor.
func NewScheduler(store Store, processor *Processor, cfg *config.AutomationConfig) *Scheduler {
	return &Scheduler{
		store:     store,
		processor: processor,
		cfg:       cfg,
		locks:     newKeyLock(),
	}
}

// Serve implements suture.Service. Runs one scan immediately, then one
// per configured interval, until the context is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	interval := s.cfg.ScanInterval()
	logging.Info().
		Dur("interval", interval).
		Int("max_concurrent", s.cfg.MaxConcurrentRuns).
		Msg("Starting automation scheduler")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Scan(ctx)

	for {
		select {
		case <-ticker.C:
			s.Scan(ctx)
		case <-ctx.Done():
			logging.Info().Msg("Automation scheduler stopped")
			return ctx.Err()
		}
	}
}

// Scan runs one scan-and-dispatch cycle and blocks until every
// dispatched run finishes. If a previous scan is still running the call
// returns immediately without scanning.
func (s *Scheduler) Scan(ctx context.Context) {
	if !s.scanning.CompareAndSwap(false, true) {
		metrics.AutomationScansSkipped.Inc()
		logging.Warn().Msg("Previous scan still running, skipping tick")
		return
	}
	defer s.scanning.Store(false)

	start := time.Now()

	habits, err := s.store.ListAutomationHabits(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list automation habits, aborting scan")
		return
	}

	if len(habits) == 0 {
		logging.Debug().Msg("No automation-enabled habits found")
		metrics.RecordScan(0, time.Since(start))
		return
	}

	logging.Info().Int("habits", len(habits)).Msg("Dispatching automation runs")

	sem := make(chan struct{}, s.cfg.MaxConcurrentRuns)
	var wg sync.WaitGroup

	for i := range habits {
		wg.Add(1)
		sem <- struct{}{}

		go func(habitID string) {
			defer wg.Done()
			defer func() { <-sem }()

			s.runHabit(ctx, habitID)
		}(habits[i].ID)
	}

	wg.Wait()
	metrics.RecordScan(len(habits), time.Since(start))
}

// RunHabit runs the processor for one habit on demand. Returns
// ErrRunInProgress if a run for the same habit is already executing.
func (s *Scheduler) RunHabit(ctx context.Context, habitID string) error {
	if !s.locks.TryAcquire(habitID) {
		return ErrRunInProgress
	}
	defer s.locks.Release(habitID)

	return s.process(ctx, habitID)
}

// runHabit is the scan-path dispatch: lock contention is a skip, and
// failures are logged rather than propagated so one habit cannot stall
// the rest of the scan.
func (s *Scheduler) runHabit(ctx context.Context, habitID string) {
	if !s.locks.TryAcquire(habitID) {
		metrics.AutomationRunsTotal.WithLabelValues(outcomeSkipped).Inc()
		logging.Debug().Str("habit_id", habitID).Msg("Run already in progress, skipping")
		return
	}
	defer s.locks.Release(habitID)

	if err := s.process(ctx, habitID); err != nil {
		logging.Error().Err(err).Str("habit_id", habitID).Msg("Automation run failed")
	}
}

// process runs the processor under the configured per-run timeout and
// records the outcome. Callers must hold the habit's lock.
func (s *Scheduler) process(ctx context.Context, habitID string) error {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	start := time.Now()
	err := s.processor.Process(runCtx, habitID)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordAutomationRun(outcomeFailed, duration)
		return err
	}

	metrics.RecordAutomationRun(outcomeCompleted, duration)
	return nil
}
