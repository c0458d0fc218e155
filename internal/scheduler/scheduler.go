// Package scheduler runs due recurring payments on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
)

// ErrAlreadyRunning is returned by Trigger while a run is in progress.
var ErrAlreadyRunning = errors.New("scheduler run already in progress")

// DefaultInterval is how often due payments are checked.
const DefaultInterval = time.Minute

// Executor runs every due recurring payment across all users.
type Executor interface {
	ExecuteAllDue(ctx context.Context, now time.Time) (*model.RecurringRun, error)
}

// Status reports the scheduler state.
type Status struct {
	Scheduled     bool       `json:"scheduled"`
	Running       bool       `json:"running"`
	Interval      string     `json:"interval"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	NextRun       *time.Time `json:"next_run,omitempty"`
	LastExecuted  int        `json:"last_executed"`
	TotalExecuted int64      `json:"total_executed"`
	LastError     string     `json:"last_error,omitempty"`
}

// Scheduler triggers the executor every interval and skips ticks that
// overlap a run still in progress.
type Scheduler struct {
	executor Executor
	interval time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time

	running       atomic.Bool
	totalExecuted atomic.Int64

	mu           sync.Mutex
	cron         *cron.Cron
	entryID      cron.EntryID
	lastRun      *time.Time
	lastExecuted int
	lastError    string
	baseCtx      context.Context
}

// New creates a Scheduler. A non-positive interval uses DefaultInterval.
func New(executor Executor, interval time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Scheduler{
		executor: executor,
		interval: interval,
		logger:   logger.With("component", "recurring.scheduler"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// Run schedules executions and blocks until ctx is cancelled, then waits
// for an in-flight run to finish. It suits server.Go.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	c := cron.New(cron.WithLocation(time.UTC))
	s.entryID = c.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		if _, err := s.runOnce(ctx); errors.Is(err, ErrAlreadyRunning) {
			s.logger.Info("scheduler_tick_skipped", "reason", "previous run still in progress")
		}
	}))
	s.cron = c
	s.baseCtx = ctx
	s.mu.Unlock()

	c.Start()
	s.logger.Info("scheduler_started", "interval", s.interval.String())

	<-ctx.Done()
	<-c.Stop().Done()

	s.mu.Lock()
	s.cron = nil
	s.mu.Unlock()
	s.logger.Info("scheduler_stopped")
	return ctx.Err()
}

// Trigger runs due payments immediately.
func (s *Scheduler) Trigger(ctx context.Context) (*model.RecurringRun, error) {
	s.logger.Info("scheduler_manual_run")
	return s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) (*model.RecurringRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	start := s.now()
	run, err := s.executor.ExecuteAllDue(ctx, start)
	s.metrics.ObserveSchedulerRun(time.Since(start))

	s.mu.Lock()
	s.lastRun = &start
	s.lastError = ""
	s.lastExecuted = 0
	if err != nil {
		s.lastError = err.Error()
	}
	if run != nil {
		s.lastExecuted = run.Successful
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduler_run_failed", "error", err)
		return nil, err
	}

	s.totalExecuted.Add(int64(run.Successful))
	if run.Processed > 0 {
		s.logger.Info("scheduler_run_completed",
			"processed", run.Processed,
			"successful", run.Successful,
			"failed", run.Failed,
		)
	}
	return run, nil
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Scheduled:     s.cron != nil,
		Running:       s.running.Load(),
		Interval:      s.interval.String(),
		LastRun:       s.lastRun,
		LastExecuted:  s.lastExecuted,
		TotalExecuted: s.totalExecuted.Load(),
		LastError:     s.lastError,
	}
	if s.cron != nil {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			st.NextRun = &next
		}
	}
	return st
}
