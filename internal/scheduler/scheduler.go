// Package scheduler runs the periodic ingest and aggregate jobs on cron
// schedules. Each invocation gets its own timeout and an invocation that would
// overlap a still-running one of the same job is skipped.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/complaint-club-etl/internal/aggregate"
	"github.com/couchcryptid/complaint-club-etl/internal/pipeline"
)

// Job is one scheduled task. Spec is a standard five-field cron expression.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.RWMutex
	base context.Context
}

// New creates a scheduler whose cron times are interpreted in loc.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		base:   context.Background(),
	}
}

// Add registers a job.
func (s *Scheduler) Add(job Job) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(job.Spec, func() { s.run(job) })
	if err != nil {
		return 0, fmt.Errorf("schedule %s %q: %w", job.Name, job.Spec, err)
	}
	s.logger.Info("job scheduled", "job", job.Name, "spec", job.Spec, "timeout", job.Timeout)
	return id, nil
}

// Start runs the scheduler in the background. Job contexts derive from ctx,
// so canceling it aborts running jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop stops scheduling new invocations and waits for running ones until ctx
// expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) run(job Job) {
	s.mu.RLock()
	base := s.base
	s.mu.RUnlock()

	ctx := base
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(base, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", job.Name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Info("scheduled job finished", "job", job.Name, "duration", time.Since(start))
}

// Ingester runs incremental ingestion.
type Ingester interface {
	Ingest(ctx context.Context) (pipeline.IngestResult, error)
}

// Aggregator runs the full aggregate refresh.
type Aggregator interface {
	FullRefresh(ctx context.Context) (aggregate.RefreshReport, error)
}

// IngestJob runs one incremental ingest per invocation.
func IngestJob(spec string, timeout time.Duration, ing Ingester) Job {
	return Job{Name: "ingest", Spec: spec, Timeout: timeout, Run: func(ctx context.Context) error {
		_, err := ing.Ingest(ctx)
		return err
	}}
}

// AggregateJob runs one full aggregate refresh per invocation.
func AggregateJob(spec string, timeout time.Duration, agg Aggregator) Job {
	return Job{Name: "aggregate", Spec: spec, Timeout: timeout, Run: func(ctx context.Context) error {
		_, err := agg.FullRefresh(ctx)
		return err
	}}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
