package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// IngestResult summarizes one incremental run.
type IngestResult struct {
	RunID     string               `json:"run_id"`
	Fetched   int                  `json:"fetched"`
	Inserted  int                  `json:"inserted"`
	Skipped   int                  `json:"skipped"`
	Failed    int                  `json:"failed"`
	Failures  []domain.UnitFailure `json:"failures,omitempty"`
	Since     time.Time            `json:"since"`
	Watermark time.Time            `json:"watermark"`
	Duration  time.Duration        `json:"duration_ns"`
}

// Ingest runs one incremental ETL pass: it fetches records created after the
// last completed run's watermark, stores them, and advances the watermark.
// Per-record failures are counted in the result. Any other failure marks the
// run failed, leaves the watermark where it was, and is returned.
func (p *Pipeline) Ingest(ctx context.Context) (IngestResult, error) {
	started := time.Now()

	run, err := p.store.CreateRun(ctx, domain.Now())
	if err != nil {
		return IngestResult{}, fmt.Errorf("start etl run: %w", err)
	}
	p.logger.Info("etl run started", "run_id", run.ID)

	result, err := p.ingest(ctx, run.ID)
	result.RunID = run.ID
	result.Duration = time.Since(started)
	p.metrics.EtlRunDuration.Observe(result.Duration.Seconds())

	if err != nil {
		p.metrics.EtlRuns.WithLabelValues(string(domain.RunStatusFailed)).Inc()
		// The run's own context may already be past its deadline.
		if ferr := p.store.FailRun(context.WithoutCancel(ctx), run.ID, domain.Now(), err.Error()); ferr != nil {
			p.logger.Error("record run failure", "run_id", run.ID, "error", ferr)
		}
		p.logger.Error("etl run failed", "run_id", run.ID, "error", err)
		return result, err
	}

	p.metrics.EtlRuns.WithLabelValues(string(domain.RunStatusCompleted)).Inc()
	p.metrics.Watermark.Set(float64(result.Watermark.Unix()))
	p.logger.Info("etl run completed",
		"run_id", run.ID,
		"records_fetched", result.Fetched,
		"records_inserted", result.Inserted,
		"records_skipped", result.Skipped,
		"records_failed", result.Failed,
		"watermark", result.Watermark,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) ingest(ctx context.Context, runID string) (IngestResult, error) {
	since, err := p.since(ctx)
	if err != nil {
		return IngestResult{}, err
	}
	result := IngestResult{Since: since}

	records, err := p.source.FetchSince(ctx, since, p.fetchLimit)
	if err != nil {
		return result, fmt.Errorf("fetch records: %w", err)
	}
	result.Fetched = len(records)
	p.metrics.RecordsFetched.Add(float64(len(records)))

	loaded := p.loadRecords(ctx, records)
	result.Inserted = loaded.outcome.Succeeded
	result.Skipped = loaded.outcome.Skipped
	result.Failed = loaded.outcome.Failed
	result.Failures = loaded.outcome.Failures

	// A run cut short by its deadline must not advance the watermark past
	// records it never stored.
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("load records: %w", err)
	}

	// A full page may stop part-way through records sharing its newest
	// timestamp. Hold the watermark before that timestamp so the next run
	// fetches the rest; the ones already stored are skipped as duplicates.
	newest := loaded.newest
	if len(records) == p.fetchLimit && loaded.beforeNewest.After(since) {
		newest = loaded.beforeNewest
	}
	result.Watermark = since
	if newest.After(since) {
		result.Watermark = newest
	}

	if err := p.store.CompleteRun(ctx, runID, domain.Now(), result.Fetched, result.Inserted, result.Watermark); err != nil {
		return result, fmt.Errorf("complete etl run: %w", err)
	}

	p.publish(ctx, loaded.inserted)
	return result, nil
}

// since returns the watermark of the last completed run, or the configured
// lookback before now when no run has completed.
func (p *Pipeline) since(ctx context.Context) (time.Time, error) {
	wm, err := p.store.LastWatermark(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("read watermark: %w", err)
	}
	if wm == nil {
		return domain.Now().Add(-p.lookback).UTC(), nil
	}
	return wm.UTC(), nil
}
