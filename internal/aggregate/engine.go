// Package aggregate rolls stored complaints up into daily counts, per-timeframe
// neighborhood summaries with city ranks, and chaos scores.
//
// Every operation recomputes its output from the layer below and overwrites
// it, so any refresh may be retried or run concurrently with ingestion.
// RefreshSummary reads the daily rows, so callers run it after the daily
// refreshes for its window have finished; FullRefresh does this sequencing.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
	"github.com/couchcryptid/complaint-club-etl/internal/observability"
)

// Store is the persistence the engine reads and writes.
type Store interface {
	RebuildDaily(ctx context.Context, day, start, end time.Time) (int, error)
	SumDaily(ctx context.Context, from, to time.Time) ([]domain.CategoryCount, error)
	NeighborhoodIDs(ctx context.Context) ([]int64, error)
	UpsertSummaries(ctx context.Context, summaries []domain.AggregateSummary) error
	ListSummaries(ctx context.Context, tf domain.Timeframe) ([]domain.AggregateSummary, error)
	SetChaosScore(ctx context.Context, neighborhoodID int64, score int) error
}

const (
	stageDaily   = "daily"
	stageSummary = "summary"
	stageChaos   = "chaos"
)

// Engine computes aggregates.
type Engine struct {
	store       Store
	loc         *time.Location
	maxima      domain.MaximaPolicy
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewEngine creates an aggregation engine. Calendar days are taken in loc and
// at most concurrency units are refreshed at once.
func NewEngine(st Store, loc *time.Location, maxima domain.MaximaPolicy, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if concurrency <= 0 {
		concurrency = 8
	}
	if maxima == "" {
		maxima = domain.MaximaRelative
	}
	return &Engine{
		store:       st,
		loc:         loc,
		maxima:      maxima,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Today is the current calendar day in the engine's timezone.
func (e *Engine) Today() time.Time {
	return domain.Today(e.loc)
}

// RefreshDaily rebuilds the daily counts of one calendar day.
func (e *Engine) RefreshDaily(ctx context.Context, day time.Time) error {
	day = domain.CalendarDay(day, time.UTC)
	start, end := domain.DayBounds(day, e.loc)
	rows, err := e.store.RebuildDaily(ctx, day, start, end)
	if err != nil {
		return err
	}
	e.logger.Debug("daily aggregate rebuilt", "date", day.Format(time.DateOnly), "rows", rows)
	return nil
}

// RefreshDailyRange rebuilds every day from..to inclusive, several at a time.
// A failing day is recorded in the outcome and does not stop the others.
func (e *Engine) RefreshDailyRange(ctx context.Context, from, to time.Time) domain.Outcome {
	defer e.observe(stageDaily, time.Now())

	days := domain.DaysBetween(domain.CalendarDay(from, time.UTC), domain.CalendarDay(to, time.UTC))
	errs := make([]error, len(days))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, day := range days {
		g.Go(func() error {
			errs[i] = e.RefreshDaily(ctx, day)
			return nil
		})
	}
	_ = g.Wait()

	var out domain.Outcome
	for i, err := range errs {
		if err != nil {
			e.logger.Warn("daily refresh failed", "date", days[i].Format(time.DateOnly), "error", err)
			out.Fail("date "+days[i].Format(time.DateOnly), err)
			continue
		}
		out.Succeed()
	}
	e.count(stageDaily, out)
	return out
}

// RefreshSummary recomputes every neighborhood's summary for every timeframe
// from the daily counts and re-ranks the city. Neighborhoods with no
// complaints get zero rows. Rows are written per neighborhood; a failed write
// is recorded in the outcome. It returns domain.ErrNoNeighborhoods when the
// reference table is empty and an error when the daily counts cannot be read.
func (e *Engine) RefreshSummary(ctx context.Context) (domain.Outcome, error) {
	defer e.observe(stageSummary, time.Now())

	ids, err := e.store.NeighborhoodIDs(ctx)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("refresh summary: %w", err)
	}
	if len(ids) == 0 {
		return domain.Outcome{}, fmt.Errorf("refresh summary: %w", domain.ErrNoNeighborhoods)
	}

	today := e.Today()
	byNeighborhood := make(map[int64][]domain.AggregateSummary, len(ids))
	for _, tf := range domain.Timeframes {
		from, to := tf.Window(today)
		sums, err := e.store.SumDaily(ctx, from, to)
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("refresh summary %s: %w", tf, err)
		}
		for _, s := range summarize(ids, tf, sums) {
			byNeighborhood[s.NeighborhoodID] = append(byNeighborhood[s.NeighborhoodID], s)
		}
	}

	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = e.store.UpsertSummaries(ctx, byNeighborhood[id])
			return nil
		})
	}
	_ = g.Wait()

	var out domain.Outcome
	for i, err := range errs {
		if err != nil {
			e.logger.Warn("summary upsert failed", "neighborhood_id", ids[i], "error", err)
			out.Fail(fmt.Sprintf("neighborhood %d", ids[i]), err)
			continue
		}
		out.Succeed()
	}
	e.count(stageSummary, out)
	return out, nil
}

// summarize builds one timeframe's summary row for every neighborhood, ranked
// densely by total. Counts for neighborhoods outside ids are ignored.
func summarize(ids []int64, tf domain.Timeframe, sums []domain.CategoryCount) []domain.AggregateSummary {
	counts := make(map[int64]*domain.CategoryCounts, len(ids))
	for _, id := range ids {
		counts[id] = &domain.CategoryCounts{}
	}
	for _, s := range sums {
		if c, ok := counts[s.NeighborhoodID]; ok {
			c.Add(s.Category, s.Count)
		}
	}

	entries := make([]domain.RankEntry, len(ids))
	for i, id := range ids {
		entries[i] = domain.RankEntry{NeighborhoodID: id, Value: counts[id].Total()}
	}

	ranked := domain.DenseRank(entries)
	out := make([]domain.AggregateSummary, len(ranked))
	for i, r := range ranked {
		out[i] = domain.AggregateSummary{
			NeighborhoodID: r.NeighborhoodID,
			Timeframe:      tf,
			Total:          r.Value,
			Counts:         *counts[r.NeighborhoodID],
			RankInCity:     r.Rank,
		}
	}
	return out
}

// UpdateChaosScores scores every neighborhood from its month summary and
// writes the score to all of its timeframe rows.
func (e *Engine) UpdateChaosScores(ctx context.Context) (domain.Outcome, error) {
	defer e.observe(stageChaos, time.Now())

	months, err := e.store.ListSummaries(ctx, domain.TimeframeMonth)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("update chaos scores: %w", err)
	}

	dims := make([]domain.Dimensions, len(months))
	for i, m := range months {
		dims[i] = domain.DimensionsOf(m.Total, m.Counts)
	}
	maxima := e.maxima.Maxima(dims)

	var out domain.Outcome
	for i, m := range months {
		score := domain.ChaosScore(dims[i], maxima)
		if err := e.store.SetChaosScore(ctx, m.NeighborhoodID, score); err != nil {
			e.logger.Warn("chaos score update failed", "neighborhood_id", m.NeighborhoodID, "error", err)
			out.Fail(fmt.Sprintf("neighborhood %d", m.NeighborhoodID), err)
			continue
		}
		out.Succeed()
	}
	e.count(stageChaos, out)
	e.logger.Debug("chaos scores updated", "neighborhoods", len(months), "maxima_policy", string(e.maxima))
	return out, nil
}

// RefreshReport summarizes a full refresh.
type RefreshReport struct {
	Daily    domain.Outcome `json:"daily"`
	Summary  domain.Outcome `json:"summary"`
	Chaos    domain.Outcome `json:"chaos"`
	// Total folds the three stages together.
	Total    domain.Outcome `json:"total"`
	Duration time.Duration  `json:"duration_ns"`
}

func (r *RefreshReport) finish(start time.Time) {
	r.Total = domain.Outcome{}
	r.Total.Merge(r.Daily)
	r.Total.Merge(r.Summary)
	r.Total.Merge(r.Chaos)
	r.Duration = time.Since(start)
}

// FullRefresh rebuilds yesterday's and today's daily counts, then the
// summaries, then the chaos scores. Yesterday is included so complaints
// ingested after midnight for the previous day are counted.
func (e *Engine) FullRefresh(ctx context.Context) (RefreshReport, error) {
	start := time.Now()
	today := e.Today()

	var report RefreshReport
	report.Daily = e.RefreshDailyRange(ctx, today.AddDate(0, 0, -1), today)

	summary, err := e.RefreshSummary(ctx)
	report.Summary = summary
	if err != nil {
		report.finish(start)
		if errors.Is(err, domain.ErrNoNeighborhoods) {
			e.logger.Error("aggregation skipped: no neighborhoods loaded")
		}
		return report, err
	}

	report.Chaos, err = e.UpdateChaosScores(ctx)
	report.finish(start)
	if err != nil {
		return report, err
	}

	e.logger.Info("aggregation completed",
		"daily_failed", report.Daily.Failed,
		"summary_failed", report.Summary.Failed,
		"chaos_failed", report.Chaos.Failed,
		"units_succeeded", report.Total.Succeeded,
		"duration", report.Duration,
	)
	return report, nil
}

// RefreshRecent rebuilds the daily counts of the last days calendar days,
// today included.
func (e *Engine) RefreshRecent(ctx context.Context, days int) domain.Outcome {
	if days <= 0 {
		days = 1
	}
	today := e.Today()
	return e.RefreshDailyRange(ctx, today.AddDate(0, 0, -(days-1)), today)
}

func (e *Engine) observe(stage string, start time.Time) {
	e.metrics.AggregateDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (e *Engine) count(stage string, o domain.Outcome) {
	e.metrics.AggregateUnits.WithLabelValues(stage, "succeeded").Add(float64(o.Succeeded))
	e.metrics.AggregateUnits.WithLabelValues(stage, "failed").Add(float64(o.Failed))
}
