package aggregate_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/complaint-club-etl/internal/aggregate"
	"github.com/couchcryptid/complaint-club-etl/internal/domain"
	"github.com/couchcryptid/complaint-club-etl/internal/observability"
	"github.com/couchcryptid/complaint-club-etl/internal/store"
	"github.com/couchcryptid/complaint-club-etl/internal/store/storetest"
)

// now is noon on 2025-01-15 in New York.
var now = time.Date(2025, 1, 15, 17, 0, 0, 0, time.UTC)

var today = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func newEngine(t *testing.T, st aggregate.Store, policy domain.MaximaPolicy) *aggregate.Engine {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return aggregate.NewEngine(st, newYork(t), policy, 4, logger, observability.NewMetricsForTesting())
}

// seed stores a small month of complaints:
//
//	Astoria      3 noise today
//	Bushwick     3 rats today
//	Chelsea      1 trash ten days ago
//	Williamsburg nothing
func seed(t *testing.T, s *store.Store) {
	t.Helper()
	storetest.SeedNeighborhoods(t, s)
	storetest.InsertComplaints(t, s,
		storetest.Complaint("a1", 1, domain.CategoryNoise, now.Add(-1*time.Hour)),
		storetest.Complaint("a2", 1, domain.CategoryNoise, now.Add(-2*time.Hour)),
		storetest.Complaint("a3", 1, domain.CategoryNoise, now.Add(-3*time.Hour)),
		storetest.Complaint("b1", 2, domain.CategoryRats, now.Add(-1*time.Hour)),
		storetest.Complaint("b2", 2, domain.CategoryRats, now.Add(-2*time.Hour)),
		storetest.Complaint("b3", 2, domain.CategoryRats, now.Add(-3*time.Hour)),
		storetest.Complaint("c1", 3, domain.CategoryTrash, now.AddDate(0, 0, -10)),
		storetest.Complaint("u1", 0, domain.CategoryNoise, now.Add(-1*time.Hour)),
	)
}

func summariesByID(t *testing.T, s *store.Store, tf domain.Timeframe) map[int64]domain.AggregateSummary {
	t.Helper()
	rows, err := s.ListSummaries(context.Background(), tf)
	require.NoError(t, err)
	out := make(map[int64]domain.AggregateSummary, len(rows))
	for _, r := range rows {
		out[r.NeighborhoodID] = r
	}
	return out
}

func TestRefreshDaily_CountsLocalCalendarDay(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaRelative)
	storetest.SeedNeighborhoods(t, s)

	// 03:00 UTC on the 15th is 22:00 on the 14th in New York.
	storetest.InsertComplaints(t, s,
		storetest.Complaint("late", 1, domain.CategoryNoise, time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)),
		storetest.Complaint("early", 1, domain.CategoryNoise, time.Date(2025, 1, 15, 6, 0, 0, 0, time.UTC)),
	)

	ctx := context.Background()
	require.NoError(t, e.RefreshDaily(ctx, today.AddDate(0, 0, -1)))
	require.NoError(t, e.RefreshDaily(ctx, today))

	trend, err := s.DailyTrend(ctx, 1, today.AddDate(0, 0, -1), today)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.Equal(t, today.AddDate(0, 0, -1), trend[0].Date)
	assert.Equal(t, 1, trend[0].Count)
	assert.Equal(t, today, trend[1].Date)
	assert.Equal(t, 1, trend[1].Count)
}

func TestRefreshDaily_RebuildReplacesCounts(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaRelative)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, e.RefreshDaily(ctx, today))
	require.NoError(t, e.RefreshDaily(ctx, today))

	trend, err := s.DailyTrend(ctx, 1, today, today)
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, 3, trend[0].Count, "rebuilding twice must not double count")

	storetest.InsertComplaints(t, s, storetest.Complaint("a4", 1, domain.CategoryNoise, now))
	require.NoError(t, e.RefreshDaily(ctx, today))

	trend, err = s.DailyTrend(ctx, 1, today, today)
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, 4, trend[0].Count)
}

func TestRefreshDailyRange_CoversEveryDay(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaRelative)
	seed(t, s)

	out := e.RefreshDailyRange(context.Background(), today.AddDate(0, 0, -29), today)
	assert.Equal(t, 30, out.Succeeded)
	assert.Zero(t, out.Failed)

	sums, err := s.SumDaily(context.Background(), today.AddDate(0, 0, -29), today)
	require.NoError(t, err)
	total := 0
	for _, c := range sums {
		total += c.Count
	}
	assert.Equal(t, 7, total, "unresolved complaints are not aggregated")
}

func TestRefreshSummary_RanksEveryNeighborhood(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaRelative)
	seed(t, s)
	ctx := context.Background()

	e.RefreshDailyRange(ctx, today.AddDate(0, 0, -89), today)
	out, err := e.RefreshSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Succeeded)

	for _, tf := range domain.Timeframes {
		assert.Len(t, summariesByID(t, s, tf), 4, "every neighborhood has a %s row", tf)
	}

	todayRows := summariesByID(t, s, domain.TimeframeToday)
	assert.Equal(t, 1, todayRows[1].RankInCity)
	assert.Equal(t, 1, todayRows[2].RankInCity, "equal totals share a rank")
	assert.Equal(t, 2, todayRows[3].RankInCity)
	assert.Equal(t, 2, todayRows[4].RankInCity)
	assert.Zero(t, todayRows[3].Total)

	month := summariesByID(t, s, domain.TimeframeMonth)
	assert.Equal(t, 3, month[1].Total)
	assert.Equal(t, 3, month[1].Counts.Noise)
	assert.Equal(t, 3, month[2].Counts.Rats)
	assert.Equal(t, 1, month[3].Total)
	assert.Equal(t, 1, month[3].Counts.Trash)
	assert.Equal(t, 2, month[3].RankInCity)
	assert.Equal(t, 3, month[4].RankInCity)

	week := summariesByID(t, s, domain.TimeframeWeek)
	assert.Zero(t, week[3].Total, "ten days ago is outside the week")

	for _, tf := range domain.Timeframes {
		for id, row := range summariesByID(t, s, tf) {
			assert.Equal(t, row.Counts.Total(), row.Total, "neighborhood %d %s total is the sum of its categories", id, tf)
		}
	}
}

func TestRefreshSummary_NoNeighborhoods(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaRelative)

	_, err := e.RefreshSummary(context.Background())
	require.ErrorIs(t, err, domain.ErrNoNeighborhoods)

	_, err = e.FullRefresh(context.Background())
	require.ErrorIs(t, err, domain.ErrNoNeighborhoods)
}

func TestUpdateChaosScores_Relative(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaRelative)
	seed(t, s)
	ctx := context.Background()

	e.RefreshDailyRange(ctx, today.AddDate(0, 0, -29), today)
	_, err := e.RefreshSummary(ctx)
	require.NoError(t, err)
	out, err := e.UpdateChaosScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Succeeded)

	// Month maxima: total 3, noise 3, rats 3, trash 1, parking 1.
	want := map[int64]int{1: 70, 2: 65, 3: 22, 4: 0}
	for _, tf := range domain.Timeframes {
		rows := summariesByID(t, s, tf)
		for id, score := range want {
			assert.Equal(t, score, rows[id].ChaosScore, "neighborhood %d %s", id, tf)
		}
	}
}

func TestUpdateChaosScores_Fixed(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaFixed)
	seed(t, s)
	ctx := context.Background()

	e.RefreshDailyRange(ctx, today.AddDate(0, 0, -29), today)
	_, err := e.RefreshSummary(ctx)
	require.NoError(t, err)
	_, err = e.UpdateChaosScores(ctx)
	require.NoError(t, err)

	month := summariesByID(t, s, domain.TimeframeMonth)
	assert.Zero(t, month[1].ChaosScore, "small counts round to zero against fixed maxima")
}

func TestRefreshSummary_KeepsChaosScore(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaRelative)
	seed(t, s)
	ctx := context.Background()

	_, err := e.FullRefresh(ctx)
	require.NoError(t, err)
	before := summariesByID(t, s, domain.TimeframeMonth)[1].ChaosScore
	require.Positive(t, before)

	_, err = e.RefreshSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, summariesByID(t, s, domain.TimeframeMonth)[1].ChaosScore)
}

func TestFullRefresh_Idempotent(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaRelative)
	seed(t, s)
	ctx := context.Background()

	first, err := e.FullRefresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Daily.Succeeded)
	assert.Equal(t, 4, first.Summary.Succeeded)
	assert.Equal(t, 4, first.Chaos.Succeeded)
	assert.Equal(t, 10, first.Total.Succeeded)
	assert.Zero(t, first.Total.Failed)
	rows := summariesByID(t, s, domain.TimeframeToday)

	_, err = e.FullRefresh(ctx)
	require.NoError(t, err)
	again := summariesByID(t, s, domain.TimeframeToday)
	for id, r := range rows {
		assert.Equal(t, r.Total, again[id].Total)
		assert.Equal(t, r.RankInCity, again[id].RankInCity)
		assert.Equal(t, r.ChaosScore, again[id].ChaosScore)
	}
}

func TestRefreshRecent(t *testing.T) {
	s := storetest.New(t)
	e := newEngine(t, s, domain.MaximaRelative)
	seed(t, s)

	assert.Equal(t, 7, e.RefreshRecent(context.Background(), 7).Succeeded)
	assert.Equal(t, 1, e.RefreshRecent(context.Background(), 0).Succeeded)
}

type flakyStore struct {
	*store.Store
	failUpsert int64
	failChaos  int64
}

func (f *flakyStore) UpsertSummaries(ctx context.Context, rows []domain.AggregateSummary) error {
	if len(rows) > 0 && rows[0].NeighborhoodID == f.failUpsert {
		return errors.New("deadlock detected")
	}
	return f.Store.UpsertSummaries(ctx, rows)
}

func (f *flakyStore) SetChaosScore(ctx context.Context, id int64, score int) error {
	if id == f.failChaos {
		return errors.New("connection reset")
	}
	return f.Store.SetChaosScore(ctx, id, score)
}

func TestFullRefresh_PartialFailures(t *testing.T) {
	s := storetest.New(t)
	seed(t, s)
	e := newEngine(t, &flakyStore{Store: s, failUpsert: 3, failChaos: 2}, domain.MaximaRelative)

	report, err := e.FullRefresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.Succeeded)
	assert.Equal(t, 1, report.Summary.Failed)
	require.Len(t, report.Summary.Failures, 1)
	assert.Equal(t, "neighborhood 3", report.Summary.Failures[0].Unit)

	assert.Equal(t, 2, report.Chaos.Succeeded, "neighborhood 3 has no rows to score")
	assert.Equal(t, 1, report.Chaos.Failed)
	assert.Equal(t, "neighborhood 2", report.Chaos.Failures[0].Unit)

	assert.Equal(t, 2, report.Total.Failed)
	assert.Len(t, report.Total.Failures, 2)

	assert.Len(t, summariesByID(t, s, domain.TimeframeMonth), 3)
}
