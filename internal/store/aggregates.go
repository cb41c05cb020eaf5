package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

type categoryCountRow struct {
	NeighborhoodID int64
	Category       string
	Count          int64
}

func (r categoryCountRow) toDomain() domain.CategoryCount {
	return domain.CategoryCount{NeighborhoodID: r.NeighborhoodID, Category: domain.Category(r.Category), Count: int(r.Count)}
}

// RebuildDaily replaces every aggregates_daily row of one calendar day with
// counts of the complaints created in [start, end). Complaints without a
// neighborhood are not counted. The delete and insert share one transaction so
// readers never see a partially rebuilt day. It returns the number of rows
// written.
func (s *Store) RebuildDaily(ctx context.Context, day, start, end time.Time) (int, error) {
	var written int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counts []categoryCountRow
		err := tx.Model(&Complaint{}).
			Select("neighborhood_id, category, COUNT(*) AS count").
			Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
			Where("neighborhood_id IS NOT NULL").
			Group("neighborhood_id, category").
			Scan(&counts).Error
		if err != nil {
			return fmt.Errorf("count complaints: %w", err)
		}

		if err := tx.Where("date = ?", day).Delete(&AggregateDaily{}).Error; err != nil {
			return fmt.Errorf("delete daily rows: %w", err)
		}
		if len(counts) == 0 {
			return nil
		}

		rows := make([]AggregateDaily, len(counts))
		for i, c := range counts {
			rows[i] = AggregateDaily{NeighborhoodID: c.NeighborhoodID, Date: day, Category: c.Category, Count: int(c.Count)}
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("insert daily rows: %w", err)
		}
		written = len(rows)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rebuild daily %s: %w", day.Format(time.DateOnly), err)
	}
	return written, nil
}

// SumDaily totals aggregates_daily per neighborhood and category over the
// calendar days from..to inclusive.
func (s *Store) SumDaily(ctx context.Context, from, to time.Time) ([]domain.CategoryCount, error) {
	var rows []categoryCountRow
	err := s.db.WithContext(ctx).Model(&AggregateDaily{}).
		Select("neighborhood_id, category, CAST(SUM(count) AS BIGINT) AS count").
		Where("date >= ? AND date <= ?", from, to).
		Group("neighborhood_id, category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum daily: %w", err)
	}
	out := make([]domain.CategoryCount, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// DailyTrend returns one neighborhood's daily counts over from..to inclusive,
// ordered by date then category.
func (s *Store) DailyTrend(ctx context.Context, neighborhoodID int64, from, to time.Time) ([]domain.DailyCount, error) {
	var rows []AggregateDaily
	err := s.db.WithContext(ctx).
		Where("neighborhood_id = ? AND date >= ? AND date <= ?", neighborhoodID, from, to).
		Order("date, category").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("daily trend %d: %w", neighborhoodID, err)
	}
	out := make([]domain.DailyCount, len(rows))
	for i, r := range rows {
		out[i] = domain.DailyCount{Date: r.Date.UTC(), Category: domain.Category(r.Category), Count: r.Count}
	}
	return out, nil
}

// summaryUpdateColumns are overwritten on conflict. chaos_score is absent so a
// summary refresh keeps the last computed score.
var summaryUpdateColumns = []string{
	"total", "rats", "noise", "parking", "trash", "heat_water",
	"construction", "building", "bikes", "other", "rank_in_city", "updated_at",
}

// UpsertSummaries writes one neighborhood's summary rows in a single statement.
func (s *Store) UpsertSummaries(ctx context.Context, summaries []domain.AggregateSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	rows := make([]AggregateSummary, len(summaries))
	for i, sum := range summaries {
		rows[i] = summaryFromDomain(sum)
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "neighborhood_id"}, {Name: "timeframe"}},
		DoUpdates: clause.AssignmentColumns(summaryUpdateColumns),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert summaries: %w", err)
	}
	return nil
}

// ListSummaries returns every summary row of one timeframe ordered by rank,
// then neighborhood ID.
func (s *Store) ListSummaries(ctx context.Context, tf domain.Timeframe) ([]domain.AggregateSummary, error) {
	var rows []AggregateSummary
	err := s.db.WithContext(ctx).
		Where("timeframe = ?", string(tf)).
		Order("rank_in_city, neighborhood_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s summaries: %w", tf, err)
	}
	out := make([]domain.AggregateSummary, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// NeighborhoodSummaries returns every timeframe row of one neighborhood.
func (s *Store) NeighborhoodSummaries(ctx context.Context, neighborhoodID int64) ([]domain.AggregateSummary, error) {
	var rows []AggregateSummary
	if err := s.db.WithContext(ctx).Where("neighborhood_id = ?", neighborhoodID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("summaries of %d: %w", neighborhoodID, err)
	}
	out := make([]domain.AggregateSummary, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// SetChaosScore writes score to every timeframe row of one neighborhood.
func (s *Store) SetChaosScore(ctx context.Context, neighborhoodID int64, score int) error {
	err := s.db.WithContext(ctx).Model(&AggregateSummary{}).
		Where("neighborhood_id = ?", neighborhoodID).
		Update("chaos_score", score).Error
	if err != nil {
		return fmt.Errorf("set chaos score of %d: %w", neighborhoodID, err)
	}
	return nil
}
