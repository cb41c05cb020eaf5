package query

import (
	"context"
	"fmt"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// TopCategory is the most reported category of a neighborhood's month.
type TopCategory struct {
	Category domain.Category `json:"category"`
	Count    int             `json:"count"`
}

// NeighborhoodDetail is the full profile of one neighborhood.
type NeighborhoodDetail struct {
	ID          int64                                      `json:"id"`
	Name        string                                     `json:"name"`
	Borough     string                                     `json:"borough"`
	ChaosScore  int                                        `json:"chaos_score"`
	ChaosLabel  string                                     `json:"chaos_label"`
	TopCategory *TopCategory                               `json:"top_category,omitempty"`
	Stats       map[domain.Timeframe]domain.TimeframeStats `json:"stats"`
	Trend       []domain.DailyCount                        `json:"trend"`
	Insights    []string                                   `json:"insights"`
}

// NeighborhoodDetail returns per-timeframe stats, the month's top category, a
// 30-day daily trend and insights for one neighborhood. Unknown IDs return
// domain.ErrNotFound.
func (s *Service) NeighborhoodDetail(ctx context.Context, id int64) (NeighborhoodDetail, error) {
	return cached(ctx, s, fmt.Sprintf("neighborhood:%d", id), func() (NeighborhoodDetail, error) {
		n, err := s.store.Neighborhood(ctx, id)
		if err != nil {
			return NeighborhoodDetail{}, err
		}
		rows, err := s.store.NeighborhoodSummaries(ctx, id)
		if err != nil {
			return NeighborhoodDetail{}, fmt.Errorf("neighborhood detail: %w", err)
		}

		d := NeighborhoodDetail{
			ID:      n.ID,
			Name:    n.Name,
			Borough: n.Borough,
			Stats:   make(map[domain.Timeframe]domain.TimeframeStats, len(rows)),
		}
		for _, r := range rows {
			d.Stats[r.Timeframe] = domain.TimeframeStats{Total: r.Total, Counts: r.Counts, Rank: r.RankInCity}
			d.ChaosScore = r.ChaosScore
		}
		d.ChaosLabel = domain.ChaosDescriptor(d.ChaosScore)

		if month, ok := d.Stats[domain.TimeframeMonth]; ok {
			if cat, count, ok := month.Counts.Top(); ok {
				d.TopCategory = &TopCategory{Category: cat, Count: count}
			}
		}

		from, to := domain.TimeframeMonth.Window(domain.Today(s.loc))
		d.Trend, err = s.store.DailyTrend(ctx, id, from, to)
		if err != nil {
			return NeighborhoodDetail{}, fmt.Errorf("neighborhood detail: %w", err)
		}

		d.Insights = domain.Insights(n.Name, d.Stats)
		if d.Insights == nil {
			d.Insights = []string{}
		}
		return d, nil
	})
}

// CompareSide is one neighborhood's figures in a comparison.
type CompareSide struct {
	ID             int64                 `json:"id"`
	Name           string                `json:"name"`
	Borough        string                `json:"borough"`
	Total          int                   `json:"total"`
	ChaosScore     int                   `json:"chaos_score"`
	Rank           int                   `json:"rank"`
	CategoryCounts domain.CategoryCounts `json:"category_counts"`
}

// Comparison is a head-to-head of two neighborhoods over one timeframe.
type Comparison struct {
	Timeframe       domain.Timeframe                `json:"timeframe"`
	Left            CompareSide                     `json:"left"`
	Right           CompareSide                     `json:"right"`
	Winner          domain.Side                     `json:"winner"`
	CategoryWinners map[domain.Category]domain.Side `json:"category_winners"`
}

// Compare puts two neighborhoods side by side. The side with more complaints
// wins, overall and per category. Either ID being unknown returns
// domain.ErrNotFound.
func (s *Service) Compare(ctx context.Context, left, right int64, tf domain.Timeframe) (Comparison, error) {
	if tf == "" {
		tf = domain.TimeframeMonth
	}
	return cached(ctx, s, fmt.Sprintf("compare:%d:%d:%s", left, right, tf), func() (Comparison, error) {
		l, err := s.compareSide(ctx, left, tf)
		if err != nil {
			return Comparison{}, err
		}
		r, err := s.compareSide(ctx, right, tf)
		if err != nil {
			return Comparison{}, err
		}
		return Comparison{
			Timeframe:       tf,
			Left:            l,
			Right:           r,
			Winner:          domain.Winner(l.Total, r.Total),
			CategoryWinners: domain.CategoryWinners(l.CategoryCounts, r.CategoryCounts),
		}, nil
	})
}

func (s *Service) compareSide(ctx context.Context, id int64, tf domain.Timeframe) (CompareSide, error) {
	n, err := s.store.Neighborhood(ctx, id)
	if err != nil {
		return CompareSide{}, err
	}
	rows, err := s.store.NeighborhoodSummaries(ctx, id)
	if err != nil {
		return CompareSide{}, fmt.Errorf("compare: %w", err)
	}

	side := CompareSide{ID: n.ID, Name: n.Name, Borough: n.Borough}
	for _, r := range rows {
		side.ChaosScore = r.ChaosScore
		if r.Timeframe == tf {
			side.Total = r.Total
			side.Rank = r.RankInCity
			side.CategoryCounts = r.Counts
		}
	}
	return side, nil
}
