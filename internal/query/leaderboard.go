package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
)

// allCategories selects the overall leaderboard.
const allCategories = "all"

// LeaderboardEntry is one ranked neighborhood.
type LeaderboardEntry struct {
	Rank             int                   `json:"rank"`
	NeighborhoodID   int64                 `json:"neighborhood_id"`
	NeighborhoodName string                `json:"neighborhood_name"`
	Borough          string                `json:"borough"`
	Total            int                   `json:"total"`
	Count            int                   `json:"count"`
	ChaosScore       int                   `json:"chaos_score"`
	CategoryCounts   domain.CategoryCounts `json:"category_counts"`
}

// Leaderboard is a ranked list of neighborhoods for one timeframe and
// category.
type Leaderboard struct {
	Timeframe domain.Timeframe   `json:"timeframe"`
	Category  string             `json:"category"`
	Entries   []LeaderboardEntry `json:"entries"`
}

// LeaderboardRequest selects a leaderboard. Timeframe defaults to month. An
// empty Category or "all" ranks by total. Limit defaults to 50 and is capped
// at 100.
type LeaderboardRequest struct {
	Timeframe domain.Timeframe
	Category  string
	Limit     int
}

// Leaderboard ranks neighborhoods. The overall board uses the stored city
// rank; a category board dense-ranks by that category's count, ties broken by
// neighborhood ID. Count is the ranked value in both cases.
func (s *Service) Leaderboard(ctx context.Context, req LeaderboardRequest) (Leaderboard, error) {
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		category = allCategories
	}
	var cat domain.Category
	if category != allCategories {
		parsed, err := domain.ParseCategory(category)
		if err != nil {
			return Leaderboard{}, err
		}
		cat = parsed
	}
	if req.Timeframe == "" {
		req.Timeframe = domain.TimeframeMonth
	}
	limit := clamp(req.Limit, defaultLeaderboardLimit, maxLeaderboardLimit)

	key := fmt.Sprintf("leaderboard:%s:%s:%d", req.Timeframe, category, limit)
	return cached(ctx, s, key, func() (Leaderboard, error) {
		rows, err := s.store.ListSummaries(ctx, req.Timeframe)
		if err != nil {
			return Leaderboard{}, fmt.Errorf("leaderboard: %w", err)
		}
		names, err := s.neighborhoodsByID(ctx)
		if err != nil {
			return Leaderboard{}, fmt.Errorf("leaderboard: %w", err)
		}

		ranks := make(map[int64]int, len(rows))
		if cat == "" {
			for _, r := range rows {
				ranks[r.NeighborhoodID] = r.RankInCity
			}
		} else {
			entries := make([]domain.RankEntry, len(rows))
			for i, r := range rows {
				entries[i] = domain.RankEntry{NeighborhoodID: r.NeighborhoodID, Value: r.Counts.Get(cat)}
			}
			for _, e := range domain.DenseRank(entries) {
				ranks[e.NeighborhoodID] = e.Rank
			}
		}

		board := Leaderboard{Timeframe: req.Timeframe, Category: category, Entries: make([]LeaderboardEntry, 0, len(rows))}
		for _, r := range rows {
			n := names[r.NeighborhoodID]
			count := r.Total
			if cat != "" {
				count = r.Counts.Get(cat)
			}
			board.Entries = append(board.Entries, LeaderboardEntry{
				Rank:             ranks[r.NeighborhoodID],
				NeighborhoodID:   r.NeighborhoodID,
				NeighborhoodName: n.Name,
				Borough:          n.Borough,
				Total:            r.Total,
				Count:            count,
				ChaosScore:       r.ChaosScore,
				CategoryCounts:   r.Counts,
			})
		}
		sort.SliceStable(board.Entries, func(i, j int) bool {
			a, b := board.Entries[i], board.Entries[j]
			if a.Rank != b.Rank {
				return a.Rank < b.Rank
			}
			return a.NeighborhoodID < b.NeighborhoodID
		})
		if len(board.Entries) > limit {
			board.Entries = board.Entries[:limit]
		}
		return board, nil
	})
}
