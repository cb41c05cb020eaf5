package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

const (
	defaultNearbyRadius = 500
	maxNearbyRadius     = 2000
	defaultNearbyLimit  = 50
	maxNearbyLimit      = 100

	// nearbyLookbackDays bounds how far back nearby complaints are searched.
	nearbyLookbackDays = 30
	// nearbyCandidates caps the bounding-box scan before distance filtering.
	nearbyCandidates = 5000
)

// NearbyRequest is a point query. Radius is in meters, default 500 and capped
// at 2000; Limit defaults to 50 and is capped at 100.
type NearbyRequest struct {
	Lat    float64
	Lon    float64
	Radius int
	Limit  int
}

// NearbyItem is one complaint near the query point.
type NearbyItem struct {
	ID               string          `json:"id"`
	Category         domain.Category `json:"category"`
	Type             string          `json:"type"`
	Description      *string         `json:"description,omitempty"`
	CreatedAt        string          `json:"created_at"`
	DistanceMeters   int             `json:"distance_meters"`
	NeighborhoodName string          `json:"neighborhood,omitempty"`
}

// NearbySummary aggregates the returned complaints.
type NearbySummary struct {
	Total             int                     `json:"total"`
	RadiusMeters      int                     `json:"radius_meters"`
	AnnoyanceScore    int                     `json:"annoyance_score"`
	CategoryBreakdown map[domain.Category]int `json:"category_breakdown"`
}

// Location echoes the query point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Nearby is the response to a point query.
type Nearby struct {
	Complaints []NearbyItem  `json:"complaints"`
	Summary    NearbySummary `json:"summary"`
	Location   Location      `json:"location"`
}

// Nearby lists the complaints of the last 30 days within the radius of a
// point, nearest first, with a category breakdown and annoyance score.
// Points outside the city return domain.ErrOutsideNYC.
func (s *Service) Nearby(ctx context.Context, req NearbyRequest) (Nearby, error) {
	if !domain.InNYC(req.Lat, req.Lon) {
		return Nearby{}, domain.ErrOutsideNYC
	}
	radius := clamp(req.Radius, defaultNearbyRadius, maxNearbyRadius)
	limit := clamp(req.Limit, defaultNearbyLimit, maxNearbyLimit)

	key := fmt.Sprintf("nearby:%.4f:%.4f:%d:%d", req.Lat, req.Lon, radius, limit)
	return cached(ctx, s, key, func() (Nearby, error) {
		now := domain.Now()
		since := now.AddDate(0, 0, -nearbyLookbackDays)
		minLat, maxLat, minLon, maxLon := domain.BoundingBox(req.Lat, req.Lon, float64(radius))

		candidates, err := s.store.ComplaintsInBox(ctx, minLat, maxLat, minLon, maxLon, since, nearbyCandidates)
		if err != nil {
			return Nearby{}, fmt.Errorf("nearby: %w", err)
		}

		var within []domain.NearbyComplaint
		for _, c := range candidates {
			if !c.HasLocation() {
				continue
			}
			d := domain.Haversine(req.Lat, req.Lon, *c.Latitude, *c.Longitude)
			if d <= float64(radius) {
				within = append(within, domain.NearbyComplaint{Complaint: c, DistanceMeters: d})
			}
		}
		sort.SliceStable(within, func(i, j int) bool {
			return within[i].DistanceMeters < within[j].DistanceMeters
		})
		if len(within) > limit {
			within = within[:limit]
		}

		names, err := s.neighborhoodsByID(ctx)
		if err != nil {
			return Nearby{}, fmt.Errorf("nearby: %w", err)
		}

		out := Nearby{
			Complaints: make([]NearbyItem, len(within)),
			Summary: NearbySummary{
				Total:             len(within),
				RadiusMeters:      radius,
				AnnoyanceScore:    domain.AnnoyanceScore(within, now),
				CategoryBreakdown: make(map[domain.Category]int),
			},
			Location: Location{Lat: req.Lat, Lon: req.Lon},
		}
		for i, c := range within {
			item := NearbyItem{
				ID:             c.ID,
				Category:       c.Category,
				Type:           c.ComplaintType,
				Description:    c.Descriptor,
				CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
				DistanceMeters: int(math.Round(c.DistanceMeters)),
			}
			if c.NeighborhoodID != nil {
				item.NeighborhoodName = names[*c.NeighborhoodID].Name
			}
			out.Complaints[i] = item
			out.Summary.CategoryBreakdown[c.Category]++
		}
		return out, nil
	})
}
