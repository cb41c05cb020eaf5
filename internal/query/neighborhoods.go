package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// NeighborhoodRef is a directory entry within a borough.
type NeighborhoodRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Directory lists neighborhoods flat and grouped by borough.
type Directory struct {
	Neighborhoods []domain.Neighborhood        `json:"neighborhoods"`
	ByBorough     map[string][]NeighborhoodRef `json:"by_borough"`
	Boroughs      []string                     `json:"boroughs"`
}

// Neighborhoods lists neighborhoods, optionally limited to one borough and to
// names containing search.
func (s *Service) Neighborhoods(ctx context.Context, borough, search string) (Directory, error) {
	key := fmt.Sprintf("neighborhoods:%s:%s", strings.ToUpper(borough), strings.ToLower(search))
	return cached(ctx, s, key, func() (Directory, error) {
		list, err := s.store.ListNeighborhoods(ctx, borough, search)
		if err != nil {
			return Directory{}, fmt.Errorf("neighborhoods: %w", err)
		}

		dir := Directory{
			Neighborhoods: list,
			ByBorough:     make(map[string][]NeighborhoodRef),
			Boroughs:      []string{},
		}
		for _, n := range list {
			if _, seen := dir.ByBorough[n.Borough]; !seen {
				dir.Boroughs = append(dir.Boroughs, n.Borough)
			}
			dir.ByBorough[n.Borough] = append(dir.ByBorough[n.Borough], NeighborhoodRef{ID: n.ID, Name: n.Name})
		}
		sort.Strings(dir.Boroughs)
		return dir, nil
	})
}
