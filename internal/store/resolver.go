package store

import (
	"context"
	"fmt"
)

// PostGISResolver maps a coordinate to the neighborhood whose boundary
// contains it.
type PostGISResolver struct {
	store *Store
}

// NewPostGISResolver creates a resolver over the neighborhoods.boundary column.
func NewPostGISResolver(s *Store) *PostGISResolver {
	return &PostGISResolver{store: s}
}

const containsPointSQL = `SELECT id FROM neighborhoods
WHERE ST_Contains(boundary, ST_SetSRID(ST_MakePoint(?, ?), 4326))
ORDER BY id
LIMIT 1`

// Resolve returns the containing neighborhood ID, or nil when the point lies
// outside every boundary.
func (r *PostGISResolver) Resolve(ctx context.Context, lat, lon float64) (*int64, error) {
	var ids []int64
	if err := r.store.db.WithContext(ctx).Raw(containsPointSQL, lon, lat).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("resolve neighborhood (%f, %f): %w", lat, lon, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &ids[0], nil
}
