package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// UpsertNeighborhoods loads reference neighborhoods keyed by NTA code.
func (s *Store) UpsertNeighborhoods(ctx context.Context, neighborhoods []domain.Neighborhood) error {
	if len(neighborhoods) == 0 {
		return nil
	}
	rows := make([]Neighborhood, len(neighborhoods))
	for i, n := range neighborhoods {
		rows[i] = Neighborhood{ID: n.ID, Name: n.Name, Borough: n.Borough, NTACode: n.NTACode}
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "nta_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "borough"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert neighborhoods: %w", err)
	}
	return nil
}

// NeighborhoodIDs lists every neighborhood ID in ascending order.
func (s *Store) NeighborhoodIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&Neighborhood{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("neighborhood ids: %w", err)
	}
	return ids, nil
}

// Neighborhood looks up one neighborhood. Missing IDs return domain.ErrNotFound.
func (s *Store) Neighborhood(ctx context.Context, id int64) (domain.Neighborhood, error) {
	var row Neighborhood
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Neighborhood{}, fmt.Errorf("neighborhood %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Neighborhood{}, fmt.Errorf("neighborhood %d: %w", id, err)
	}
	return row.toDomain(), nil
}

// ListNeighborhoods returns neighborhoods ordered by borough then name. An
// empty borough or search matches everything; search is a case-insensitive
// substring of the name.
func (s *Store) ListNeighborhoods(ctx context.Context, borough, search string) ([]domain.Neighborhood, error) {
	q := s.db.WithContext(ctx).Model(&Neighborhood{}).Order("borough, name")
	if borough != "" {
		q = q.Where("UPPER(borough) = ?", strings.ToUpper(borough))
	}
	if search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var rows []Neighborhood
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list neighborhoods: %w", err)
	}
	out := make([]domain.Neighborhood, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
