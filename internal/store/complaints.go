package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// InsertComplaint stores c unless a complaint with the same ID already exists.
// inserted is false for such duplicates; that is not an error.
func (s *Store) InsertComplaint(ctx context.Context, c domain.Complaint) (inserted bool, err error) {
	row := complaintFromDomain(c)
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("insert complaint %s: %w", c.ID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListComplaintCategories returns up to limit stored complaints with their
// current category, optionally only those filed under other.
func (s *Store) ListComplaintCategories(ctx context.Context, onlyOther bool, limit int) ([]domain.ComplaintCategory, error) {
	var rows []Complaint
	q := s.db.WithContext(ctx).Model(&Complaint{}).Select("id", "complaint_type", "category").Order("id").Limit(limit)
	if onlyOther {
		q = q.Where("category = ?", string(domain.CategoryOther))
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list complaint categories: %w", err)
	}

	out := make([]domain.ComplaintCategory, len(rows))
	for i, r := range rows {
		out[i] = domain.ComplaintCategory{ID: r.ID, ComplaintType: r.ComplaintType, Category: domain.Category(r.Category)}
	}
	return out, nil
}

// UpdateCategory rewrites the category of one complaint.
func (s *Store) UpdateCategory(ctx context.Context, id string, c domain.Category) error {
	res := s.db.WithContext(ctx).Model(&Complaint{}).Where("id = ?", id).Update("category", string(c))
	if res.Error != nil {
		return fmt.Errorf("update category of %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update category of %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ComplaintsInBox returns complaints created at or after since whose
// coordinates fall inside the box, newest first.
func (s *Store) ComplaintsInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64, since time.Time, limit int) ([]domain.Complaint, error) {
	var rows []Complaint
	err := s.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLon, maxLon).
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("complaints in box: %w", err)
	}

	out := make([]domain.Complaint, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// TypeCount is the number of stored complaints with one complaint type.
type TypeCount struct {
	ComplaintType string `json:"complaint_type"`
	Count         int64  `json:"count"`
}

// OtherTypeCounts lists the complaint types currently filed under other, most
// frequent first. It shows which keywords the classifier is missing.
func (s *Store) OtherTypeCounts(ctx context.Context, limit int) ([]TypeCount, error) {
	var rows []TypeCount
	err := s.db.WithContext(ctx).Model(&Complaint{}).
		Select("complaint_type, COUNT(*) AS count").
		Where("category = ?", string(domain.CategoryOther)).
		Group("complaint_type").
		Order("count DESC, complaint_type").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("other type counts: %w", err)
	}
	return rows, nil
}
