package store

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// CreateRun records the start of an ETL run.
func (s *Store) CreateRun(ctx context.Context, startedAt time.Time) (domain.EtlRun, error) {
	row := EtlRun{StartedAt: startedAt.UTC(), Status: string(domain.RunStatusRunning)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.EtlRun{}, fmt.Errorf("create etl run: %w", err)
	}
	return row.toDomain(), nil
}

// CompleteRun marks a run completed and records its watermark.
func (s *Store) CompleteRun(ctx context.Context, id string, completedAt time.Time, fetched, inserted int, watermark time.Time) error {
	return s.finishRun(ctx, id, map[string]any{
		"status":              string(domain.RunStatusCompleted),
		"completed_at":        completedAt.UTC(),
		"records_fetched":     fetched,
		"records_inserted":    inserted,
		"last_complaint_date": watermark.UTC(),
	})
}

// FailRun marks a run failed. The watermark columns are left untouched.
func (s *Store) FailRun(ctx context.Context, id string, completedAt time.Time, message string) error {
	return s.finishRun(ctx, id, map[string]any{
		"status":        string(domain.RunStatusFailed),
		"completed_at":  completedAt.UTC(),
		"error_message": message,
	})
}

func (s *Store) finishRun(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&EtlRun{}).
		Where("id = ? AND status = ?", id, string(domain.RunStatusRunning)).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("finish etl run %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finish etl run %s: no running run: %w", id, domain.ErrNotFound)
	}
	return nil
}

// LastWatermark returns the highest last_complaint_date over completed runs,
// or nil when no run has completed yet. Overlapping runs may complete out of
// order, so the latest completion is not necessarily the furthest cursor.
func (s *Store) LastWatermark(ctx context.Context) (*time.Time, error) {
	var runs []EtlRun
	err := s.db.WithContext(ctx).
		Where("status = ? AND last_complaint_date IS NOT NULL", string(domain.RunStatusCompleted)).
		Order("last_complaint_date DESC").
		Limit(1).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("last watermark: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return utcPtr(runs[0].LastComplaintDate), nil
}

// RecentRuns lists the latest runs, newest first. Runs started at the same
// instant are ordered by completion, then by ID.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]domain.EtlRun, error) {
	var rows []EtlRun
	if err := s.db.WithContext(ctx).Order("started_at DESC, completed_at DESC, id").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	out := make([]domain.EtlRun, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}
