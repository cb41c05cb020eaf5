package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

const (
	defaultBackfillLimit = 50000
	maxBackfillLimit     = 50000
)

// BackfillRequest selects one page of historical records.
type BackfillRequest struct {
	Since  *time.Time `json:"since,omitempty"`
	Until  *time.Time `json:"until,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// BackfillResult summarizes one backfill page. HasMore means the page was
// full; request NextOffset to continue.
type BackfillResult struct {
	Fetched    int                  `json:"fetched"`
	Inserted   int                  `json:"inserted"`
	Skipped    int                  `json:"skipped"`
	Failed     int                  `json:"failed"`
	Failures   []domain.UnitFailure `json:"failures,omitempty"`
	HasMore    bool                 `json:"has_more"`
	NextOffset int                  `json:"next_offset"`
}

// Backfill loads one page of records from an explicit historical range. It
// creates no EtlRun and never moves the incremental watermark, so it is safe
// to run alongside scheduled ingestion.
func (p *Pipeline) Backfill(ctx context.Context, req BackfillRequest) (BackfillResult, error) {
	if req.Since != nil && req.Until != nil && req.Since.After(*req.Until) {
		return BackfillResult{}, fmt.Errorf("backfill: %w: since is after until", domain.ErrInvalidRequest)
	}
	if req.Offset < 0 {
		return BackfillResult{}, fmt.Errorf("backfill: %w: negative offset", domain.ErrInvalidRequest)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultBackfillLimit
	}
	limit = min(limit, maxBackfillLimit)

	records, err := p.source.FetchRange(ctx, domain.RangeQuery{Since: req.Since, Until: req.Until, Limit: limit, Offset: req.Offset})
	if err != nil {
		return BackfillResult{}, fmt.Errorf("backfill fetch: %w", err)
	}
	p.metrics.RecordsFetched.Add(float64(len(records)))

	loaded := p.loadRecords(ctx, records)
	p.publish(ctx, loaded.inserted)

	result := BackfillResult{
		Fetched:    len(records),
		Inserted:   loaded.outcome.Succeeded,
		Skipped:    loaded.outcome.Skipped,
		Failed:     loaded.outcome.Failed,
		Failures:   loaded.outcome.Failures,
		HasMore:    len(records) == limit,
		NextOffset: req.Offset + len(records),
	}
	p.logger.Info("backfill page loaded",
		"offset", req.Offset,
		"records_fetched", result.Fetched,
		"records_inserted", result.Inserted,
		"records_skipped", result.Skipped,
		"records_failed", result.Failed,
		"has_more", result.HasMore,
	)
	return result, nil
}
