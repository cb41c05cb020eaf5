package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

type recordStatus int

const (
	recordInserted recordStatus = iota
	recordSkipped
	recordFailed
)

type recordResult struct {
	status    recordStatus
	complaint domain.Complaint
	parsed    bool
	err       error
}

// loadResult is the fan-in of one batch of records.
type loadResult struct {
	outcome  domain.Outcome
	inserted []domain.Complaint
	newest   time.Time // latest created_at among parsed records

	// beforeNewest is the latest created_at strictly before newest.
	beforeNewest time.Time
}

// loadRecords transforms, resolves and stores records with at most batchSize
// in flight. A failing record never cancels its siblings.
func (p *Pipeline) loadRecords(ctx context.Context, records []domain.UpstreamRecord) loadResult {
	results := make([]recordResult, len(records))

	var g errgroup.Group
	g.SetLimit(p.batchSize)
	for i, rec := range records {
		g.Go(func() error {
			results[i] = p.loadRecord(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	var out loadResult
	for i, r := range results {
		if r.parsed && r.complaint.CreatedAt.After(out.newest) {
			out.newest = r.complaint.CreatedAt
		}
		switch r.status {
		case recordInserted:
			out.outcome.Succeed()
			out.inserted = append(out.inserted, r.complaint)
		case recordSkipped:
			out.outcome.Skip()
		case recordFailed:
			out.outcome.Fail(recordUnit(records[i], i), r.err)
		}
	}

	for _, r := range results {
		if r.parsed && r.complaint.CreatedAt.Before(out.newest) && r.complaint.CreatedAt.After(out.beforeNewest) {
			out.beforeNewest = r.complaint.CreatedAt
		}
	}

	p.metrics.RecordsInserted.Add(float64(out.outcome.Succeeded))
	p.metrics.RecordsSkipped.Add(float64(out.outcome.Skipped))
	p.metrics.RecordFailures.Add(float64(out.outcome.Failed))
	return out
}

func (p *Pipeline) loadRecord(ctx context.Context, rec domain.UpstreamRecord) recordResult {
	c, err := ToComplaint(rec, p.loc)
	if err != nil {
		p.logger.Warn("transform failed, skipping record", "unique_key", rec.UniqueKey, "error", err)
		return recordResult{status: recordFailed, err: err}
	}

	c.NeighborhoodID = p.resolve(ctx, c)

	inserted, err := p.store.InsertComplaint(ctx, c)
	if err != nil {
		p.logger.Warn("insert failed", "complaint_id", c.ID, "error", err)
		return recordResult{status: recordFailed, complaint: c, parsed: true, err: err}
	}
	if !inserted {
		return recordResult{status: recordSkipped, complaint: c, parsed: true}
	}
	return recordResult{status: recordInserted, complaint: c, parsed: true}
}

// resolve looks up the complaint's neighborhood. Lookup errors leave the
// complaint unresolved instead of failing it.
func (p *Pipeline) resolve(ctx context.Context, c domain.Complaint) *int64 {
	if p.resolver == nil || !c.HasLocation() {
		return nil
	}
	id, err := p.resolver.Resolve(ctx, *c.Latitude, *c.Longitude)
	if err != nil {
		p.logger.Warn("neighborhood resolution failed", "complaint_id", c.ID, "error", err)
		return nil
	}
	return id
}

// publish hands newly inserted complaints to the publisher. Failures are
// logged and counted; the complaints are already stored.
func (p *Pipeline) publish(ctx context.Context, complaints []domain.Complaint) {
	if p.publisher == nil || len(complaints) == 0 {
		return
	}
	if err := p.publisher.PublishBatch(ctx, complaints); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("publish failed", "complaints", len(complaints), "error", err)
	}
}

func recordUnit(rec domain.UpstreamRecord, index int) string {
	if rec.UniqueKey != "" {
		return "complaint " + rec.UniqueKey
	}
	return fmt.Sprintf("record #%d", index)
}
