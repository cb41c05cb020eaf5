// Package pipeline ingests 311 complaints from the upstream dataset into the
// store: incremental watermark runs, historical backfills, and
// recategorization of stored rows.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
	"github.com/couchcryptid/complaint-club-etl/internal/observability"
)

// Source reads 311 records from the upstream dataset.
type Source interface {
	FetchSince(ctx context.Context, since time.Time, limit int) ([]domain.UpstreamRecord, error)
	FetchRange(ctx context.Context, q domain.RangeQuery) ([]domain.UpstreamRecord, error)
}

// Store persists complaints and ETL run bookkeeping.
type Store interface {
	InsertComplaint(ctx context.Context, c domain.Complaint) (bool, error)
	ListComplaintCategories(ctx context.Context, onlyOther bool, limit int) ([]domain.ComplaintCategory, error)
	UpdateCategory(ctx context.Context, id string, c domain.Category) error

	CreateRun(ctx context.Context, startedAt time.Time) (domain.EtlRun, error)
	CompleteRun(ctx context.Context, id string, completedAt time.Time, fetched, inserted int, watermark time.Time) error
	FailRun(ctx context.Context, id string, completedAt time.Time, message string) error
	LastWatermark(ctx context.Context) (*time.Time, error)
}

// Resolver maps a coordinate to the neighborhood containing it.
type Resolver interface {
	Resolve(ctx context.Context, lat, lon float64) (*int64, error)
}

// Publisher announces newly inserted complaints downstream.
type Publisher interface {
	PublishBatch(ctx context.Context, complaints []domain.Complaint) error
}

// Options tunes a Pipeline. Zero values take the documented defaults.
type Options struct {
	Resolver   Resolver  // nil leaves every complaint without a neighborhood
	Publisher  Publisher // nil disables publishing
	Location   *time.Location
	FetchLimit int           // records per incremental run, default 10000
	BatchSize  int           // concurrent record loads, default 500
	Lookback   time.Duration // first-run window, default 7 days
}

// Pipeline orchestrates extract, classify, resolve and load.
type Pipeline struct {
	source     Source
	store      Store
	resolver   Resolver
	publisher  Publisher
	loc        *time.Location
	fetchLimit int
	batchSize  int
	lookback   time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(src Source, st Store, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	p := &Pipeline{
		source:     src,
		store:      st,
		resolver:   opts.Resolver,
		publisher:  opts.Publisher,
		loc:        opts.Location,
		fetchLimit: opts.FetchLimit,
		batchSize:  opts.BatchSize,
		lookback:   opts.Lookback,
		logger:     logger,
		metrics:    metrics,
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.fetchLimit <= 0 {
		p.fetchLimit = 10000
	}
	if p.batchSize <= 0 {
		p.batchSize = 500
	}
	if p.lookback <= 0 {
		p.lookback = 7 * 24 * time.Hour
	}
	return p
}
