// Package query serves the read side: leaderboards, neighborhood detail,
// comparisons, nearby complaints and the neighborhood directory. Every read
// comes from the aggregate tables except Nearby, which scans recent
// complaints. Responses may be cached; cache failures fall through to the
// store.
package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
	"github.com/couchcryptid/complaint-club-etl/internal/observability"
)

// Store is the read-only persistence the service queries.
type Store interface {
	ListSummaries(ctx context.Context, tf domain.Timeframe) ([]domain.AggregateSummary, error)
	NeighborhoodSummaries(ctx context.Context, neighborhoodID int64) ([]domain.AggregateSummary, error)
	Neighborhood(ctx context.Context, id int64) (domain.Neighborhood, error)
	ListNeighborhoods(ctx context.Context, borough, search string) ([]domain.Neighborhood, error)
	DailyTrend(ctx context.Context, neighborhoodID int64, from, to time.Time) ([]domain.DailyCount, error)
	ComplaintsInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64, since time.Time, limit int) ([]domain.Complaint, error)
}

// Cache stores serialized responses. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures a Service. A nil Cache disables caching.
type Options struct {
	Cache    Cache
	CacheTTL time.Duration
	Location *time.Location
}

// Service answers read queries.
type Service struct {
	store   Store
	cache   Cache
	ttl     time.Duration
	loc     *time.Location
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a query service.
func NewService(st Store, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		store:   st,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		loc:     opts.Location,
		logger:  logger,
		metrics: metrics,
	}
}

// cached returns the value stored under key, or loads, stores and returns it.
// Errors from load are never cached.
func cached[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	if s.cache == nil {
		return load()
	}

	b, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.QueryCache.WithLabelValues("error").Inc()
		s.logger.Debug("query cache read failed", "key", key, "error", err)
	case ok:
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			s.metrics.QueryCache.WithLabelValues("hit").Inc()
			return v, nil
		}
		s.metrics.QueryCache.WithLabelValues("error").Inc()
	default:
		s.metrics.QueryCache.WithLabelValues("miss").Inc()
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if b, err := json.Marshal(v); err == nil {
		if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			s.metrics.QueryCache.WithLabelValues("error").Inc()
			s.logger.Debug("query cache write failed", "key", key, "error", err)
		}
	}
	return v, nil
}

func (s *Service) neighborhoodsByID(ctx context.Context) (map[int64]domain.Neighborhood, error) {
	list, err := s.store.ListNeighborhoods(ctx, "", "")
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Neighborhood, len(list))
	for _, n := range list {
		byID[n.ID] = n
	}
	return byID, nil
}

func clamp(v, def, maximum int) int {
	if v <= 0 {
		return def
	}
	return min(v, maximum)
}
