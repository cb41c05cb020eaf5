package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/complaint-club-etl/internal/aggregate"
	"github.com/couchcryptid/complaint-club-etl/internal/domain"
	"github.com/couchcryptid/complaint-club-etl/internal/pipeline"
	"github.com/couchcryptid/complaint-club-etl/internal/store"
)

// Ingester runs the ETL operations exposed under /admin.
type Ingester interface {
	Ingest(ctx context.Context) (pipeline.IngestResult, error)
	Backfill(ctx context.Context, req pipeline.BackfillRequest) (pipeline.BackfillResult, error)
	Recategorize(ctx context.Context, req pipeline.RecategorizeRequest) (pipeline.RecategorizeResult, error)
}

// Aggregator runs aggregate refreshes.
type Aggregator interface {
	FullRefresh(ctx context.Context) (aggregate.RefreshReport, error)
	RefreshRecent(ctx context.Context, days int) domain.Outcome
}

// Audit exposes operational read-outs.
type Audit interface {
	RecentRuns(ctx context.Context, limit int) ([]domain.EtlRun, error)
	OtherTypeCounts(ctx context.Context, limit int) ([]store.TypeCount, error)
}

const (
	defaultRefreshDays = 30
	maxRefreshDays     = 365
	defaultAuditLimit  = 50
	maxAuditLimit      = 500
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Ingester.Ingest(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, res)
}

type backfillBody struct {
	Since  string `json:"since"`
	Until  string `json:"until"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// parseInstant accepts RFC 3339 timestamps and YYYY-MM-DD dates. Dates mean
// local midnight.
func parseInstant(v string, loc *time.Location) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return nil, badRequest("invalid time %q: want RFC 3339 or YYYY-MM-DD", v)
	}
	return &t, nil
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	var body backfillBody
	if err := decodeOptionalJSON(r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	since, err := parseInstant(body.Since, s.deps.Location)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	until, err := parseInstant(body.Until, s.deps.Location)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.deps.Ingester.Backfill(r.Context(), pipeline.BackfillRequest{
		Since:  since,
		Until:  until,
		Limit:  body.Limit,
		Offset: body.Offset,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, res)
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Aggregator.FullRefresh(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, report)
}

type refreshDailyBody struct {
	Days int `json:"days"`
}

func (s *Server) handleRefreshDaily(w http.ResponseWriter, r *http.Request) {
	body := refreshDailyBody{Days: defaultRefreshDays}
	if err := decodeOptionalJSON(r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	if body.Days <= 0 || body.Days > maxRefreshDays {
		s.respondError(w, r, badRequest("days must be between 1 and %d", maxRefreshDays))
		return
	}

	out := s.deps.Aggregator.RefreshRecent(r.Context(), body.Days)
	respond(w, r, map[string]any{"days_requested": body.Days, "outcome": out})
}

type recategorizeBody struct {
	OnlyOther *bool `json:"only_other"`
	Limit     int   `json:"limit"`
}

func (s *Server) handleRecategorize(w http.ResponseWriter, r *http.Request) {
	var body recategorizeBody
	if err := decodeOptionalJSON(r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	req := pipeline.RecategorizeRequest{OnlyOther: true, Limit: body.Limit}
	if body.OnlyOther != nil {
		req.OnlyOther = *body.OnlyOther
	}

	res, err := s.deps.Ingester.Recategorize(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, res)
}

func (s *Server) auditLimit(r *http.Request) (int, error) {
	limit, err := intParam(r, "limit")
	if err != nil {
		return 0, err
	}
	if limit <= 0 {
		return defaultAuditLimit, nil
	}
	return min(limit, maxAuditLimit), nil
}

func (s *Server) handleAnalyzeOther(w http.ResponseWriter, r *http.Request) {
	limit, err := s.auditLimit(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	counts, err := s.deps.Audit.OtherTypeCounts(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, counts)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := s.auditLimit(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	runs, err := s.deps.Audit.RecentRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, runs)
}
