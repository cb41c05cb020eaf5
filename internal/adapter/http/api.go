package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
	"github.com/couchcryptid/complaint-club-etl/internal/query"
)

// Queries is the read side served under /api.
type Queries interface {
	Leaderboard(ctx context.Context, req query.LeaderboardRequest) (query.Leaderboard, error)
	NeighborhoodDetail(ctx context.Context, id int64) (query.NeighborhoodDetail, error)
	Compare(ctx context.Context, left, right int64, tf domain.Timeframe) (query.Comparison, error)
	Nearby(ctx context.Context, req query.NearbyRequest) (query.Nearby, error)
	Neighborhoods(ctx context.Context, borough, search string) (query.Directory, error)
}

// timeframeParam parses the timeframe query parameter, defaulting to month.
func timeframeParam(r *http.Request) (domain.Timeframe, error) {
	v := r.URL.Query().Get("timeframe")
	if v == "" {
		return domain.TimeframeMonth, nil
	}
	return domain.ParseTimeframe(v)
}

// intParam reads an optional integer query parameter. Missing is zero.
func intParam(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

// idValue parses a positive neighborhood ID.
func idValue(name, v string) (int64, error) {
	id, err := cast.ToInt64E(strings.TrimSpace(v))
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s", name)
	}
	return id, nil
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	tf, err := timeframeParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	board, err := s.deps.Queries.Leaderboard(r.Context(), query.LeaderboardRequest{
		Timeframe: tf,
		Category:  r.URL.Query().Get("category"),
		Limit:     limit,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, board)
}

func (s *Server) handleNeighborhoods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dir, err := s.deps.Queries.Neighborhoods(r.Context(), q.Get("borough"), q.Get("search"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, dir)
}

func (s *Server) handleNeighborhood(w http.ResponseWriter, r *http.Request) {
	id, err := idValue("neighborhood ID", chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	detail, err := s.deps.Queries.NeighborhoodDetail(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, detail)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	left, err := idValue("left", q.Get("left"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	right, err := idValue("right", q.Get("right"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	tf, err := timeframeParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	cmp, err := s.deps.Queries.Compare(r.Context(), left, right, tf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, cmp)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := cast.ToFloat64E(q.Get("lat"))
	lon, lonErr := cast.ToFloat64E(q.Get("lon"))
	if latErr != nil || lonErr != nil || q.Get("lat") == "" || q.Get("lon") == "" {
		s.respondError(w, r, badRequest("valid lat and lon are required"))
		return
	}
	radius, err := intParam(r, "radius")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.deps.Queries.Nearby(r.Context(), query.NearbyRequest{Lat: lat, Lon: lon, Radius: radius, Limit: limit})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respond(w, r, res)
}
