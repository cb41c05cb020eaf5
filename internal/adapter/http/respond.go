package http

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
)

// envelope wraps every API response. Exactly one of Data and Error is set.
type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// badRequest wraps caller input errors detected by the handlers.
func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func writeStatus(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func respond(w http.ResponseWriter, r *http.Request, data any) {
	writeStatus(w, r, http.StatusOK, envelope{Data: data})
}

// respondError maps an error to a status code. Unexpected errors are logged
// and reported without detail.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeStatus(w, r, status, envelope{Error: msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidTimeframe),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrOutsideNYC):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoNeighborhoods):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeOptionalJSON decodes a JSON body into v. An empty body leaves v as is.
func decodeOptionalJSON(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("malformed JSON body: %v", err)
	}
	return nil
}

// requireBearer rejects requests without the expected bearer token. An empty
// token disables the check.
func requireBearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte("Bearer " + token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(strings.TrimSpace(r.Header.Get("Authorization")))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				writeStatus(w, r, http.StatusUnauthorized, envelope{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
