// Package storetest provides migrated in-memory stores and fixtures for tests.
package storetest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
	"github.com/couchcryptid/complaint-club-etl/internal/store"
)

var seq atomic.Int64

// New returns a migrated SQLite store private to the test.
func New(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	s, err := store.OpenSQLite(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// Neighborhoods is a small reference set spanning three boroughs.
var Neighborhoods = []domain.Neighborhood{
	{ID: 1, Name: "Astoria", Borough: "QUEENS", NTACode: "QN0101"},
	{ID: 2, Name: "Bushwick", Borough: "BROOKLYN", NTACode: "BK0401"},
	{ID: 3, Name: "Chelsea", Borough: "MANHATTAN", NTACode: "MN0401"},
	{ID: 4, Name: "Williamsburg", Borough: "BROOKLYN", NTACode: "BK0101"},
}

// SeedNeighborhoods loads Neighborhoods into s.
func SeedNeighborhoods(t *testing.T, s *store.Store) {
	t.Helper()
	require.NoError(t, s.UpsertNeighborhoods(context.Background(), Neighborhoods))
}

// Complaint builds a located complaint in a neighborhood. A zero neighborhood
// leaves it unresolved.
func Complaint(id string, neighborhoodID int64, cat domain.Category, createdAt time.Time) domain.Complaint {
	lat, lon := 40.7128, -74.0060
	c := domain.Complaint{
		ID:            id,
		Category:      cat,
		ComplaintType: string(cat),
		CreatedAt:     createdAt,
		Latitude:      &lat,
		Longitude:     &lon,
	}
	if neighborhoodID != 0 {
		c.NeighborhoodID = &neighborhoodID
	}
	return c
}

// InsertComplaints stores each complaint, failing the test on error.
func InsertComplaints(t *testing.T, s *store.Store, complaints ...domain.Complaint) {
	t.Helper()
	for _, c := range complaints {
		_, err := s.InsertComplaint(context.Background(), c)
		require.NoError(t, err)
	}
}
