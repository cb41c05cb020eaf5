package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/complaint-club-etl/internal/domain"
	"github.com/couchcryptid/complaint-club-etl/internal/store/storetest"
)

var jan15 = time.Date(2025, 1, 15, 15, 0, 0, 0, time.UTC)

func TestInsertComplaint_Idempotent(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	c := storetest.Complaint("1001", 1, domain.CategoryNoise, jan15)
	c.Raw = []byte(`{"unique_key":"1001"}`)

	inserted, err := s.InsertComplaint(ctx, c)
	require.NoError(t, err)
	assert.True(t, inserted)

	c.Category = domain.CategoryRats
	inserted, err = s.InsertComplaint(ctx, c)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate ID must be skipped")

	rows, err := s.ListComplaintCategories(ctx, false, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.CategoryNoise, rows[0].Category, "first write wins")
}

func TestListComplaintCategories_OnlyOther(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	storetest.InsertComplaints(t, s,
		storetest.Complaint("1", 1, domain.CategoryOther, jan15),
		storetest.Complaint("2", 1, domain.CategoryNoise, jan15),
		storetest.Complaint("3", 1, domain.CategoryOther, jan15),
	)

	others, err := s.ListComplaintCategories(ctx, true, 10)
	require.NoError(t, err)
	assert.Len(t, others, 2)

	limited, err := s.ListComplaintCategories(ctx, false, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestUpdateCategory(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	storetest.InsertComplaints(t, s, storetest.Complaint("1", 1, domain.CategoryOther, jan15))

	require.NoError(t, s.UpdateCategory(ctx, "1", domain.CategoryTrash))
	rows, err := s.ListComplaintCategories(ctx, false, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryTrash, rows[0].Category)

	err = s.UpdateCategory(ctx, "missing", domain.CategoryTrash)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestComplaintsInBox(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	inside := storetest.Complaint("in", 1, domain.CategoryNoise, jan15)
	old := storetest.Complaint("old", 1, domain.CategoryNoise, jan15.AddDate(0, 0, -60))
	outside := storetest.Complaint("out", 1, domain.CategoryNoise, jan15)
	farLat := 40.9
	outside.Latitude = &farLat
	unlocated := storetest.Complaint("none", 1, domain.CategoryNoise, jan15)
	unlocated.Latitude, unlocated.Longitude = nil, nil
	storetest.InsertComplaints(t, s, inside, old, outside, unlocated)

	got, err := s.ComplaintsInBox(ctx, 40.70, 40.72, -74.01, -74.00, jan15.AddDate(0, 0, -30), 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
	assert.True(t, got[0].CreatedAt.Equal(jan15))
}

func TestOtherTypeCounts(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	mk := func(id, complaintType string, cat domain.Category) domain.Complaint {
		c := storetest.Complaint(id, 1, cat, jan15)
		c.ComplaintType = complaintType
		return c
	}
	storetest.InsertComplaints(t, s,
		mk("1", "Lost Property", domain.CategoryOther),
		mk("2", "Taxi Complaint", domain.CategoryOther),
		mk("3", "Taxi Complaint", domain.CategoryOther),
		mk("4", "Noise", domain.CategoryNoise),
	)

	got, err := s.OtherTypeCounts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Taxi Complaint", got[0].ComplaintType)
	assert.Equal(t, int64(2), got[0].Count)
}
