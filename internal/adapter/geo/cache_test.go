package geo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/complaint-club-etl/internal/observability"
)

type mockResolver struct {
	mu    sync.Mutex
	calls int
	ids   map[[2]float64]int64
	err   error
}

func (m *mockResolver) Resolve(_ context.Context, lat, lon float64) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	id, ok := m.ids[[2]float64{lat, lon}]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func TestCachedResolver_CachesHitsAndMisses(t *testing.T) {
	inner := &mockResolver{ids: map[[2]float64]int64{{40.7128, -74.006}: 7}}
	r := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())
	ctx := context.Background()

	id, err := r.Resolve(ctx, 40.7128, -74.006)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	// Sub-meter jitter rounds to the same key.
	id, err = r.Resolve(ctx, 40.712801, -74.006001)
	require.NoError(t, err)
	assert.Equal(t, int64(7), *id)

	for range 2 {
		id, err = r.Resolve(ctx, 40.9, -73.7)
		require.NoError(t, err)
		assert.Nil(t, id)
	}

	assert.Equal(t, 2, inner.calls)
}

func TestCachedResolver_DoesNotCacheErrors(t *testing.T) {
	inner := &mockResolver{err: errors.New("connection refused")}
	r := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	for range 2 {
		_, err := r.Resolve(context.Background(), 40.7, -74.0)
		require.Error(t, err)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, r.cache.len())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	one, two, three := int64(1), int64(2), int64(3)

	c.put("a", &one)
	c.put("b", &two)
	_, _ = c.get("a") // a is now most recent
	c.put("c", &three)

	_, ok := c.get("b")
	assert.False(t, ok, "b should be evicted")
	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), *got)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	one, two := int64(1), int64(2)
	c.put("a", &one)
	c.put("a", &two)

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), *got)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := newLRUCache(50)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			for j := range 100 {
				key := string(rune('a' + (int(n)+j)%26))
				c.put(key, &n)
				c.get(key)
			}
		}(int64(i))
	}
	wg.Wait()
	assert.LessOrEqual(t, c.len(), 50)
}
