package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestCache_UnreachableServer(t *testing.T) {
	c := NewCache(closedAddr(t), "", 0)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, ok, err := c.Get(ctx, "leaderboard:month:all:50")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "redis get leaderboard:month:all:50")

	err = c.Set(ctx, "leaderboard:month:all:50", []byte(`{}`), time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set")

	require.Error(t, c.Ping(ctx))
}

func TestNewCache_Options(t *testing.T) {
	c := NewCache("cache.internal:6380", "secret", 3)
	t.Cleanup(func() { _ = c.Close() })

	opts := c.client.Options()
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, dialTimeout, opts.DialTimeout)
}
