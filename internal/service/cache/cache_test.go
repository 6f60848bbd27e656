package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTLCache(0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.SetBytes(ctx, "b", []byte("2"), 0))

	b, ok, err := c.GetBytes(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), b)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.GetBytes(ctx, "a")
	require.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "b")
	require.True(t, ok)
	require.Equal(t, 1, c.Len())
}

func TestTTLCacheBounded(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(2)
	require.NoError(t, c.SetBytes(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.SetBytes(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.SetBytes(ctx, "c", []byte("3"), time.Hour))
	require.Equal(t, 2, c.Len())

	_, ok, _ := c.GetBytes(ctx, "a")
	require.False(t, ok, "entry closest to expiry is evicted")
	_, ok, _ = c.GetBytes(ctx, "c")
	require.True(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(0)

	type payload struct {
		Close float64 `json:"close"`
	}
	require.NoError(t, SetJSON(ctx, c, "k", payload{Close: 4533.9}, time.Minute))

	var got payload
	ok, err := GetJSON(ctx, c, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4533.9, got.Close)

	ok, err = GetJSON(ctx, c, "missing", &got)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.SetBytes(ctx, "bad", []byte("{"), 0))
	_, err = GetJSON(ctx, c, "bad", &got)
	require.Error(t, err)
}
