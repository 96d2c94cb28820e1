package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetSetJSON(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	found, err := GetJSON(ctx, "missing", &payload{})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, "key", payload{Name: "seoul", Count: 3}, time.Minute))

	var got payload
	found, err = GetJSON(ctx, "key", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "seoul", Count: 3}, got)
}

func TestSetJSON_AppliesTTL(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "key", payload{Name: "v"}, time.Minute))

	mr.FastForward(2 * time.Minute)

	found, err := GetJSON(ctx, "key", &payload{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheAside(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			*dest = payload{Name: "fetched", Count: calls}
			return nil
		}
	}

	var first payload
	require.NoError(t, CacheAside(ctx, "key", &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "fetched", first.Name)

	// Second read is served from the cache; fetch does not run again.
	var second payload
	require.NoError(t, CacheAside(ctx, "key", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestCacheAside_WithoutClientAlwaysFetches(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	calls := 0
	var dest payload
	fetch := func() error {
		calls++
		dest = payload{Name: "fresh"}
		return nil
	}

	require.NoError(t, CacheAside(ctx, "key", &dest, time.Minute, fetch))
	require.NoError(t, CacheAside(ctx, "key", &dest, time.Minute, fetch))
	assert.Equal(t, 2, calls)
}

func TestInvalidateUser(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey(7), payload{Name: "cached"}, time.Minute))

	InvalidateUser(ctx, 7)

	found, err := GetJSON(ctx, UserKey(7), &payload{})
	require.NoError(t, err)
	assert.False(t, found)
}
