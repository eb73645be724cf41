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

func setupCounts(t *testing.T) (*Counts, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCounts(client, 10*time.Minute), mr
}

func TestCounts_Miss(t *testing.T) {
	counts, _ := setupCounts(t)

	n, ver, ok, err := counts.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, n)
	assert.Zero(t, ver)
}

func TestCounts_SetGet(t *testing.T) {
	counts, mr := setupCounts(t)
	ctx := context.Background()

	require.NoError(t, counts.Set(ctx, "user1", 4, 0))

	n, _, ok, err := counts.Get(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	stored, err := mr.Get(countKey("user1"))
	require.NoError(t, err)
	assert.Equal(t, "4", stored)
}

func TestCounts_TTL(t *testing.T) {
	counts, mr := setupCounts(t)

	require.NoError(t, counts.Set(context.Background(), "user1", 1, 0))

	ttl := mr.TTL(countKey("user1"))
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 12*time.Minute)

	mr.FastForward(13 * time.Minute)
	_, _, ok, err := counts.Get(context.Background(), "user1")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire")
}

func TestCounts_Delete(t *testing.T) {
	counts, mr := setupCounts(t)
	ctx := context.Background()

	require.NoError(t, counts.Set(ctx, "user1", 2, 0))
	require.NoError(t, counts.Delete(ctx, "user1"))
	assert.False(t, mr.Exists(countKey("user1")))

	// deleting a missing key is fine
	assert.NoError(t, counts.Delete(ctx, "user1"))

	_, ver, _, err := counts.Get(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
	assert.Greater(t, mr.TTL(versionKey("user1")), time.Duration(0))
}

func TestCounts_StaleSetDropped(t *testing.T) {
	counts, mr := setupCounts(t)
	ctx := context.Background()

	_, ver, ok, err := counts.Get(ctx, "user1")
	require.NoError(t, err)
	require.False(t, ok)

	// the cart changes after the count was read
	require.NoError(t, counts.Delete(ctx, "user1"))

	require.NoError(t, counts.Set(ctx, "user1", 3, ver))
	assert.False(t, mr.Exists(countKey("user1")), "stale count must not be cached")

	_, ver, _, err = counts.Get(ctx, "user1")
	require.NoError(t, err)
	require.NoError(t, counts.Set(ctx, "user1", 4, ver))

	n, _, ok, err := counts.Get(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, n)
}

func TestCounts_Corrupt(t *testing.T) {
	counts, mr := setupCounts(t)

	require.NoError(t, mr.Set(countKey("user1"), "many"))

	_, _, ok, err := counts.Get(context.Background(), "user1")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "parsing cached count")
}
