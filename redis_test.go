package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/census/game"
)

// testRedisStore connects to the instance named by CENSUS_TEST_REDIS,
// e.g. redis://localhost:6379/15. Without it the redis tests skip.
func testRedisStore(t *testing.T) *redisStore {
	t.Helper()

	url := os.Getenv("CENSUS_TEST_REDIS")
	if url == "" {
		t.Skip("CENSUS_TEST_REDIS not set")
	}

	store, err := newRedisStore(context.Background(), url, time.Minute)
	require.NoError(t, err)

	return store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testRedisStore(t)

	room := testRoom("RDTT")
	t.Cleanup(func() { _ = store.Delete(ctx, room.Code) })

	require.NoError(t, store.Save(ctx, room))

	loaded, err := store.Load(ctx, "rdtt")
	require.NoError(t, err)
	assert.Equal(t, room.Code, loaded.Code)
	assert.Equal(t, room.Phase, loaded.Phase)
	require.Contains(t, loaded.Players, "p1")
	assert.Equal(t, "Alex", loaded.Players["p1"].Name)
	assert.True(t, loaded.Players["p1"].IsHost)

	ok, err := store.Exists(ctx, room.Code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStoreMissingRoom(t *testing.T) {
	ctx := context.Background()
	store := testRedisStore(t)

	_, err := store.Load(ctx, "RDNF")
	assert.ErrorIs(t, err, game.ErrNotFound)

	ok, err := store.Exists(ctx, "RDNF")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := testRedisStore(t)

	room := testRoom("RDDL")
	require.NoError(t, store.Save(ctx, room))
	require.NoError(t, store.Delete(ctx, room.Code))

	_, err := store.Load(ctx, room.Code)
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestRedisStoreSetsTTL(t *testing.T) {
	ctx := context.Background()
	store := testRedisStore(t)

	room := testRoom("RDEX")
	t.Cleanup(func() { _ = store.Delete(ctx, room.Code) })

	require.NoError(t, store.Save(ctx, room))

	ttl, err := store.rdb.TTL(ctx, store.key(room.Code)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "saved rooms carry an expiry")
	assert.LessOrEqual(t, ttl, time.Minute)
}
