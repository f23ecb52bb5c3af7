package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/census/game"
)

func testRoom(code string) *game.Room {
	now := time.Now()

	return &game.Room{
		Code:                    code,
		HostID:                  "p1",
		Phase:                   game.PhaseLobby,
		QuestionDurationSeconds: 60,
		CreatedAt:               now,
		Players: map[string]*game.Player{
			"p1": {ID: "p1", Name: "Alex", JoinedAt: now, IsHost: true},
		},
		Questions: []*game.Question{},
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABCD", normalizeCode(" abcd "))
	assert.Equal(t, "WXYZ", normalizeCode("WXYZ"))
	assert.Equal(t, "", normalizeCode("  "))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	room := testRoom("ABCD")

	require.NoError(t, store.Save(ctx, room))

	loaded, err := store.Load(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, room, loaded)

	// Both the saved and the loaded room are isolated copies.
	room.Phase = game.PhaseComplete
	loaded.Players["p1"].Name = "Mallory"

	again, err := store.Load(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, game.PhaseLobby, again.Phase)
	assert.Equal(t, "Alex", again.Players["p1"].Name)
}

func TestMemoryStoreCodesAreCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	require.NoError(t, store.Save(ctx, testRoom("WXYZ")))

	loaded, err := store.Load(ctx, "wxyz")
	require.NoError(t, err)
	assert.Equal(t, "WXYZ", loaded.Code)

	ok, err := store.Exists(ctx, " wxyz ")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreMissingRoom(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	_, err := store.Load(ctx, "NOPE")
	assert.ErrorIs(t, err, game.ErrNotFound)

	ok, err := store.Exists(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	require.NoError(t, store.Save(ctx, testRoom("ABCD")))
	require.NoError(t, store.Delete(ctx, "abcd"))

	_, err := store.Load(ctx, "ABCD")
	assert.ErrorIs(t, err, game.ErrNotFound)

	// Deleting an absent room is not an error.
	assert.NoError(t, store.Delete(ctx, "ABCD"))
}

func TestMemoryStoreReap(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	require.NoError(t, store.Save(ctx, testRoom("IDLE")))
	require.NoError(t, store.Save(ctx, testRoom("LIVE")))

	store.mu.Lock()
	store.rooms["IDLE"].savedAt = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	evicted := store.reap(time.Now().Add(-time.Hour))
	assert.Equal(t, []string{"IDLE"}, evicted)

	_, err := store.Load(ctx, "IDLE")
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = store.Load(ctx, "LIVE")
	assert.NoError(t, err)
}

func TestRoomLocksReturnStableMutexes(t *testing.T) {
	locks := newRoomLocks()

	m1 := locks.lock("ABCD")
	m1.Unlock()

	m2 := locks.lock("ABCD")
	m2.Unlock()

	assert.Same(t, m1, m2, "one code always maps to one mutex")

	m3 := locks.lock("WXYZ")
	m3.Unlock()

	assert.NotSame(t, m1, m3)
}

func TestRoomLocksSerialize(t *testing.T) {
	locks := newRoomLocks()

	m := locks.lock("ABCD")

	done := make(chan struct{})
	go func() {
		defer close(done)
		locks.lock("ABCD").Unlock()
	}()

	select {
	case <-done:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	m.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}
