/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/census/game"
)

// RoomStore is the storage contract for rooms. Load returns a copy the
// caller owns; changes only stick once handed back to Save.
type RoomStore interface {
	Load(ctx context.Context, code string) (*game.Room, error)
	Save(ctx context.Context, room *game.Room) error
	Delete(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
}

// normalizeCode canonicalizes user-supplied room codes to the uppercase
// form the allocator generates.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newStore(ctx context.Context, cfg *Config) (RoomStore, error) {
	if cfg.redis != "" {
		return newRedisStore(ctx, cfg.redis, cfg.sessionTimeout)
	}
	return newMemoryStore(), nil
}

type memoryEntry struct {
	room    *game.Room
	savedAt time.Time
}

type memoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*memoryEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rooms: make(map[string]*memoryEntry),
	}
}

func (s *memoryStore) Load(_ context.Context, code string) (*game.Room, error) {
	code = normalizeCode(code)

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: room %q", game.ErrNotFound, code)
	}

	return entry.room.Clone(), nil
}

func (s *memoryStore) Save(_ context.Context, room *game.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[normalizeCode(room.Code)] = &memoryEntry{
		room:    room.Clone(),
		savedAt: time.Now(),
	}

	return nil
}

func (s *memoryStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, normalizeCode(code))

	return nil
}

func (s *memoryStore) Exists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.rooms[normalizeCode(code)]

	return ok, nil
}

// reap removes rooms that have not been saved since the cutoff and
// reports which codes were evicted.
func (s *memoryStore) reap(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for code, entry := range s.rooms {
		if entry.savedAt.Before(cutoff) {
			delete(s.rooms, code)
			evicted = append(evicted, code)
		}
	}

	return evicted
}

// reapRooms periodically evicts idle rooms and disconnects their
// websocket clients. Redis-backed rooms expire via TTL instead.
func reapRooms(cfg *Config, store *memoryStore, hub *Hub) {
	ticker := time.NewTicker(cfg.sessionTimeout / 2)
	for range ticker.C {
		for _, code := range store.reap(time.Now().Add(-cfg.sessionTimeout)) {
			hub.CloseRoom(code)
			logf(cfg, "STORE: Reaped idle room %s", code)
		}
	}
}

// roomLocks hands out one mutex per room code so each
// load-mutate-save round runs alone. Mutexes are never removed;
// a code always maps to the same lock.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *roomLocks) lock(code string) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[code]
	if !ok {
		m = &sync.Mutex{}
		l.locks[code] = m
	}
	l.mu.Unlock()

	m.Lock()

	return m
}
