/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Seednode/census/game"
)

const redisKeyPrefix = "census:room:"

// redisStore keeps each room as a JSON value with a TTL, refreshed on
// every save so active rooms never expire out from under their players.
type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func newRedisStore(ctx context.Context, url string, ttl time.Duration) (*redisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &redisStore{
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (s *redisStore) key(code string) string {
	return redisKeyPrefix + normalizeCode(code)
}

func (s *redisStore) Load(ctx context.Context, code string) (*game.Room, error) {
	data, err := s.rdb.Get(ctx, s.key(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: room %q", game.ErrNotFound, normalizeCode(code))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", game.ErrStorage, err)
	}

	var room game.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("%w: decode room: %v", game.ErrStorage, err)
	}

	return &room, nil
}

func (s *redisStore) Save(ctx context.Context, room *game.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("%w: encode room: %v", game.ErrStorage, err)
	}

	if err := s.rdb.Set(ctx, s.key(room.Code), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", game.ErrStorage, err)
	}

	return nil
}

func (s *redisStore) Delete(ctx context.Context, code string) error {
	if err := s.rdb.Del(ctx, s.key(code)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", game.ErrStorage, err)
	}

	return nil
}

func (s *redisStore) Exists(ctx context.Context, code string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(code)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: redis exists: %v", game.ErrStorage, err)
	}

	return n > 0, nil
}
