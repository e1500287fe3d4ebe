package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "stepwise:recommend:"

type redisStore struct {
	rdb redis.UniversalClient
}

// NewRedisStore shares entries across instances. Keys carry a native TTL so
// expired entries are reclaimed by redis itself.
func NewRedisStore(rdb redis.UniversalClient) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Get(ctx context.Context, key Key) (*Entry, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// A corrupt value is treated as absent and overwritten on the next compute.
		return nil, nil
	}
	return &e, nil
}

func (s *redisStore) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return nil
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis encode: %w", err)
	}
	ttl := entry.ExpiresAt.Sub(entry.CreatedAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+key.String(), raw, ttl+expiryGrace).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key Key) error {
	return s.rdb.Del(ctx, redisKeyPrefix+key.String()).Err()
}

func (s *redisStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
