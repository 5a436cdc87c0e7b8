package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis is a Cache backed by a shared redis instance, so that every API
// replica sees the same namespace versions.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis wraps rdb; every key is stored under keyPrefix. Close does not
// close rdb, which is owned by the caller.
func NewRedis(rdb *redis.Client, keyPrefix string) *Redis {
	return &Redis{rdb: rdb, prefix: keyPrefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("cache: redis get failed")
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, r.prefix+key, value, ttl).Err()
}

// Invalidate walks the keyspace with SCAN (never KEYS) and deletes matches
// in batches.
func (r *Redis) Invalidate(ctx context.Context, prefix string) error {
	var cursor uint64
	match := r.prefix + prefix + "*"
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *Redis) Close() error { return nil }
