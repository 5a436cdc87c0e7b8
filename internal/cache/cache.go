// Package cache provides the lookup cache used by list/detail reads.
//
// A Cache is constructed once by the composition root, injected into the
// services that need it and closed at shutdown. Services never talk to a
// Cache directly: they go through a Namespace, which versions every key so
// that a write can atomically retire everything cached for its entity type.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
//
// Get reports absence with ok=false; backend errors are treated as misses
// by the implementations and logged, so a cache outage degrades to direct
// database reads instead of failing requests.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value for ttl. A ttl <= 0 keeps the entry until invalidated.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes every entry whose key starts with prefix.
	// An exact key is a valid prefix.
	Invalidate(ctx context.Context, prefix string) error
	Close() error
}

// Drivers accepted by New.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

// New builds the backend selected by driver. The redis driver requires a
// live client; memory ignores it.
func New(driver string, rdb *redis.Client) (Cache, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemory(time.Minute), nil
	case DriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("cache: driver %q requires REDIS_URL", driver)
		}
		return NewRedis(rdb, "wms:cache:"), nil
	case DriverNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", driver)
	}
}

// Nop never stores anything. Useful in tests and with CACHE_DRIVER=none.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool)                { return nil, false }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Invalidate(context.Context, string) error                 { return nil }
func (Nop) Close() error                                             { return nil }
