package service

import (
	"context"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/cache"

	"github.com/rs/zerolog/log"
)

// Caches groups the lookup-cache namespaces services read through.
// A nil *Caches (or nil field) disables caching for that namespace.
type Caches struct {
	Materials *cache.Namespace
	Products  *cache.Namespace
	Dashboard *cache.Namespace
}

// NewCaches binds the standard namespaces to c.
func NewCaches(c cache.Cache, ttl time.Duration) *Caches {
	if c == nil {
		return &Caches{}
	}
	return &Caches{
		Materials: cache.NewNamespace(c, "materials", ttl),
		Products:  cache.NewNamespace(c, "products", ttl),
		// Dashboard aggregates go stale quickly; keep them short.
		Dashboard: cache.NewNamespace(c, "dashboard", minDuration(ttl, time.Minute)),
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func (c *Caches) materials() *cache.Namespace {
	if c == nil {
		return nil
	}
	return c.Materials
}

func (c *Caches) products() *cache.Namespace {
	if c == nil {
		return nil
	}
	return c.Products
}

func (c *Caches) dashboard() *cache.Namespace {
	if c == nil {
		return nil
	}
	return c.Dashboard
}

// invalidate retires the given namespaces after a successful write.
// Failures are logged; the write itself already committed.
func invalidate(ctx context.Context, namespaces ...*cache.Namespace) {
	for _, ns := range namespaces {
		if ns == nil {
			continue
		}
		if err := ns.Invalidate(ctx); err != nil {
			log.Error().Err(err).Str("namespace", ns.Name()).Msg("cache invalidation failed")
		}
	}
}
