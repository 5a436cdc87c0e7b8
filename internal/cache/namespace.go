package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/replika-labs/wms-01-sub000/internal/infra"
)

// Namespace names the cache entries derived from one entity type
// ("materials", "products", "dashboard", ...).
//
// Keys are stored as "<ns>:<version>:<key>". The live version token lives
// under "v:<ns>". Invalidate installs a fresh token before dropping the old
// entries, so a reader that loaded data before a write and stores it after
// the write lands under a retired version and is never served again.
type Namespace struct {
	c    Cache
	name string
	ttl  time.Duration
}

// NewNamespace binds name to c with a default entry TTL.
func NewNamespace(c Cache, name string, ttl time.Duration) *Namespace {
	return &Namespace{c: c, name: name, ttl: ttl}
}

func (n *Namespace) Name() string { return n.name }

func (n *Namespace) versionKey() string { return "v:" + n.name }

func (n *Namespace) version(ctx context.Context) string {
	if v, ok := n.c.Get(ctx, n.versionKey()); ok && len(v) > 0 {
		return string(v)
	}
	v := uuid.NewString()
	if err := n.c.Set(ctx, n.versionKey(), []byte(v), 0); err != nil {
		log.Warn().Err(err).Str("namespace", n.name).Msg("cache: failed to store namespace version")
	}
	return v
}

func (n *Namespace) key(version, key string) string {
	return n.name + ":" + version + ":" + key
}

// Get decodes the cached JSON for key into dst and reports whether it hit.
func (n *Namespace) Get(ctx context.Context, key string, dst interface{}) bool {
	raw, ok := n.c.Get(ctx, n.key(n.version(ctx), key))
	if ok {
		if err := json.Unmarshal(raw, dst); err != nil {
			ok = false
		}
	}
	result := "miss"
	if ok {
		result = "hit"
	}
	infra.CacheLookups.WithLabelValues(n.name, result).Inc()
	return ok
}

// Set stores v as JSON under key in the current version.
// Failures are logged; the cache is never the source of truth.
func (n *Namespace) Set(ctx context.Context, key string, v interface{}) {
	n.setVersioned(ctx, n.version(ctx), key, v)
}

func (n *Namespace) setVersioned(ctx context.Context, version, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("namespace", n.name).Msg("cache: encode failed")
		return
	}
	if err := n.c.Set(ctx, n.key(version, key), raw, n.ttl); err != nil {
		log.Warn().Err(err).Str("namespace", n.name).Msg("cache: set failed")
	}
}

// Remember returns the cached value for key or calls load and caches its
// result. The version is read before load runs, so a concurrent Invalidate
// retires whatever this call stores.
func Remember[T any](ctx context.Context, n *Namespace, key string, load func() (T, error)) (T, error) {
	var out T
	if n == nil {
		return load()
	}
	version := n.version(ctx)
	raw, ok := n.c.Get(ctx, n.key(version, key))
	if ok && json.Unmarshal(raw, &out) == nil {
		infra.CacheLookups.WithLabelValues(n.name, "hit").Inc()
		return out, nil
	}
	infra.CacheLookups.WithLabelValues(n.name, "miss").Inc()

	out, err := load()
	if err != nil {
		return out, err
	}
	n.setVersioned(ctx, version, key, out)
	return out, nil
}

// Invalidate retires every entry of the namespace.
func (n *Namespace) Invalidate(ctx context.Context) error {
	if n == nil {
		return nil
	}
	old, hadOld := n.c.Get(ctx, n.versionKey())
	if err := n.c.Set(ctx, n.versionKey(), []byte(uuid.NewString()), 0); err != nil {
		// Without a new version the old entries must go now or readers see stale data.
		if derr := n.c.Invalidate(ctx, n.name+":"); derr != nil {
			return derr
		}
		return err
	}
	if hadOld {
		return n.c.Invalidate(ctx, n.name+":"+string(old)+":")
	}
	return nil
}
