package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a cached document lives.
const DefaultCacheTTL = 5 * time.Minute

// RedisCmdable is the subset of the go-redis API the cache uses.
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cached is a read-through Redis cache in front of another Store. Only Get
// on the configured collections is cached; Merge invalidates. Redis errors
// are logged and the inner store is used, so the cache never makes a read
// fail.
type Cached struct {
	inner       Store
	redis       RedisCmdable
	ttl         time.Duration
	collections map[string]bool
	prefix      string
	logger      *slog.Logger
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewCached wraps inner. With no collections named, profiles and users are
// cached.
func NewCached(inner Store, client RedisCmdable, ttl time.Duration, logger *slog.Logger, collections ...string) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(collections) == 0 {
		collections = []string{Profiles, Users}
	}
	set := make(map[string]bool, len(collections))
	for _, c := range collections {
		set[c] = true
	}
	return &Cached{
		inner:       inner,
		redis:       client,
		ttl:         ttl,
		collections: set,
		prefix:      "campus:doc:",
		logger:      logger,
	}
}

func (c *Cached) key(collection, id string) string {
	return c.prefix + collection + ":" + id
}

// Get implements Store.
func (c *Cached) Get(ctx context.Context, collection, id string) (Document, error) {
	if !c.collections[collection] {
		return c.inner.Get(ctx, collection, id)
	}

	key := c.key(collection, id)
	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		doc, decodeErr := decodeDocument(raw)
		if decodeErr == nil {
			return doc, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key, "error", decodeErr)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	doc, err := c.inner.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if encoded, encErr := json.Marshal(doc); encErr == nil {
		if setErr := c.redis.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			c.logger.Warn("cache write failed", "key", key, "error", setErr)
		}
	}
	return doc, nil
}

// Query implements Store. Queries are not cached.
func (c *Cached) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error) {
	return c.inner.Query(ctx, collection, filters, limit)
}

// Append implements Store.
func (c *Cached) Append(ctx context.Context, collection string, doc Document) (string, error) {
	return c.inner.Append(ctx, collection, doc)
}

// Merge implements Store and drops the cached copy.
func (c *Cached) Merge(ctx context.Context, collection, id string, fields Document) error {
	if err := c.inner.Merge(ctx, collection, id, fields); err != nil {
		return err
	}
	if c.collections[collection] {
		if err := c.redis.Del(ctx, c.key(collection, id)).Err(); err != nil {
			c.logger.Warn("cache invalidation failed", "collection", collection, "id", id, "error", err)
		}
	}
	return nil
}

// Close closes the inner store.
func (c *Cached) Close() error {
	return c.inner.Close()
}
