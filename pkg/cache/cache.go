package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Transport performs the actual network call. The cache treats it as an
// opaque request/response primitive: timeouts, redirects and retries are the
// transport's business.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Config holds the cache configuration.
type Config struct {
	// Store persists cache records. Required.
	Store Store

	// Transport performs network fetches on cache misses. Optional: a
	// cache without a transport still serves Get/Set/Clear/Stats, but
	// Request fails.
	Transport Transport

	// TTL is the maximum record age before a read treats it as stale and
	// deletes it. NoExpiration disables expiry.
	TTL time.Duration

	// Logger is the base logger. Defaults to a disabled logger.
	Logger zerolog.Logger
}

// Options control a single Request or Get call.
type Options struct {
	// PostProcessor names the registered transform to apply to the
	// response snapshot. Empty means return the raw snapshot.
	PostProcessor string

	// ForceRefresh skips the cache lookup and always fetches, overwriting
	// any stored record.
	ForceRefresh bool
}

// Stats summarizes the cache for observability.
type Stats struct {
	Count          int           `json:"count"`
	TotalSizeBytes int64         `json:"total_size_bytes"`
	TTL            time.Duration `json:"ttl"`
	Processors     []string      `json:"registered_processors"`
	Location       string        `json:"store_location"`
}

// Info describes a single cached entry, for diagnostics.
type Info struct {
	Cached    bool          `json:"cached"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
	Age       time.Duration `json:"age,omitempty"`
	Processed []string      `json:"processed_formats,omitempty"`
}

// Cache provides get-or-fetch semantics for idempotent HTTP requests over a
// persistent store and an injected transport.
//
// Storage failures degrade to "always fetch fresh", never to a crash.
// Transport failures propagate to the caller and are never cached.
type Cache struct {
	store     Store
	transport Transport
	ttl       time.Duration
	registry  *Registry
	logger    zerolog.Logger
	group     singleflight.Group
}

// New creates a cache from the given configuration.
func New(cfg Config) (*Cache, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	logger := cfg.Logger.With().Str("component", "cache").Logger()

	return &Cache{
		store:     cfg.Store,
		transport: cfg.Transport,
		ttl:       cfg.TTL,
		registry:  NewRegistry(cfg.Logger),
		logger:    logger,
	}, nil
}

// RegisterPostProcessor associates a name with a transform. Re-registering
// a name overwrites the previous transform.
func (c *Cache) RegisterPostProcessor(name string, p Processor) {
	c.registry.Register(name, p)
}

// Request returns the cached value for the request, fetching it through the
// transport exactly once on a miss.
//
// Flow: derive key, consult the store (unless ForceRefresh), fetch on miss
// or staleness, persist the fresh record, then apply the requested
// post-processor. The value is the raw *Response when no processor applies.
func (c *Cache) Request(ctx context.Context, req Request, opts Options) (any, error) {
	key, err := DeriveKey(req)
	if err != nil {
		return nil, err
	}

	if !opts.ForceRefresh {
		if rec := c.lookup(ctx, key); rec != nil {
			cacheHits.Inc()
			c.logger.Debug().
				Str("key", string(key)).
				Str("url", req.URL).
				Msg("Cache hit")
			return c.registry.Apply(ctx, c.store, key, rec, opts.PostProcessor)
		}
		cacheMisses.Inc()
	}

	rec, err := c.fetch(ctx, key, req)
	if err != nil {
		return nil, err
	}

	return c.registry.Apply(ctx, c.store, key, rec, opts.PostProcessor)
}

// Get is the read-only variant of Request: it never fetches. Returns
// ErrCacheMiss when no valid record exists.
func (c *Cache) Get(ctx context.Context, req Request, processor string) (any, error) {
	key, err := DeriveKey(req)
	if err != nil {
		return nil, err
	}

	rec := c.lookup(ctx, key)
	if rec == nil {
		cacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	cacheHits.Inc()
	return c.registry.Apply(ctx, c.store, key, rec, processor)
}

// Set explicitly caches a pre-fetched response for the request, overwriting
// any prior record for the key.
func (c *Cache) Set(ctx context.Context, req Request, resp Response) error {
	key, err := DeriveKey(req)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, key, NewRecord(req, resp))
}

// Clear deletes records older than olderThan and returns the count deleted.
// A non-positive olderThan deletes every record.
func (c *Cache) Clear(ctx context.Context, olderThan time.Duration) (int, error) {
	cleared, err := c.store.Clear(ctx, olderThan)
	if err != nil {
		return cleared, err
	}
	c.logger.Info().
		Int("cleared", cleared).
		Dur("older_than", olderThan).
		Msg("Cache cleared")
	return cleared, nil
}

// Stats returns aggregate cache statistics.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	count, size, err := c.store.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Count:          count,
		TotalSizeBytes: size,
		TTL:            c.ttl,
		Processors:     c.registry.Names(),
		Location:       c.store.Location(),
	}, nil
}

// GetInfo reports whether a request is cached and, if so, its age and which
// processed formats are memoized. Expired entries count as not cached.
func (c *Cache) GetInfo(ctx context.Context, req Request) (Info, error) {
	key, err := DeriveKey(req)
	if err != nil {
		return Info{}, err
	}

	rec := c.lookup(ctx, key)
	if rec == nil {
		return Info{}, nil
	}

	processed := make([]string, 0, len(rec.Processed))
	for name := range rec.Processed {
		processed = append(processed, name)
	}

	return Info{
		Cached:    true,
		Timestamp: rec.Timestamp,
		Age:       rec.Age(),
		Processed: processed,
	}, nil
}

// lookup returns a valid unexpired record, or nil. Expired records are
// deleted (lazy expiration); corruption and store errors degrade to a miss.
func (c *Cache) lookup(ctx context.Context, key Key) *Record {
	rec, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCorruptRecord) {
			c.logger.Warn().Err(err).Str("key", string(key)).Msg("Store read failed")
		}
		return nil
	}

	if rec.IsExpired(c.ttl) {
		cacheExpired.Inc()
		c.logger.Debug().
			Str("key", string(key)).
			Dur("age", rec.Age()).
			Dur("ttl", c.ttl).
			Msg("Record expired, deleting")
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn().Err(err).Str("key", string(key)).Msg("Failed to delete expired record")
		}
		return nil
	}

	return rec
}

// fetch performs the transport call and persists the result. Concurrent
// fetches for the same key are collapsed into one transport call. A failed
// fetch is never cached; a failed store write is logged and the fetched
// record is still returned.
func (c *Cache) fetch(ctx context.Context, key Key, req Request) (*Record, error) {
	if c.transport == nil {
		return nil, fmt.Errorf("no transport configured")
	}

	v, err, _ := c.group.Do(string(key), func() (any, error) {
		start := time.Now()
		resp, err := c.transport.Do(ctx, req)
		if err != nil {
			fetches.WithLabelValues("error").Inc()
			return nil, err
		}
		fetches.WithLabelValues("ok").Inc()

		rec := NewRecord(req, *resp)
		if err := c.store.Put(ctx, key, rec); err != nil {
			// Caching is best effort: the fetched result still flows back.
			c.logger.Warn().Err(err).Str("key", string(key)).Msg("Failed to cache response")
		}

		c.logger.Debug().
			Str("key", string(key)).
			Str("url", req.URL).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("Fetched and cached")

		return rec, nil
	})
	if err != nil {
		return nil, err
	}

	// Every collapsed caller gets its own copy: Apply memoizes into the
	// record's Processed map, and sharing one map across goroutines races.
	return v.(*Record).clone(), nil
}
