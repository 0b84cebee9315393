package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "webcache:"

// RedisStore is a Store backed by Redis, for fleets of scrapers sharing one
// cache. Records are stored as JSON under a "webcache:" prefix. When a TTL
// is configured Redis evicts entries natively, which bounds memory; the
// facade's lazy expiry check still applies on top.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed store. A non-positive ttl stores
// entries without native expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "redis-store").Logger(),
	}, nil
}

func (s *RedisStore) key(key Key) string {
	return redisKeyPrefix + string(key)
}

// Get retrieves a record. Entries that fail to deserialize are deleted and
// reported as ErrCorruptRecord.
func (s *RedisStore) Get(ctx context.Context, key Key) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		storeErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		storeErrors.WithLabelValues("get").Inc()
		s.logger.Warn().Err(err).Str("key", string(key)).Msg("Removing corrupt cache record")
		_ = s.redis.Del(ctx, s.key(key)).Err()
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Version != SchemaVersion {
		storeErrors.WithLabelValues("get").Inc()
		_ = s.redis.Del(ctx, s.key(key)).Err()
		return nil, fmt.Errorf("%w: unknown schema version %d", ErrCorruptRecord, rec.Version)
	}

	return &rec, nil
}

// Put stores a record, overwriting any existing one for the key.
func (s *RedisStore) Put(ctx context.Context, key Key, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("cache record cannot be nil")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache record: %w", err)
	}

	var expiry time.Duration
	if s.ttl > 0 {
		expiry = s.ttl
	}
	if err := s.redis.Set(ctx, s.key(key), data, expiry).Err(); err != nil {
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a record. Absence is not an error.
func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		storeErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear scans the key prefix and deletes matching records, optionally only
// those older than olderThan.
func (s *RedisStore) Clear(ctx context.Context, olderThan time.Duration) (int, error) {
	cleared := 0
	iter := s.redis.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()

		if olderThan > 0 {
			data, err := s.redis.Get(ctx, k).Bytes()
			if err == nil {
				var rec Record
				if err := json.Unmarshal(data, &rec); err == nil {
					if time.Since(rec.Timestamp) <= olderThan {
						continue
					}
				}
			}
		}

		if err := s.redis.Del(ctx, k).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", k).Msg("Failed to delete cache record")
			continue
		}
		cleared++
	}
	if err := iter.Err(); err != nil {
		return cleared, fmt.Errorf("redis scan: %w", err)
	}

	return cleared, nil
}

// Stats counts records under the key prefix and sums their serialized sizes.
func (s *RedisStore) Stats(ctx context.Context) (int, int64, error) {
	count := 0
	var size int64
	iter := s.redis.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n, err := s.redis.StrLen(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		count++
		size += n
	}
	if err := iter.Err(); err != nil {
		return count, size, fmt.Errorf("redis scan: %w", err)
	}

	return count, size, nil
}

// Location returns the Redis address and key prefix.
func (s *RedisStore) Location() string {
	return "redis://" + s.redis.Options().Addr + "/" + redisKeyPrefix
}
