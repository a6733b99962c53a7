package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultRedisTimeout = 600 * time.Millisecond
	flushBatchSize      = 256
)

// RedisCache stores entries in Redis so several dashboard processes share one cache.
// Freshness is still decided from the stored timestamp on read.
type RedisCache struct {
	client *redis.Client
	prefix string
	opts   Options
	logger zerolog.Logger
}

type envelope struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// NewRedisCache connects to the Redis instance at rawURL
func NewRedisCache(rawURL, prefix string, opts Options, logger zerolog.Logger) (*RedisCache, error) {
	redisOpts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: prefix,
		opts:   opts,
		logger: logger.With().Str("component", "redis-cache").Logger(),
	}, nil
}

// Get retrieves a value from Redis. Redis failures count as a miss.
func (rc *RedisCache) Get(key string) (Entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRedisTimeout)
	defer cancel()

	data, err := rc.client.Get(ctx, rc.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rc.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		}
		return Entry{}, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		rc.logger.Warn().Err(err).Str("key", key).Msg("failed to decode cached payload")
		return Entry{}, false
	}

	entry := Entry{
		Key:      key,
		Payload:  []byte(env.Payload),
		StoredAt: env.StoredAt,
	}
	if !entry.Valid(rc.opts.now(), rc.opts.TTL) {
		return Entry{}, false
	}

	return entry, true
}

// Set stores a value in Redis. The Redis expiry only bounds storage.
func (rc *RedisCache) Set(key string, payload []byte) {
	if !json.Valid(payload) {
		rc.logger.Warn().Str("key", key).Msg("refusing to cache non-JSON payload")
		return
	}

	env := envelope{
		StoredAt: rc.opts.now().UTC(),
		Payload:  payload,
	}

	data, err := json.Marshal(env)
	if err != nil {
		rc.logger.Warn().Err(err).Str("key", key).Msg("failed to encode cached payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRedisTimeout)
	defer cancel()

	if err := rc.client.Set(ctx, rc.prefix+key, data, rc.opts.TTL).Err(); err != nil {
		rc.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// Flush removes every key under the cache prefix
func (rc *RedisCache) Flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	keys, err := rc.scan(ctx)
	if err != nil {
		rc.logger.Warn().Err(err).Msg("redis scan failed")
		return
	}

	for start := 0; start < len(keys); start += flushBatchSize {
		end := min(start+flushBatchSize, len(keys))
		if err := rc.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			rc.logger.Warn().Err(err).Msg("redis delete failed")
			return
		}
	}
}

// Len returns the number of keys under the cache prefix
func (rc *RedisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	keys, err := rc.scan(ctx)
	if err != nil {
		rc.logger.Warn().Err(err).Msg("redis scan failed")
		return 0
	}
	return len(keys)
}

// Close terminates the underlying Redis client connections
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

func (rc *RedisCache) scan(ctx context.Context) ([]string, error) {
	var keys []string
	iter := rc.client.Scan(ctx, 0, rc.prefix+"*", flushBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
