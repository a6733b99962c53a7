package cache

import (
	"fmt"

	"github.com/rs/zerolog"

	"somniadash/internal/config"
)

// NewFromConfig picks the cache implementation described by cfg
func NewFromConfig(cfg config.CacheConfig, clock Clock, logger zerolog.Logger) (Cache, error) {
	opts := Options{TTL: cfg.GetTTLDuration(), Clock: clock}

	switch {
	case cfg.Disabled:
		logger.Info().Msg("response cache disabled")
		return NewNoopCache(), nil

	case cfg.IsRedisEnabled():
		rc, err := NewRedisCache(cfg.RedisURL, cfg.KeyPrefix, opts, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		logger.Info().
			Str("prefix", cfg.KeyPrefix).
			Dur("ttl", opts.TTL).
			Msg("response cache backed by redis")
		return rc, nil

	case cfg.MaxEntries > 0:
		bc, err := NewBoundedCache(cfg.MaxEntries, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create bounded cache: %w", err)
		}
		logger.Info().
			Int("maxEntries", cfg.MaxEntries).
			Dur("ttl", opts.TTL).
			Msg("response cache enabled (bounded)")
		return bc, nil

	default:
		logger.Info().Dur("ttl", opts.TTL).Msg("response cache enabled")
		return NewMemoryCache(opts), nil
	}
}
