package database

import (
	"github.com/redis/go-redis/v9"

	"user-admin-service/internal/config"
)

// OpenRedis builds the shared redis client. Redis is optional; without a
// configured URL rate limiting degrades to the in-process limiter.
func OpenRedis(cfg *config.Config) (redis.UniversalClient, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
