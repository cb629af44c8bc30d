package cache

import (
	"fmt"

	"recoup/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the shared redis client used for the dedup cache,
// the distributed locks, and the job queue.
func NewRedisClient(cfg config.RedisSettings) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
