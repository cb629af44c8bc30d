package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Service wraps the redis client with the small cache surface the
// settlement pipeline needs.
type Service struct {
	client *redis.Client
}

func NewService(client *redis.Client) *Service {
	if client == nil {
		panic("redis client is required")
	}
	return &Service{client: client}
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Service) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// ClaimOnce atomically claims a key for ttl. It returns true only for the
// first caller; every concurrent or later claim within the ttl gets false.
// Webhook dedup uses this as the fast path in front of the database unique
// index.
func (s *Service) ClaimOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, 1, ttl).Result()
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.client.Close()
}
