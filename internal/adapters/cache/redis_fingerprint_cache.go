package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// RedisFingerprintCache shares event dedup state across replicas via SETNX
// with a bucket-aligned TTL.
type RedisFingerprintCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.FingerprintCache = (*RedisFingerprintCache)(nil)

func NewRedisFingerprintCache(client *redis.Client, ttl time.Duration) *RedisFingerprintCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisFingerprintCache{client: client, ttl: ttl}
}

func (c *RedisFingerprintCache) Add(ctx context.Context, fingerprint string) (bool, error) {
	return c.client.SetNX(ctx, "secsession:fp:"+fingerprint, "1", c.ttl).Result()
}
