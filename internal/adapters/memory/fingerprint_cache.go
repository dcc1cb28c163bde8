package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// FingerprintCache answers dedup-membership with a TTL-bound LRU so the set
// stays bounded even under sustained ingest. The TTL equals the fingerprint
// time bucket: once the bucket rolls over, the same semantics hash to a new
// fingerprint anyway.
type FingerprintCache struct {
	lru *expirable.LRU[string, struct{}]
}

var _ ports.FingerprintCache = (*FingerprintCache)(nil)

func NewFingerprintCache(size int, ttl time.Duration) *FingerprintCache {
	if size <= 0 {
		size = 10000
	}
	return &FingerprintCache{lru: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (c *FingerprintCache) Add(_ context.Context, fingerprint string) (bool, error) {
	if _, ok := c.lru.Get(fingerprint); ok {
		return false, nil
	}
	c.lru.Add(fingerprint, struct{}{})
	return true, nil
}
