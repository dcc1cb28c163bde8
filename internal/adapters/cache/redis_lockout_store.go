package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// RedisLockoutStore keeps brute-force lockout state in Redis so multiple
// replicas share one failure count per key. TTLs reclaim stale records,
// replacing the in-memory store's sweep.
type RedisLockoutStore struct {
	client *redis.Client
}

var _ ports.LockoutStore = (*RedisLockoutStore)(nil)

func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client}
}

func (s *RedisLockoutStore) Get(ctx context.Context, key string) (ports.LockoutState, error) {
	data, err := s.client.HGetAll(ctx, "secsession:lockout:"+key).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}
	if len(data) == 0 {
		return ports.LockoutState{}, nil
	}
	return stateFromHash(data), nil
}

func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	redisKey := "secsession:lockout:" + key

	// Lazy Locked -> Clear: an expired lock resets the record before the
	// arriving failure is counted.
	existing, err := s.Get(ctx, key)
	if err != nil {
		return ports.LockoutState{}, err
	}
	if existing.LockedUntil != nil && !existing.LockedUntil.After(now) {
		if err := s.client.Del(ctx, redisKey).Err(); err != nil {
			return ports.LockoutState{}, err
		}
	}

	count, err := s.client.HIncrBy(ctx, redisKey, "failed_count", 1).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}
	if count == 1 {
		_ = s.client.HSet(ctx, redisKey, "first_failure_at", now.Unix()).Err()
	}

	state := ports.LockoutState{FailedCount: int(count), FirstFailureAt: now}
	if int(count) >= threshold {
		lockedUntil := now.Add(lockoutWindow).UTC()
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, redisKey, "locked_until", lockedUntil.Unix())
			p.Expire(ctx, redisKey, lockoutWindow+30*time.Minute)
			return nil
		})
		if err != nil {
			return ports.LockoutState{}, err
		}
		state.LockedUntil = &lockedUntil
		return state, nil
	}

	_ = s.client.Expire(ctx, redisKey, 24*time.Hour).Err()
	return state, nil
}

func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, "secsession:lockout:"+key).Err()
}

func stateFromHash(data map[string]string) ports.LockoutState {
	state := ports.LockoutState{}
	if raw, ok := data["failed_count"]; ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			state.FailedCount = n
		}
	}
	if raw, ok := data["first_failure_at"]; ok && raw != "" {
		if unix, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil && unix > 0 {
			state.FirstFailureAt = time.Unix(unix, 0).UTC()
		}
	}
	if raw, ok := data["locked_until"]; ok && raw != "" {
		if unix, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil && unix > 0 {
			t := time.Unix(unix, 0).UTC()
			state.LockedUntil = &t
		}
	}
	return state
}
