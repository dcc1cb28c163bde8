package memory

import (
	"context"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// LockoutStore tracks failed-attempt state per key in process memory.
// Expiry is lazy: a locked record clears only when a new attempt arrives
// after LockedUntil. Sweep exists purely to reclaim memory.
type LockoutStore struct {
	mu      sync.Mutex
	records map[string]ports.LockoutState
}

func NewLockoutStore() *LockoutStore {
	return &LockoutStore{records: make(map[string]ports.LockoutState)}
}

func (s *LockoutStore) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key], nil
}

func (s *LockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.records[key]
	if state.LockedUntil != nil && !state.LockedUntil.After(now) {
		// Locked -> Clear on the arriving attempt, then count it fresh.
		state = ports.LockoutState{}
	}

	if state.FailedCount == 0 {
		state.FirstFailureAt = now
	}
	state.FailedCount++

	if state.FailedCount >= threshold && state.LockedUntil == nil {
		until := now.Add(lockoutWindow)
		state.LockedUntil = &until
	}

	s.records[key] = state
	return state, nil
}

func (s *LockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Sweep drops records whose lockout has expired and stale warning-only
// records older than the lockout window. Correctness never depends on it.
func (s *LockoutStore) Sweep(_ context.Context, now time.Time, lockoutWindow time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, state := range s.records {
		expired := state.LockedUntil != nil && !state.LockedUntil.After(now)
		stale := state.LockedUntil == nil && now.Sub(state.FirstFailureAt) > lockoutWindow
		if expired || stale {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}
