package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// EventStore keeps accepted audit events: a fixed-capacity ring of the most
// recent events for correlator queries, plus the retained historical set
// pruned by the retention sweep. Reads hand out copies, never the live ring.
type EventStore struct {
	mu       sync.RWMutex
	ring     []domain.AuditEvent
	ringCap  int
	ringHead int
	ringLen  int
	history  []domain.AuditEvent
}

var _ ports.EventStore = (*EventStore)(nil)

func NewEventStore(ringCapacity int) *EventStore {
	if ringCapacity <= 0 {
		ringCapacity = 1000
	}
	return &EventStore{
		ring:    make([]domain.AuditEvent, ringCapacity),
		ringCap: ringCapacity,
	}
}

func (s *EventStore) Append(_ context.Context, event domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := (s.ringHead + s.ringLen) % s.ringCap
	s.ring[idx] = event
	if s.ringLen < s.ringCap {
		s.ringLen++
	} else {
		// Ring full: oldest evicted first.
		s.ringHead = (s.ringHead + 1) % s.ringCap
	}

	s.history = append(s.history, event)
	return nil
}

func (s *EventStore) Recent(_ context.Context, limit int) ([]domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.ringLen
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.AuditEvent, 0, n)
	start := s.ringLen - n
	for i := start; i < s.ringLen; i++ {
		out = append(out, s.ring[(s.ringHead+i)%s.ringCap])
	}
	return out, nil
}

func (s *EventStore) Query(_ context.Context, filter domain.EventFilter) ([]domain.AuditEvent, error) {
	s.mu.RLock()
	matched := make([]domain.AuditEvent, 0, 32)
	for _, event := range s.history {
		if filter.Matches(event) {
			matched = append(matched, event)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if filter.Ascending {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.AuditEvent{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *EventStore) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.history[:0]
	removed := 0
	for _, event := range s.history {
		if event.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	s.history = kept
	return removed, nil
}
