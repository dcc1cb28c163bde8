package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// SessionStore keeps the live session set behind one mutex. Refresh rotation
// happens inside a single critical section so a concurrent lookup sees either
// the old session (still valid) or the new one, never neither.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]domain.Session
}

var _ ports.SessionStore = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]domain.Session)}
}

func (s *SessionStore) Put(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID uuid.UUID, now time.Time) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.RevokedAt != nil {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if !session.ExpiresAt.After(now) {
		return domain.Session{}, domain.ErrSessionExpired
	}
	return session, nil
}

func (s *SessionStore) TouchActivity(_ context.Context, sessionID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.RevokedAt != nil {
		return domain.ErrSessionNotFound
	}
	session.LastActivityAt = at
	s.sessions[sessionID] = session
	return nil
}

func (s *SessionStore) Replace(_ context.Context, oldID uuid.UUID, now time.Time, next domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.sessions[oldID]
	if !ok || old.RevokedAt != nil {
		return domain.ErrSessionNotFound
	}
	if !old.ExpiresAt.After(now) {
		return domain.ErrSessionExpired
	}

	revokedAt := now
	old.RevokedAt = &revokedAt
	s.sessions[oldID] = old
	s.sessions[next.SessionID] = next
	return nil
}

func (s *SessionStore) Revoke(_ context.Context, sessionID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.RevokedAt != nil {
		return false, nil
	}
	session.RevokedAt = &at
	s.sessions[sessionID] = session
	return true, nil
}

func (s *SessionStore) ListByActor(_ context.Context, actorID string, now time.Time) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Session, 0, 4)
	for _, session := range s.sessions {
		if session.ActorID == actorID && session.Alive(now) {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.RevokedAt != nil || !session.ExpiresAt.After(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
