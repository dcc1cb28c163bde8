package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

func newSession(actorID string, createdAt time.Time, ttl time.Duration) domain.Session {
	return domain.Session{
		SessionID:      uuid.New(),
		ActorID:        actorID,
		DeviceID:       "device-1",
		Method:         domain.MethodPassword,
		CreatedAt:      createdAt,
		LastActivityAt: createdAt,
		ExpiresAt:      createdAt.Add(ttl),
	}
}

func TestSessionStoreGetSemantics(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	session := newSession("actor-1", now, 15*time.Minute)
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if _, err := store.Get(ctx, session.SessionID, now.Add(14*time.Minute)); err != nil {
		t.Fatalf("live session lookup failed: %v", err)
	}
	if _, err := store.Get(ctx, session.SessionID, now.Add(15*time.Minute)); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected expired at boundary, got %v", err)
	}
	if _, err := store.Get(ctx, uuid.New(), now); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}

	if _, err := store.Revoke(ctx, session.SessionID, now); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := store.Get(ctx, session.SessionID, now); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("revoked session must surface as not found, got %v", err)
	}
}

func TestSessionStoreRevokeIdempotent(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	session := newSession("actor-1", now, time.Hour)
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	revoked, err := store.Revoke(ctx, session.SessionID, now)
	if err != nil || !revoked {
		t.Fatalf("first revoke: got (%v, %v), want (true, nil)", revoked, err)
	}
	revoked, err = store.Revoke(ctx, session.SessionID, now)
	if err != nil || revoked {
		t.Fatalf("second revoke: got (%v, %v), want (false, nil)", revoked, err)
	}
	revoked, err = store.Revoke(ctx, uuid.New(), now)
	if err != nil || revoked {
		t.Fatalf("unknown revoke: got (%v, %v), want (false, nil)", revoked, err)
	}
}

func TestSessionStoreReplaceRotation(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	old := newSession("actor-1", now, time.Hour)
	if err := store.Put(ctx, old); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	next := newSession("actor-1", now.Add(time.Minute), time.Hour)
	if err := store.Replace(ctx, old.SessionID, now.Add(time.Minute), next); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	if _, err := store.Get(ctx, old.SessionID, now.Add(2*time.Minute)); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("old session must be revoked after replace, got %v", err)
	}
	if _, err := store.Get(ctx, next.SessionID, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("new session must be live after replace: %v", err)
	}

	// Replacing an already-rotated session must fail and leave nothing behind.
	stray := newSession("actor-1", now, time.Hour)
	if err := store.Replace(ctx, old.SessionID, now.Add(3*time.Minute), stray); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("replace of revoked session should fail, got %v", err)
	}
	if _, err := store.Get(ctx, stray.SessionID, now.Add(3*time.Minute)); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("failed replace must not install the new session")
	}
}

func TestSessionStoreListByActorAndSweep(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	oldest := newSession("actor-1", now, time.Hour)
	newest := newSession("actor-1", now.Add(time.Minute), time.Hour)
	other := newSession("actor-2", now, time.Hour)
	expired := newSession("actor-1", now.Add(-2*time.Hour), time.Hour)
	for _, s := range []domain.Session{newest, oldest, other, expired} {
		if err := store.Put(ctx, s); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}

	list, err := store.ListByActor(ctx, "actor-1", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 live sessions for actor-1, got %d", len(list))
	}
	if list[0].SessionID != oldest.SessionID {
		t.Fatalf("list must be ordered oldest first")
	}

	removed, err := store.DeleteExpired(ctx, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired session removed, got %d", removed)
	}
}
