package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

// LockoutState is the current failure envelope for a lockout key.
// LockedUntil is set only once the failure threshold is reached.
type LockoutState struct {
	FailedCount    int
	FirstFailureAt time.Time
	LockedUntil    *time.Time
}

// LockoutStore handles short-lived brute-force protection state per key.
// Actor and device keys are tracked independently; the gate is the OR of both.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}

// SessionStore owns the live session set. All mutation goes through its own
// serialization point; callers receive copies.
type SessionStore interface {
	Put(ctx context.Context, session domain.Session) error
	// Get returns ErrSessionNotFound for unknown or revoked sessions and
	// ErrSessionExpired once ExpiresAt has passed. Lookup never returns an
	// invalid session.
	Get(ctx context.Context, sessionID uuid.UUID, now time.Time) (domain.Session, error)
	TouchActivity(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	// Replace atomically revokes the old session and installs the new one in a
	// single critical section. No interleaving observes both or neither valid.
	Replace(ctx context.Context, oldID uuid.UUID, now time.Time, next domain.Session) error
	// Revoke is idempotent; revoking a missing session is not an error.
	// It reports whether a live session was actually revoked.
	Revoke(ctx context.Context, sessionID uuid.UUID, at time.Time) (bool, error)
	ListByActor(ctx context.Context, actorID string, now time.Time) ([]domain.Session, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// EventStore owns the accepted audit-event history: a bounded recent ring for
// correlator queries plus the retained historical set.
type EventStore interface {
	Append(ctx context.Context, event domain.AuditEvent) error
	// Recent returns a snapshot copy of up to limit most recent events in
	// chronological order. The correlator never sees the live ring.
	Recent(ctx context.Context, limit int) ([]domain.AuditEvent, error)
	Query(ctx context.Context, filter domain.EventFilter) ([]domain.AuditEvent, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// FingerprintCache answers "seen within the current dedup bucket".
type FingerprintCache interface {
	// Add records the fingerprint and reports whether it was new.
	Add(ctx context.Context, fingerprint string) (bool, error)
}

// AlertStore owns the alert set: active view plus terminal history.
type AlertStore interface {
	Insert(ctx context.Context, alert domain.SecurityAlert) error
	Get(ctx context.Context, alertID uuid.UUID) (domain.SecurityAlert, error)
	Active(ctx context.Context) ([]domain.SecurityAlert, error)
	History(ctx context.Context, limit int) ([]domain.SecurityAlert, error)
	Update(ctx context.Context, alert domain.SecurityAlert) error
}
