package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session models a bounded-lifetime authenticated session.
// The session store is the only mutator; everything else reads copies.
// RevokedAt is a pointer so "never revoked" stays distinguishable from a
// revocation at the zero time.
type Session struct {
	SessionID      uuid.UUID
	ActorID        string
	DeviceID       string
	Method         AuthMethod
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	RiskScore      float64
	RevokedAt      *time.Time
}

// Alive reports whether the session is neither revoked nor expired at now.
// Validation fails closed: an expired-but-not-yet-swept session is not alive.
func (s Session) Alive(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	return s.ExpiresAt.After(now)
}
