package ports

import (
	"time"

	"github.com/google/uuid"
)

// PasswordHasher abstracts credential hashing for the dev credential store.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// RefreshClaims bind a refresh token to exactly one session. Rotation checks
// the embedded session ID against the presented one.
type RefreshClaims struct {
	SessionID uuid.UUID `json:"session_id"`
	ActorID   string    `json:"actor_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	KeyID     string    `json:"kid"`
}

// RefreshTokenSigner issues and validates session refresh tokens.
type RefreshTokenSigner interface {
	Sign(claims RefreshClaims) (string, error)
	ParseAndValidate(token string) (RefreshClaims, error)
}
