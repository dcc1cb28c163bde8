package security

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

func TestJWTSignerRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("init signer: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	claims := ports.RefreshClaims{
		SessionID: uuid.New(),
		ActorID:   "actor-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	token, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := signer.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.SessionID != claims.SessionID {
		t.Fatalf("session id mismatch: %s != %s", parsed.SessionID, claims.SessionID)
	}
	if parsed.ActorID != claims.ActorID {
		t.Fatalf("actor id mismatch")
	}
	if parsed.KeyID != "test-key-1" {
		t.Fatalf("kid = %q, want test-key-1", parsed.KeyID)
	}
	if !parsed.ExpiresAt.Equal(claims.ExpiresAt) {
		t.Fatalf("expiry mismatch: %v != %v", parsed.ExpiresAt, claims.ExpiresAt)
	}
}

func TestJWTSignerRejectsTampering(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("init signer: %v", err)
	}

	now := time.Now().UTC()
	token, err := signer.Sign(ports.RefreshClaims{
		SessionID: uuid.New(),
		ActorID:   "actor-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := signer.ParseAndValidate(tampered); err == nil {
		t.Fatalf("tampered signature must be rejected")
	}

	// A token from a different keypair fails verification too.
	other, err := NewEphemeralJWTSigner("test-key-2")
	if err != nil {
		t.Fatalf("init other signer: %v", err)
	}
	foreign, err := other.Sign(ports.RefreshClaims{
		SessionID: uuid.New(),
		ActorID:   "actor-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign foreign: %v", err)
	}
	if _, err := signer.ParseAndValidate(foreign); err == nil {
		t.Fatalf("foreign token must be rejected")
	}
}

func TestJWTSignerRejectsExpired(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("init signer: %v", err)
	}

	now := time.Now().UTC()
	token, err := signer.Sign(ports.RefreshClaims{
		SessionID: uuid.New(),
		ActorID:   "actor-1",
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(token); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}
