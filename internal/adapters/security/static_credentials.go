package security

import (
	"context"
	"sync"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// StaticCredentialStore is a hash-at-rest in-memory credential verifier for
// local runtime and tests. Production deployments wire the platform
// credential service behind the same port instead.
type StaticCredentialStore struct {
	mu     sync.RWMutex
	hasher ports.PasswordHasher
	hashes map[string]string
}

var _ ports.CredentialStore = (*StaticCredentialStore)(nil)

func NewStaticCredentialStore(hasher ports.PasswordHasher) *StaticCredentialStore {
	return &StaticCredentialStore{
		hasher: hasher,
		hashes: make(map[string]string),
	}
}

// Seed registers a secret for a key (actor ID, or "device:"+deviceID for
// passcodes). The plaintext is hashed immediately and discarded.
func (s *StaticCredentialStore) Seed(key, secret string) error {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[key] = hash
	return nil
}

func (s *StaticCredentialStore) Verify(ctx context.Context, key, secret string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	hash, ok := s.hashes[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return s.hasher.Compare(hash, secret) == nil, nil
}
