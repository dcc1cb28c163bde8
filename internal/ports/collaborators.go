package ports

import (
	"context"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

// CredentialStore is the external secret-verification collaborator.
// The core never stores credentials; it only asks for a verdict. Verify must
// honor context cancellation and deadlines.
type CredentialStore interface {
	Verify(ctx context.Context, actorID, secret string) (bool, error)
}

// BiometricCapabilities reports the hardware preconditions for a biometric
// attempt. All three must hold before Evaluate is ever called.
type BiometricCapabilities struct {
	Available bool
	Enrolled  bool
	LockedOut bool
	Kind      string
}

// BiometricHardware is the external sensor collaborator.
type BiometricHardware interface {
	Capabilities(ctx context.Context) (BiometricCapabilities, error)
	// Evaluate performs the hardware prompt. It must be cancellable.
	Evaluate(ctx context.Context, actorID, prompt string) (bool, error)
}

// PersistentAuditSink receives accepted events fire-and-forget. The core does
// not block on it and tolerates sink errors; implementations own durability.
type PersistentAuditSink interface {
	Append(ctx context.Context, event domain.AuditEvent) error
}
