package ports

import (
	"context"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

// AlertPublisher delivers serialized alerts to an external channel (broker,
// log, webhook). It is adapter-neutral so the relay stays broker-agnostic.
type AlertPublisher interface {
	Publish(ctx context.Context, alertType string, payload []byte) error
}

// AlertQueue accepts newly created alerts for asynchronous delivery.
// Enqueue must never block the correlator.
type AlertQueue interface {
	Enqueue(alert domain.SecurityAlert)
}
