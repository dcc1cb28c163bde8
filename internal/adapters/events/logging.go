package events

import (
	"context"
	"log/slog"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// LoggingPublisher is the alert publisher used when no broker is configured.
type LoggingPublisher struct {
	logger *slog.Logger
}

var _ ports.AlertPublisher = (*LoggingPublisher)(nil)

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, alertType string, payload []byte) error {
	p.logger.InfoContext(ctx, "published alert", "alert_type", alertType, "payload", string(payload))
	return nil
}

// LoggingAuditSink is the persistent-sink collaborator for local runtime:
// accepted events are emitted as structured log lines. Durable storage is the
// platform audit service's concern behind the same port.
type LoggingAuditSink struct {
	logger *slog.Logger
}

var _ ports.PersistentAuditSink = (*LoggingAuditSink)(nil)

func NewLoggingAuditSink(logger *slog.Logger) *LoggingAuditSink {
	return &LoggingAuditSink{logger: logger}
}

func (s *LoggingAuditSink) Append(ctx context.Context, event domain.AuditEvent) error {
	s.logger.InfoContext(ctx, "audit event",
		"module", "events.audit_sink",
		"layer", "adapter",
		"event_id", event.EventID,
		"event_type", event.Type,
		"severity", event.Severity,
		"actor_id", event.ActorID,
		"action", event.Action,
		"outcome", event.Outcome,
	)
	return nil
}
