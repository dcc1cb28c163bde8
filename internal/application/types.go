package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

// AuthenticateRequest carries one authentication attempt.
type AuthenticateRequest struct {
	ActorID  string
	DeviceID string
	Method   string
	Secret   string
	Prompt   string
}

// AuthenticationResult is returned on a successful attempt.
type AuthenticationResult struct {
	SessionID    uuid.UUID
	ActorID      string
	DeviceID     string
	Method       domain.AuthMethod
	CreatedAt    time.Time
	ExpiresAt    time.Time
	RefreshToken string
	Risk         domain.RiskAssessment
}

// RefreshResult is the rotated session pair returned by RefreshSession.
type RefreshResult struct {
	SessionID    uuid.UUID
	ExpiresAt    time.Time
	RefreshToken string
}

// LogEventRequest is one audit event as submitted by a caller. Zero-valued
// optional fields are filled in by the ingestor.
type LogEventRequest struct {
	Type          string
	Severity      string
	ActorID       string
	TargetID      string
	Action        string
	Outcome       string
	CorrelationID string
	Extra         map[string]string
	Timestamp     time.Time
}

// IngestResult summarizes a batch submission.
type IngestResult struct {
	Accepted     int
	Deduplicated int
	Rejected     int
}

// UpdateAlertRequest moves an alert through its lifecycle.
type UpdateAlertRequest struct {
	AlertID  uuid.UUID
	Status   string
	Assignee string
}
