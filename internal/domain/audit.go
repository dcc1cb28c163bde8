package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType classifies security events accepted by the ingestor.
type EventType string

const (
	EventAuthentication      EventType = "authentication"
	EventSessionLifecycle    EventType = "sessionLifecycle"
	EventDataAccess          EventType = "dataAccess"
	EventConfigurationChange EventType = "configurationChange"
	EventPrivilegeEscalation EventType = "privilegeEscalation"
	EventSecurityViolation   EventType = "securityViolation"
)

// AllEventTypes is the default enabled set.
func AllEventTypes() []EventType {
	return []EventType{
		EventAuthentication,
		EventSessionLifecycle,
		EventDataAccess,
		EventConfigurationChange,
		EventPrivilegeEscalation,
		EventSecurityViolation,
	}
}

// ParseEventType validates an event type string from the wire.
func ParseEventType(raw string) (EventType, error) {
	for _, t := range AllEventTypes() {
		if string(t) == strings.TrimSpace(raw) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, raw)
}

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// AuditEvent is an immutable structured security event. Extra carries
// genuinely open-ended attributes; everything the correlator needs is typed.
type AuditEvent struct {
	EventID       uuid.UUID         `json:"event_id"`
	Timestamp     time.Time         `json:"timestamp"`
	Type          EventType         `json:"type"`
	Severity      string            `json:"severity"`
	ActorID       string            `json:"actor_id"`
	TargetID      string            `json:"target_id,omitempty"`
	Action        string            `json:"action"`
	Outcome       string            `json:"outcome"`
	Fingerprint   string            `json:"fingerprint"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// ComputeFingerprint derives the dedup key from the event's semantic fields
// and its time bucket. Two events with identical semantics inside one bucket
// coalesce into a single stored record.
func (e AuditEvent) ComputeFingerprint(bucket time.Duration) string {
	idx := int64(0)
	if bucket > 0 {
		idx = e.Timestamp.UnixNano() / int64(bucket)
	}
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s|%s|%d",
		e.Type, e.ActorID, e.TargetID, e.Action, e.Outcome, idx))
	return hex.EncodeToString(h[:])
}

// EventFilter selects events for QueryEvents. Zero values match everything.
type EventFilter struct {
	From       time.Time
	To         time.Time
	Types      []EventType
	Severities []string
	ActorID    string
	TargetID   string
	Outcome    string
	Search     string
	Limit      int
	Offset     int
	Ascending  bool
}

// Matches reports whether the event passes every populated criterion.
func (f EventFilter) Matches(e AuditEvent) bool {
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, e.Type) {
		return false
	}
	if len(f.Severities) > 0 && !containsString(f.Severities, e.Severity) {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.TargetID != "" && e.TargetID != f.TargetID {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Action), needle) &&
			!strings.Contains(strings.ToLower(e.ActorID), needle) &&
			!strings.Contains(strings.ToLower(e.TargetID), needle) {
			return false
		}
	}
	return true
}

func containsType(set []EventType, v EventType) bool {
	for _, t := range set {
		if t == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
