package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertType identifies which detector produced an alert.
type AlertType string

const (
	AlertFailedLoginAttempts AlertType = "failedLoginAttempts"
	AlertExcessiveDataAccess AlertType = "excessiveDataAccess"
	AlertConfigurationChurn  AlertType = "configurationChurn"
	AlertPrivilegeEscalation AlertType = "privilegeEscalation"
)

// AlertStatus follows open -> investigating -> {resolved|falsePositive|escalated}.
type AlertStatus string

const (
	AlertOpen          AlertStatus = "open"
	AlertInvestigating AlertStatus = "investigating"
	AlertResolved      AlertStatus = "resolved"
	AlertFalsePositive AlertStatus = "falsePositive"
	AlertEscalated     AlertStatus = "escalated"
)

// ParseAlertStatus validates a status string from the wire.
func ParseAlertStatus(raw string) (AlertStatus, error) {
	switch AlertStatus(raw) {
	case AlertOpen, AlertInvestigating, AlertResolved, AlertFalsePositive, AlertEscalated:
		return AlertStatus(raw), nil
	default:
		return "", ErrInvalidInput
	}
}

// IsTerminal reports whether the status removes the alert from the active view.
func (s AlertStatus) IsTerminal() bool {
	switch s {
	case AlertResolved, AlertFalsePositive, AlertEscalated:
		return true
	default:
		return false
	}
}

// CanTransition encodes the allowed lifecycle edges. Terminal states accept
// no further updates.
func (s AlertStatus) CanTransition(next AlertStatus) bool {
	switch s {
	case AlertOpen:
		return next == AlertInvestigating || next.IsTerminal()
	case AlertInvestigating:
		return next.IsTerminal()
	default:
		return false
	}
}

// SecurityAlert is produced by the correlator when a detector threshold is
// crossed. TriggerEvents is a capped sample of the qualifying events.
type SecurityAlert struct {
	AlertID       uuid.UUID    `json:"alert_id"`
	Type          AlertType    `json:"type"`
	Severity      string       `json:"severity"`
	TriggerEvents []AuditEvent `json:"trigger_events"`
	RiskScore     float64      `json:"risk_score"`
	Status        AlertStatus  `json:"status"`
	Assignee      string       `json:"assignee,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// AlertSeverityForScore maps the alert risk score to an event severity bucket.
func AlertSeverityForScore(score float64) string {
	switch {
	case score >= 0.75:
		return SeverityCritical
	case score >= 0.4:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
