package domain

import (
	"fmt"
	"strings"
)

// AuthMethod identifies how an actor proves identity.
// The set is closed; risk weighting in risk.go depends on it.
type AuthMethod string

const (
	MethodPassword    AuthMethod = "password"
	MethodBiometric   AuthMethod = "biometric"
	MethodPasscode    AuthMethod = "passcode"
	MethodCertificate AuthMethod = "certificate"
	MethodMFA         AuthMethod = "mfa"
)

// ParseAuthMethod normalizes and validates a method string from the wire.
func ParseAuthMethod(raw string) (AuthMethod, error) {
	switch AuthMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case MethodPassword:
		return MethodPassword, nil
	case MethodBiometric:
		return MethodBiometric, nil
	case MethodPasscode:
		return MethodPasscode, nil
	case MethodCertificate:
		return MethodCertificate, nil
	case MethodMFA:
		return MethodMFA, nil
	default:
		return "", fmt.Errorf("%w: unknown authentication method %q", ErrInvalidInput, raw)
	}
}

// Credentials carries the material for one authentication attempt.
// Secret is the password or device passcode; biometric attempts carry only
// the user-facing prompt forwarded to the hardware collaborator.
type Credentials struct {
	ActorID  string
	DeviceID string
	Secret   string
	Prompt   string
}

// AuthOutcome is the verifier-level result before sessions and risk scoring.
// Confidence is the verifier's own certainty in [0,1] and feeds the risk engine.
type AuthOutcome struct {
	ActorID    string
	Method     AuthMethod
	Confidence float64
}
