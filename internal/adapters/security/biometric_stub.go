package security

import (
	"context"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// UnavailableBiometricHardware is the default hardware collaborator when no
// sensor integration is configured. It reports the capability honestly so
// biometric attempts short-circuit with a hardware-unavailable error instead
// of pretending to verify.
type UnavailableBiometricHardware struct{}

var _ ports.BiometricHardware = UnavailableBiometricHardware{}

func NewUnavailableBiometricHardware() UnavailableBiometricHardware {
	return UnavailableBiometricHardware{}
}

func (UnavailableBiometricHardware) Capabilities(context.Context) (ports.BiometricCapabilities, error) {
	return ports.BiometricCapabilities{Available: false}, nil
}

func (UnavailableBiometricHardware) Evaluate(context.Context, string, string) (bool, error) {
	return false, nil
}
