package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// authenticator is one pluggable verification strategy. Implementations
// report a method-specific confidence on success and classify failures with
// the domain sentinels so the service can decide what counts toward lockout.
type authenticator interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (domain.AuthOutcome, error)
}

type passwordAuthenticator struct {
	policy domain.PasswordPolicy
	store  ports.CredentialStore
}

func (a *passwordAuthenticator) Authenticate(ctx context.Context, creds domain.Credentials) (domain.AuthOutcome, error) {
	if strings.TrimSpace(creds.ActorID) == "" {
		return domain.AuthOutcome{}, fmt.Errorf("%w: actor id is required", domain.ErrInvalidInput)
	}
	// Policy runs before any store contact so malformed secrets are rejected
	// without touching the credential backend or the lockout counter.
	if err := a.policy.Validate(creds.Secret); err != nil {
		return domain.AuthOutcome{}, err
	}
	ok, err := a.store.Verify(ctx, creds.ActorID, creds.Secret)
	if err != nil {
		return domain.AuthOutcome{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domain.AuthOutcome{}, domain.ErrInvalidCredentials
	}
	return domain.AuthOutcome{ActorID: creds.ActorID, Method: domain.MethodPassword, Confidence: 0.75}, nil
}

type biometricAuthenticator struct {
	hardware ports.BiometricHardware
}

func (a *biometricAuthenticator) Authenticate(ctx context.Context, creds domain.Credentials) (domain.AuthOutcome, error) {
	caps, err := a.hardware.Capabilities(ctx)
	if err != nil {
		return domain.AuthOutcome{}, fmt.Errorf("%w: %v", domain.ErrHardwareUnavailable, err)
	}
	switch {
	case !caps.Available:
		return domain.AuthOutcome{}, fmt.Errorf("%w: no biometric hardware present", domain.ErrHardwareUnavailable)
	case !caps.Enrolled:
		return domain.AuthOutcome{}, fmt.Errorf("%w: biometrics not enrolled", domain.ErrHardwareUnavailable)
	case caps.LockedOut:
		return domain.AuthOutcome{}, fmt.Errorf("%w: biometric sensor locked", domain.ErrHardwareUnavailable)
	}
	ok, err := a.hardware.Evaluate(ctx, creds.ActorID, creds.Prompt)
	if err != nil {
		return domain.AuthOutcome{}, fmt.Errorf("evaluate biometric: %w", err)
	}
	if !ok {
		return domain.AuthOutcome{}, domain.ErrInvalidCredentials
	}
	return domain.AuthOutcome{ActorID: creds.ActorID, Method: domain.MethodBiometric, Confidence: 0.90}, nil
}

type passcodeAuthenticator struct {
	store ports.CredentialStore
}

func (a *passcodeAuthenticator) Authenticate(ctx context.Context, creds domain.Credentials) (domain.AuthOutcome, error) {
	if strings.TrimSpace(creds.DeviceID) == "" {
		return domain.AuthOutcome{}, fmt.Errorf("%w: device id is required for passcode auth", domain.ErrInvalidInput)
	}
	if len(creds.Secret) < 4 {
		return domain.AuthOutcome{}, fmt.Errorf("%w: passcode must be at least 4 characters", domain.ErrPolicyViolation)
	}
	// Passcodes are bound to the device, not the actor.
	ok, err := a.store.Verify(ctx, "device:"+creds.DeviceID, creds.Secret)
	if err != nil {
		return domain.AuthOutcome{}, fmt.Errorf("verify passcode: %w", err)
	}
	if !ok {
		return domain.AuthOutcome{}, domain.ErrInvalidCredentials
	}
	return domain.AuthOutcome{ActorID: creds.ActorID, Method: domain.MethodPasscode, Confidence: 0.60}, nil
}
