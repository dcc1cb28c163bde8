package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether the actor is unknown or the secret was wrong.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLockedOut signals temporary lockout after repeated failed attempts.
	// Callers receive only a generic retry-later response; the remaining
	// lockout duration is never disclosed.
	ErrLockedOut = errors.New("too many failed attempts, try again later")
	// ErrPolicyViolation is returned when a submitted password fails local policy.
	// It is raised before the credential store is ever contacted and does not
	// count toward lockout.
	ErrPolicyViolation = errors.New("password policy violation")
	// ErrHardwareUnavailable is returned when biometric preconditions are unmet.
	// The actor never had a chance to authenticate, so this is not a failed attempt.
	ErrHardwareUnavailable = errors.New("biometric hardware unavailable")
	// ErrTimeout is returned when an external verification call exceeds its deadline.
	ErrTimeout = errors.New("authentication timed out")
	// ErrAborted is returned when the caller cancelled the authentication attempt.
	ErrAborted = errors.New("authentication aborted")

	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	ErrInvalidInput      = errors.New("invalid input")
	ErrEventTypeDisabled = errors.New("event type not enabled")
	// ErrInvalidTransition rejects alert status updates that skip the lifecycle.
	ErrInvalidTransition = errors.New("invalid alert status transition")
)
