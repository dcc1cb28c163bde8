package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy is the local pre-check applied before the credential store
// is contacted. Violations surface immediately and never count toward lockout.
type PasswordPolicy struct {
	MinLength     int
	MaxLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPasswordPolicy mirrors the platform baseline.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     12,
		MaxLength:     128,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// Validate enforces the policy on a submitted password.
func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrPolicyViolation, p.MinLength)
	}
	if p.MaxLength > 0 && len(password) > p.MaxLength {
		return fmt.Errorf("%w: password must be <= %d characters", ErrPolicyViolation, p.MaxLength)
	}

	var (
		hasUpper bool
		hasLower bool
		hasDigit bool
		hasPunct bool
	)

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasPunct = true
		}
	}

	if p.RequireUpper && !hasUpper {
		return fmt.Errorf("%w: password must include an uppercase character", ErrPolicyViolation)
	}
	if p.RequireLower && !hasLower {
		return fmt.Errorf("%w: password must include a lowercase character", ErrPolicyViolation)
	}
	if p.RequireDigit && !hasDigit {
		return fmt.Errorf("%w: password must include a digit", ErrPolicyViolation)
	}
	if p.RequireSymbol && !hasPunct {
		return fmt.Errorf("%w: password must include a symbol", ErrPolicyViolation)
	}

	lowered := strings.ToLower(password)
	for _, banned := range []string{"password", "qwerty", "123456", "letmein"} {
		if strings.Contains(lowered, banned) {
			return fmt.Errorf("%w: password includes weak pattern", ErrPolicyViolation)
		}
	}

	return nil
}
