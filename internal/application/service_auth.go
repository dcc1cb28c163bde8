package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// Authenticate runs one attempt end to end: lockout gate, method strategy,
// risk assessment, session creation, refresh token issue, audit emission.
//
// The lockout gate checks both the actor and the device key; either being
// locked fails the attempt with a uniform ErrLockedOut that discloses neither
// the remaining duration nor which key tripped.
func (s *Service) Authenticate(ctx context.Context, req AuthenticateRequest) (AuthenticationResult, error) {
	started := time.Now()
	s.metrics.authAttempts.Add(1)

	method, err := domain.ParseAuthMethod(req.Method)
	if err != nil {
		return AuthenticationResult{}, err
	}
	strategy, ok := s.authenticators[method]
	if !ok {
		return AuthenticationResult{}, fmt.Errorf("%w: method %q is not configured", domain.ErrInvalidInput, method)
	}

	now := s.nowFn()
	actorKey := actorLockKey(req.ActorID)
	deviceKey := deviceLockKey(req.DeviceID)

	locked, err := s.anyLocked(ctx, now, actorKey, deviceKey)
	if err != nil {
		return AuthenticationResult{}, fmt.Errorf("check lockout: %w", err)
	}
	if locked {
		s.emitAuthEvent(ctx, req, method, domain.OutcomeDenied, "attempt rejected while locked out")
		return AuthenticationResult{}, domain.ErrLockedOut
	}

	authCtx := ctx
	if s.cfg.AuthTimeout > 0 {
		var cancel context.CancelFunc
		authCtx, cancel = context.WithTimeout(ctx, s.cfg.AuthTimeout)
		defer cancel()
	}

	outcome, err := strategy.Authenticate(authCtx, domain.Credentials{
		ActorID:  req.ActorID,
		DeviceID: req.DeviceID,
		Secret:   req.Secret,
		Prompt:   req.Prompt,
	})
	if err != nil {
		return AuthenticationResult{}, s.classifyAuthFailure(ctx, req, method, now, err)
	}

	// Success clears both counters so a later stray failure starts from zero.
	if err := s.lockouts.Clear(ctx, actorKey); err != nil {
		s.logger.Warn("clear actor lockout failed", s.logAttrs("authenticate", "degraded", slog.Any("error", err))...)
	}
	if err := s.lockouts.Clear(ctx, deviceKey); err != nil {
		s.logger.Warn("clear device lockout failed", s.logAttrs("authenticate", "degraded", slog.Any("error", err))...)
	}

	risk := domain.AssessRisk(domain.RiskInput{
		Method:           method,
		Confidence:       outcome.Confidence,
		DeviceTrusted:    s.deviceTrusted(req.DeviceID),
		Timestamp:        now,
		NormalHoursStart: s.cfg.NormalHoursStart,
		NormalHoursEnd:   s.cfg.NormalHoursEnd,
	})

	session, err := s.createSession(ctx, req, method, now, risk.Score)
	if err != nil {
		return AuthenticationResult{}, err
	}

	token, err := s.tokens.Sign(ports.RefreshClaims{
		SessionID: session.SessionID,
		ActorID:   session.ActorID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	})
	if err != nil {
		// A session without a refresh token is unusable past its timeout;
		// roll it back rather than hand out a half-issued result.
		if _, revokeErr := s.sessions.Revoke(ctx, session.SessionID, now); revokeErr != nil {
			s.logger.Error("rollback session after token failure", s.logAttrs("authenticate", "error", slog.Any("error", revokeErr))...)
		}
		return AuthenticationResult{}, fmt.Errorf("sign refresh token: %w", err)
	}

	s.metrics.authSuccesses.Add(1)
	s.metrics.authLatencyNanos.Add(int64(time.Since(started)))
	s.emitAuthEvent(ctx, req, method, domain.OutcomeSuccess, "authenticated")
	s.logger.Info("authentication succeeded",
		s.logAttrs("authenticate", "success",
			slog.String("actor_id", req.ActorID),
			slog.String("method", string(method)),
			slog.String("risk_level", string(risk.Level)),
		)...)

	return AuthenticationResult{
		SessionID:    session.SessionID,
		ActorID:      session.ActorID,
		DeviceID:     session.DeviceID,
		Method:       method,
		CreatedAt:    session.CreatedAt,
		ExpiresAt:    session.ExpiresAt,
		RefreshToken: token,
		Risk:         risk,
	}, nil
}

// classifyAuthFailure maps a strategy error onto the attempt taxonomy and
// decides whether the failure counts toward lockout. Policy violations and
// hardware faults never increment; wrong credentials and collaborator
// deadline overruns do. A caller-side cancellation aborts without a trace on
// the counter.
func (s *Service) classifyAuthFailure(ctx context.Context, req AuthenticateRequest, method domain.AuthMethod, now time.Time, cause error) error {
	switch {
	case errors.Is(cause, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: authentication cancelled", domain.ErrAborted)

	case errors.Is(cause, context.DeadlineExceeded):
		s.recordAuthFailure(ctx, req, method, now, "collaborator deadline exceeded")
		return fmt.Errorf("%w: authentication exceeded %s", domain.ErrTimeout, s.cfg.AuthTimeout)

	case errors.Is(cause, domain.ErrPolicyViolation):
		s.emitAuthEvent(ctx, req, method, domain.OutcomeDenied, "credential rejected by policy")
		return cause

	case errors.Is(cause, domain.ErrHardwareUnavailable), errors.Is(cause, domain.ErrInvalidInput):
		return cause

	case errors.Is(cause, domain.ErrInvalidCredentials):
		s.recordAuthFailure(ctx, req, method, now, "invalid credentials")
		return domain.ErrInvalidCredentials

	default:
		// Infrastructure fault in a collaborator. The actor did nothing
		// wrong, so the counter stays where it is.
		s.logger.Error("authentication collaborator failed", s.logAttrs("authenticate", "error", slog.Any("error", cause))...)
		return fmt.Errorf("authenticate %s: %w", method, cause)
	}
}

func (s *Service) recordAuthFailure(ctx context.Context, req AuthenticateRequest, method domain.AuthMethod, now time.Time, reason string) {
	for _, key := range []string{actorLockKey(req.ActorID), deviceLockKey(req.DeviceID)} {
		if key == "" {
			continue
		}
		state, err := s.lockouts.RecordFailure(ctx, key, now, s.cfg.MaxFailedAttempts, s.cfg.LockoutDuration)
		if err != nil {
			s.logger.Warn("record lockout failure", s.logAttrs("authenticate", "degraded", slog.Any("error", err), slog.String("key", key))...)
			continue
		}
		if state.LockedUntil != nil {
			s.logger.Warn("lockout engaged",
				s.logAttrs("authenticate", "denied",
					slog.String("key", key),
					slog.Int("failed_count", state.FailedCount),
				)...)
		}
	}
	s.emitAuthEvent(ctx, req, method, domain.OutcomeFailure, reason)
}

// createSession installs a new session, enforcing the per-actor cap by
// revoking the oldest live session when the cap would be exceeded.
func (s *Service) createSession(ctx context.Context, req AuthenticateRequest, method domain.AuthMethod, now time.Time, riskScore float64) (domain.Session, error) {
	if limit := s.cfg.MaxSessionsPerActor; limit > 0 {
		existing, err := s.sessions.ListByActor(ctx, req.ActorID, now)
		if err != nil {
			return domain.Session{}, fmt.Errorf("list actor sessions: %w", err)
		}
		for len(existing) >= limit {
			oldest := existing[0]
			if _, err := s.sessions.Revoke(ctx, oldest.SessionID, now); err != nil {
				return domain.Session{}, fmt.Errorf("evict oldest session: %w", err)
			}
			existing = existing[1:]
			s.logger.Info("session evicted by actor cap",
				s.logAttrs("authenticate", "success",
					slog.String("actor_id", req.ActorID),
					slog.String("session_id", oldest.SessionID.String()),
				)...)
		}
	}

	session := domain.Session{
		SessionID:      uuid.New(),
		ActorID:        req.ActorID,
		DeviceID:       req.DeviceID,
		Method:         method,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.cfg.SessionTimeout),
		RiskScore:      riskScore,
	}
	if err := s.sessions.Put(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

func (s *Service) anyLocked(ctx context.Context, now time.Time, keys ...string) (bool, error) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		state, err := s.lockouts.Get(ctx, key)
		if err != nil {
			return false, err
		}
		if state.LockedUntil != nil && state.LockedUntil.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) deviceTrusted(deviceID string) bool {
	_, ok := s.trustedDevices[deviceID]
	return ok
}

func (s *Service) emitAuthEvent(ctx context.Context, req AuthenticateRequest, method domain.AuthMethod, outcome, detail string) {
	_, err := s.ingest(ctx, domain.AuditEvent{
		Type:     domain.EventAuthentication,
		Severity: severityForOutcome(outcome),
		ActorID:  req.ActorID,
		TargetID: req.DeviceID,
		Action:   "authenticate." + string(method),
		Outcome:  outcome,
		Extra:    map[string]string{"detail": detail},
	})
	if err != nil && !errors.Is(err, domain.ErrEventTypeDisabled) {
		s.logger.Warn("emit auth event", s.logAttrs("authenticate", "degraded", slog.Any("error", err))...)
	}
}

func severityForOutcome(outcome string) string {
	switch outcome {
	case domain.OutcomeSuccess:
		return domain.SeverityInfo
	case domain.OutcomeDenied:
		return domain.SeverityCritical
	default:
		return domain.SeverityWarning
	}
}
