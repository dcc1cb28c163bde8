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

// ValidateSession reports whether the session is currently usable. A valid
// check records activity but never extends expiry; only a refresh does that.
func (s *Service) ValidateSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	started := time.Now()
	defer func() {
		s.metrics.validations.Add(1)
		s.metrics.validateLatencyNanos.Add(int64(time.Since(started)))
	}()

	now := s.nowFn()
	_, err := s.sessions.Get(ctx, sessionID, now)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
		return false, nil
	default:
		return false, fmt.Errorf("validate session: %w", err)
	}

	if err := s.sessions.TouchActivity(ctx, sessionID, now); err != nil {
		s.logger.Warn("touch session activity", s.logAttrs("validate_session", "degraded", slog.Any("error", err))...)
	}
	return true, nil
}

// GetSession returns the live session or the taxonomy error describing why
// it is not usable.
func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	return s.sessions.Get(ctx, sessionID, s.nowFn())
}

// RefreshSession rotates a session: the presented refresh token must be valid
// for exactly the session being refreshed. The old session and the new one
// swap in a single store critical section, so no concurrent validation
// observes both alive or both gone.
func (s *Service) RefreshSession(ctx context.Context, sessionID uuid.UUID, refreshToken string) (RefreshResult, error) {
	claims, err := s.tokens.ParseAndValidate(refreshToken)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidRefreshToken, err)
	}
	if claims.SessionID != sessionID {
		return RefreshResult{}, fmt.Errorf("%w: token is bound to a different session", domain.ErrInvalidRefreshToken)
	}

	now := s.nowFn()
	current, err := s.sessions.Get(ctx, sessionID, now)
	if err != nil {
		return RefreshResult{}, err
	}

	next := current
	next.SessionID = uuid.New()
	next.CreatedAt = now
	next.LastActivityAt = now
	next.ExpiresAt = now.Add(s.cfg.SessionTimeout)
	next.RevokedAt = nil

	// Sign before the swap: a signer fault must leave the old session usable
	// instead of stranding the actor with a revoked session and no new token.
	token, err := s.tokens.Sign(ports.RefreshClaims{
		SessionID: next.SessionID,
		ActorID:   next.ActorID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	})
	if err != nil {
		return RefreshResult{}, fmt.Errorf("sign rotated refresh token: %w", err)
	}

	if err := s.sessions.Replace(ctx, sessionID, now, next); err != nil {
		return RefreshResult{}, fmt.Errorf("rotate session: %w", err)
	}

	s.emitSessionEvent(ctx, next, "session.refresh", domain.OutcomeSuccess)
	s.logger.Info("session refreshed",
		s.logAttrs("refresh_session", "success",
			slog.String("actor_id", next.ActorID),
			slog.String("session_id", next.SessionID.String()),
		)...)

	return RefreshResult{SessionID: next.SessionID, ExpiresAt: next.ExpiresAt, RefreshToken: token}, nil
}

// Logout revokes the session. Revoking an unknown or already-revoked session
// succeeds quietly; only an actual revocation emits a lifecycle event.
func (s *Service) Logout(ctx context.Context, sessionID uuid.UUID) error {
	now := s.nowFn()
	revoked, err := s.sessions.Revoke(ctx, sessionID, now)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !revoked {
		return nil
	}

	s.emitSessionEvent(ctx, domain.Session{SessionID: sessionID}, "session.logout", domain.OutcomeSuccess)
	s.logger.Info("session revoked",
		s.logAttrs("logout", "success", slog.String("session_id", sessionID.String()))...)
	return nil
}

func (s *Service) emitSessionEvent(ctx context.Context, session domain.Session, action, outcome string) {
	_, err := s.ingest(ctx, domain.AuditEvent{
		Type:     domain.EventSessionLifecycle,
		Severity: domain.SeverityInfo,
		ActorID:  session.ActorID,
		TargetID: session.SessionID.String(),
		Action:   action,
		Outcome:  outcome,
	})
	if err != nil && !errors.Is(err, domain.ErrEventTypeDisabled) {
		s.logger.Warn("emit session event", s.logAttrs(action, "degraded", slog.Any("error", err))...)
	}
}
