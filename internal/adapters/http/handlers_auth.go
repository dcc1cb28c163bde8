package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/application"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

type authenticateRequest struct {
	ActorID  string `json:"actor_id" validate:"max=128"`
	DeviceID string `json:"device_id" validate:"required,max=128"`
	Method   string `json:"method" validate:"required,oneof=password biometric passcode certificate mfa"`
	Secret   string `json:"secret" validate:"required"`
	Prompt   string `json:"prompt" validate:"max=256"`
}

type authenticateResponse struct {
	SessionID    string                `json:"session_id"`
	ActorID      string                `json:"actor_id"`
	DeviceID     string                `json:"device_id"`
	Method       string                `json:"method"`
	CreatedAt    time.Time             `json:"created_at"`
	ExpiresAt    time.Time             `json:"expires_at"`
	RefreshToken string                `json:"refresh_token"`
	Risk         domain.RiskAssessment `json:"risk"`
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "authenticate", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(r.Context(), w, "authenticate", err)
		return
	}

	res, err := h.service.Authenticate(r.Context(), application.AuthenticateRequest{
		ActorID:  req.ActorID,
		DeviceID: req.DeviceID,
		Method:   req.Method,
		Secret:   req.Secret,
		Prompt:   req.Prompt,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "authenticate", err)
		return
	}

	writeSuccess(w, http.StatusOK, authenticateResponse{
		SessionID:    res.SessionID.String(),
		ActorID:      res.ActorID,
		DeviceID:     res.DeviceID,
		Method:       string(res.Method),
		CreatedAt:    res.CreatedAt,
		ExpiresAt:    res.ExpiresAt,
		RefreshToken: res.RefreshToken,
		Risk:         res.Risk,
	})
}

type sessionIDRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

func (h *Handler) validateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "validate_session", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(r.Context(), w, "validate_session", err)
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeValidationError(r.Context(), w, "validate_session", err)
		return
	}

	valid, err := h.service.ValidateSession(r.Context(), sessionID)
	if err != nil {
		writeMappedError(r.Context(), w, "validate_session", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"valid": valid})
}

type refreshSessionRequest struct {
	SessionID    string `json:"session_id" validate:"required,uuid"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) refreshSession(w http.ResponseWriter, r *http.Request) {
	var req refreshSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "refresh_session", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(r.Context(), w, "refresh_session", err)
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeValidationError(r.Context(), w, "refresh_session", err)
		return
	}

	res, err := h.service.RefreshSession(r.Context(), sessionID, req.RefreshToken)
	if err != nil {
		writeMappedError(r.Context(), w, "refresh_session", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"session_id":    res.SessionID.String(),
		"expires_at":    res.ExpiresAt,
		"refresh_token": res.RefreshToken,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "logout", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(r.Context(), w, "logout", err)
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeValidationError(r.Context(), w, "logout", err)
		return
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
