package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/application"
)

func (h *Handler) activeAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.GetActiveAlerts(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "active_alerts", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *Handler) alertHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	alerts, err := h.service.GetAlertHistory(r.Context(), limit)
	if err != nil {
		writeMappedError(r.Context(), w, "alert_history", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

type updateAlertRequest struct {
	Status   string `json:"status" validate:"required,oneof=open investigating resolved falsePositive escalated"`
	Assignee string `json:"assignee" validate:"max=128"`
}

func (h *Handler) updateAlert(w http.ResponseWriter, r *http.Request) {
	alertID, err := uuid.Parse(chi.URLParam(r, "alert_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "update_alert", err)
		return
	}

	var req updateAlertRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_alert", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(r.Context(), w, "update_alert", err)
		return
	}

	alert, err := h.service.UpdateAlert(r.Context(), application.UpdateAlertRequest{
		AlertID:  alertID,
		Status:   req.Status,
		Assignee: req.Assignee,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "update_alert", err)
		return
	}
	writeSuccess(w, http.StatusOK, alert)
}
