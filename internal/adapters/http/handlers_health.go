package http

import (
	"net/http"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

// readyz reports not-ready while the aggregate health is critical, so a
// degraded instance drops out of rotation without being killed.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	report := h.service.GetHealth(r.Context())
	if report.Status == domain.HealthCritical {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "service health is critical")
		return
	}
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.service.GetHealth(r.Context()))
}
