package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/application"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

type eventRequest struct {
	Type          string            `json:"type" validate:"required"`
	Severity      string            `json:"severity" validate:"omitempty,oneof=info warning critical"`
	ActorID       string            `json:"actor_id" validate:"max=128"`
	TargetID      string            `json:"target_id" validate:"max=256"`
	Action        string            `json:"action" validate:"required,max=256"`
	Outcome       string            `json:"outcome" validate:"omitempty,oneof=success failure denied"`
	CorrelationID string            `json:"correlation_id" validate:"max=128"`
	Extra         map[string]string `json:"extra"`
	Timestamp     time.Time         `json:"timestamp"`
}

func (e eventRequest) toApplication() application.LogEventRequest {
	return application.LogEventRequest{
		Type:          e.Type,
		Severity:      e.Severity,
		ActorID:       e.ActorID,
		TargetID:      e.TargetID,
		Action:        e.Action,
		Outcome:       e.Outcome,
		CorrelationID: e.CorrelationID,
		Extra:         e.Extra,
		Timestamp:     e.Timestamp,
	}
}

func (h *Handler) logEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "log_event", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(r.Context(), w, "log_event", err)
		return
	}

	accepted, err := h.service.LogEvent(r.Context(), req.toApplication())
	if err != nil {
		writeMappedError(r.Context(), w, "log_event", err)
		return
	}
	status := http.StatusCreated
	if !accepted {
		status = http.StatusOK
	}
	writeSuccess(w, status, map[string]any{"accepted": accepted})
}

type eventBatchRequest struct {
	Events []eventRequest `json:"events" validate:"required,min=1,max=500,dive"`
}

func (h *Handler) logEventsBatch(w http.ResponseWriter, r *http.Request) {
	var req eventBatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "log_events_batch", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(r.Context(), w, "log_events_batch", err)
		return
	}

	reqs := make([]application.LogEventRequest, 0, len(req.Events))
	for _, e := range req.Events {
		reqs = append(reqs, e.toApplication())
	}

	res, err := h.service.LogEvents(r.Context(), reqs)
	if err != nil {
		writeMappedError(r.Context(), w, "log_events_batch", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"accepted":     res.Accepted,
		"deduplicated": res.Deduplicated,
		"rejected":     res.Rejected,
	})
}

func (h *Handler) queryEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.EventFilter{
		ActorID:   q.Get("actor_id"),
		TargetID:  q.Get("target_id"),
		Outcome:   q.Get("outcome"),
		Search:    q.Get("q"),
		Limit:     parseIntDefault(q.Get("limit"), 0),
		Offset:    parseIntDefault(q.Get("offset"), 0),
		Ascending: q.Get("order") == "asc",
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeValidationError(r.Context(), w, "query_events", err)
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeValidationError(r.Context(), w, "query_events", err)
			return
		}
		filter.To = t
	}
	for _, raw := range splitCSV(q.Get("type")) {
		t, err := domain.ParseEventType(raw)
		if err != nil {
			writeValidationError(r.Context(), w, "query_events", err)
			return
		}
		filter.Types = append(filter.Types, t)
	}
	filter.Severities = splitCSV(q.Get("severity"))

	events, err := h.service.QueryEvents(r.Context(), filter)
	if err != nil {
		writeMappedError(r.Context(), w, "query_events", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
