package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// LogEvent ingests one audit event. It reports whether the event was
// accepted; a false with a nil error means the event deduplicated against an
// identical one in the same fingerprint bucket.
func (s *Service) LogEvent(ctx context.Context, req LogEventRequest) (bool, error) {
	event, err := s.buildEvent(req)
	if err != nil {
		s.metrics.eventsRejected.Add(1)
		return false, err
	}
	return s.ingest(ctx, event)
}

// LogEvents ingests a batch in submission order. A malformed or disabled
// event is counted and skipped; it never blocks the rest of the batch.
func (s *Service) LogEvents(ctx context.Context, reqs []LogEventRequest) (IngestResult, error) {
	var result IngestResult
	for _, req := range reqs {
		accepted, err := s.LogEvent(ctx, req)
		switch {
		case err != nil:
			result.Rejected++
			s.logger.Warn("batch event rejected",
				s.logAttrs("log_events", "degraded", slog.Any("error", err), slog.String("type", req.Type))...)
		case accepted:
			result.Accepted++
		default:
			result.Deduplicated++
		}
	}
	return result, nil
}

// QueryEvents returns retained events matching the filter, newest first
// unless the filter asks for ascending order.
func (s *Service) QueryEvents(ctx context.Context, filter domain.EventFilter) ([]domain.AuditEvent, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultQueryLimit
	}
	if filter.Limit > maxQueryLimit {
		filter.Limit = maxQueryLimit
	}
	return s.events.Query(ctx, filter)
}

func (s *Service) buildEvent(req LogEventRequest) (domain.AuditEvent, error) {
	eventType, err := domain.ParseEventType(req.Type)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	if strings.TrimSpace(req.Action) == "" {
		return domain.AuditEvent{}, fmt.Errorf("%w: action is required", domain.ErrInvalidInput)
	}

	severity := req.Severity
	switch severity {
	case "":
		severity = domain.SeverityInfo
	case domain.SeverityInfo, domain.SeverityWarning, domain.SeverityCritical:
	default:
		return domain.AuditEvent{}, fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidInput, req.Severity)
	}

	outcome := req.Outcome
	switch outcome {
	case "":
		outcome = domain.OutcomeSuccess
	case domain.OutcomeSuccess, domain.OutcomeFailure, domain.OutcomeDenied:
	default:
		return domain.AuditEvent{}, fmt.Errorf("%w: unknown outcome %q", domain.ErrInvalidInput, req.Outcome)
	}

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = s.nowFn()
	}

	return domain.AuditEvent{
		Timestamp:     timestamp.UTC(),
		Type:          eventType,
		Severity:      severity,
		ActorID:       req.ActorID,
		TargetID:      req.TargetID,
		Action:        req.Action,
		Outcome:       outcome,
		CorrelationID: req.CorrelationID,
		Extra:         req.Extra,
	}, nil
}

// ingest is the single path every event takes: enabled gate, identity fill,
// fingerprint dedup, append, persistent sink hand-off, then correlation. The
// event is in the store before any detector sees it, so a firing alert's
// trigger set always contains the event that tripped it.
func (s *Service) ingest(ctx context.Context, event domain.AuditEvent) (bool, error) {
	if !s.eventTypeEnabled(event.Type) {
		s.metrics.eventsRejected.Add(1)
		return false, fmt.Errorf("%w: %s", domain.ErrEventTypeDisabled, event.Type)
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.nowFn()
	}
	event.Fingerprint = event.ComputeFingerprint(s.cfg.FingerprintBucket)

	fresh, err := s.fingerprints.Add(ctx, event.Fingerprint)
	if err != nil {
		// A broken dedup cache degrades to accepting duplicates rather than
		// dropping real events.
		s.logger.Warn("fingerprint cache unavailable", s.logAttrs("ingest", "degraded", slog.Any("error", err))...)
		fresh = true
	}
	if !fresh {
		s.metrics.eventsDeduplicated.Add(1)
		return false, nil
	}

	if err := s.events.Append(ctx, event); err != nil {
		s.metrics.eventsRejected.Add(1)
		return false, fmt.Errorf("append event: %w", err)
	}
	s.metrics.eventsAccepted.Add(1)

	if s.auditSink != nil {
		// Hand-off is fire-and-forget; the sink must not add latency to the
		// ingest path or be cancelled by the caller's request context.
		sinkCtx := context.WithoutCancel(ctx)
		go func(e domain.AuditEvent) {
			if err := s.auditSink.Append(sinkCtx, e); err != nil {
				s.logger.Warn("persistent audit sink append",
					s.logAttrs("ingest", "degraded", slog.Any("error", err), slog.String("event_id", e.EventID.String()))...)
			}
		}(event)
	}

	s.evaluateDetectors(ctx, event)
	return true, nil
}

func (s *Service) eventTypeEnabled(t domain.EventType) bool {
	for _, enabled := range s.cfg.EnabledEventTypes {
		if enabled == t {
			return true
		}
	}
	return false
}
