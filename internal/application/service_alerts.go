package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

// maxTriggerEventSample caps how many qualifying events travel with an alert.
const maxTriggerEventSample = 10

// detector is one sliding-window threshold rule. An immediate detector fires
// on every qualifying event and skips the cooldown entirely.
type detector struct {
	alertType domain.AlertType
	eventType domain.EventType
	outcome   string
	perActor  bool
	threshold int
	window    time.Duration
	immediate bool
}

func (d detector) matches(e domain.AuditEvent) bool {
	if e.Type != d.eventType {
		return false
	}
	if d.outcome != "" && e.Outcome != d.outcome {
		return false
	}
	if d.perActor && e.ActorID == "" {
		return false
	}
	return true
}

func (d detector) key(e domain.AuditEvent) string {
	if d.perActor {
		return e.ActorID
	}
	return "global"
}

// evaluateDetectors runs every detector against the just-appended event.
// Detector faults are logged and swallowed; correlation never fails an
// ingest that already succeeded.
func (s *Service) evaluateDetectors(ctx context.Context, event domain.AuditEvent) {
	for _, d := range s.detectors {
		if !d.matches(event) {
			continue
		}
		if err := s.runDetector(ctx, d, event); err != nil {
			s.logger.Error("detector evaluation failed",
				s.logAttrs("correlate", "error",
					slog.Any("error", err),
					slog.String("alert_type", string(d.alertType)),
				)...)
		}
	}
}

func (s *Service) runDetector(ctx context.Context, d detector, event domain.AuditEvent) error {
	if d.immediate {
		return s.fireAlert(ctx, d, event, []domain.AuditEvent{event}, 1)
	}

	recent, err := s.events.Recent(ctx, s.cfg.CorrelationDepth)
	if err != nil {
		return fmt.Errorf("load recent events: %w", err)
	}

	windowStart := event.Timestamp.Add(-d.window)
	var qualifying []domain.AuditEvent
	for _, e := range recent {
		if !d.matches(e) || d.key(e) != d.key(event) {
			continue
		}
		if e.Timestamp.Before(windowStart) || e.Timestamp.After(event.Timestamp) {
			continue
		}
		qualifying = append(qualifying, e)
	}
	if len(qualifying) < d.threshold {
		return nil
	}

	if s.inCooldown(d, event) {
		return nil
	}

	sample := qualifying
	if len(sample) > maxTriggerEventSample {
		sample = sample[len(sample)-maxTriggerEventSample:]
	}
	return s.fireAlert(ctx, d, event, sample, len(qualifying))
}

// inCooldown checks and arms the per-detector-per-key suppression window in
// one critical section, so two racing events cannot both fire.
func (s *Service) inCooldown(d detector, event domain.AuditEvent) bool {
	cooldown := s.cfg.AlertCooldown
	if cooldown <= 0 {
		cooldown = d.window
	}
	key := string(d.alertType) + "|" + d.key(event)

	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()
	if last, ok := s.cooldowns[key]; ok && event.Timestamp.Sub(last) < cooldown {
		return true
	}
	s.cooldowns[key] = event.Timestamp
	return false
}

// pruneCooldowns drops suppression entries too old to matter, keeping the
// map from growing with the distinct-key population over long uptimes. The
// horizon is the longest suppression any detector can impose.
func (s *Service) pruneCooldowns(now time.Time) int {
	horizon := s.cfg.AlertCooldown
	for _, d := range s.detectors {
		if d.window > horizon {
			horizon = d.window
		}
	}

	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()
	pruned := 0
	for key, firedAt := range s.cooldowns {
		if now.Sub(firedAt) >= horizon {
			delete(s.cooldowns, key)
			pruned++
		}
	}
	return pruned
}

func (s *Service) fireAlert(ctx context.Context, d detector, event domain.AuditEvent, triggers []domain.AuditEvent, count int) error {
	score := 1.0
	if !d.immediate {
		score = float64(count) / float64(d.threshold*2)
		if score > 1 {
			score = 1
		}
	}

	now := s.nowFn()
	alert := domain.SecurityAlert{
		AlertID:       uuid.New(),
		Type:          d.alertType,
		Severity:      domain.AlertSeverityForScore(score),
		TriggerEvents: triggers,
		RiskScore:     score,
		Status:        domain.AlertOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.alerts.Insert(ctx, alert); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	s.metrics.alertsCreated.Add(1)

	if s.alertQueue != nil {
		s.alertQueue.Enqueue(alert)
	}

	s.logger.Warn("security alert raised",
		s.logAttrs("correlate", "alert",
			slog.String("alert_id", alert.AlertID.String()),
			slog.String("alert_type", string(d.alertType)),
			slog.String("severity", alert.Severity),
			slog.Int("qualifying_events", count),
			slog.String("actor_id", event.ActorID),
		)...)
	return nil
}

// GetActiveAlerts returns all non-terminal alerts, newest first.
func (s *Service) GetActiveAlerts(ctx context.Context) ([]domain.SecurityAlert, error) {
	return s.alerts.Active(ctx)
}

// GetAlertHistory returns the most recent alerts regardless of status.
func (s *Service) GetAlertHistory(ctx context.Context, limit int) ([]domain.SecurityAlert, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	return s.alerts.History(ctx, limit)
}

// UpdateAlert moves an alert along its lifecycle. Re-asserting the current
// status is a no-op; any other edge outside the lifecycle graph fails with
// ErrInvalidTransition.
func (s *Service) UpdateAlert(ctx context.Context, req UpdateAlertRequest) (domain.SecurityAlert, error) {
	status, err := domain.ParseAlertStatus(req.Status)
	if err != nil {
		return domain.SecurityAlert{}, fmt.Errorf("%w: unknown alert status %q", domain.ErrInvalidInput, req.Status)
	}

	alert, err := s.alerts.Get(ctx, req.AlertID)
	if err != nil {
		return domain.SecurityAlert{}, err
	}

	if alert.Status != status {
		if !alert.Status.CanTransition(status) {
			return domain.SecurityAlert{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, alert.Status, status)
		}
		alert.Status = status
		if status == domain.AlertFalsePositive {
			s.metrics.alertsFalsePositive.Add(1)
		}
	}
	if req.Assignee != "" {
		alert.Assignee = req.Assignee
	}
	alert.UpdatedAt = s.nowFn()

	if err := s.alerts.Update(ctx, alert); err != nil {
		return domain.SecurityAlert{}, fmt.Errorf("update alert: %w", err)
	}

	s.logger.Info("alert updated",
		s.logAttrs("update_alert", "success",
			slog.String("alert_id", alert.AlertID.String()),
			slog.String("status", string(alert.Status)),
		)...)
	return alert, nil
}
