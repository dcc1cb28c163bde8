package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

// Latency budgets used to score the two hot paths. An average at or under
// budget scores 1.0; over budget the score decays proportionally.
const (
	authLatencyBudget     = 500 * time.Millisecond
	validateLatencyBudget = 5 * time.Millisecond
)

// GetHealth returns the latest sampled report, computing one on the spot if
// the sampler has not run yet.
func (s *Service) GetHealth(ctx context.Context) domain.HealthReport {
	s.healthMu.RLock()
	cached := s.lastHealth
	s.healthMu.RUnlock()
	if cached != nil {
		return *cached
	}
	return s.SampleHealth(ctx)
}

// SampleHealth computes a fresh weighted report from the live counters.
func (s *Service) SampleHealth(_ context.Context) domain.HealthReport {
	now := s.nowFn()

	attempts := s.metrics.authAttempts.Load()
	successes := s.metrics.authSuccesses.Load()
	successRate := 1.0
	if attempts > 0 {
		successRate = float64(successes) / float64(attempts)
	}

	authAvg := avgLatency(s.metrics.authLatencyNanos.Load(), successes)
	validateAvg := avgLatency(s.metrics.validateLatencyNanos.Load(), s.metrics.validations.Load())

	accepted := s.metrics.eventsAccepted.Load()
	rejected := s.metrics.eventsRejected.Load()
	ingestRate := 1.0
	if accepted+rejected > 0 {
		ingestRate = float64(accepted) / float64(accepted+rejected)
	}

	created := s.metrics.alertsCreated.Load()
	falsePositives := s.metrics.alertsFalsePositive.Load()
	fpRate := 0.0
	if created > 0 {
		fpRate = float64(falsePositives) / float64(created)
	}

	samples := []domain.HealthSample{
		{Name: "auth_success_rate", Value: successRate, Score: successRate, Weight: 0.30},
		{Name: "auth_latency", Value: authAvg.Seconds(), Score: latencyScore(authAvg, authLatencyBudget), Weight: 0.15},
		{Name: "validate_latency", Value: validateAvg.Seconds(), Score: latencyScore(validateAvg, validateLatencyBudget), Weight: 0.15},
		{Name: "ingestion_health", Value: ingestRate, Score: ingestRate, Weight: 0.15},
		{Name: "alert_false_positive_rate", Value: fpRate, Score: 1 - fpRate, Weight: 0.25},
	}

	score := 0.0
	for _, sample := range samples {
		score += sample.Score * sample.Weight
	}

	return domain.HealthReport{
		Status:        domain.HealthStatusForScore(score),
		Score:         score,
		Timestamp:     now,
		UptimeSeconds: int64(now.Sub(s.startedAt).Seconds()),
		Samples:       samples,
	}
}

func (s *Service) storeHealth(report domain.HealthReport) (changed bool) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	changed = s.lastHealth == nil || s.lastHealth.Status != report.Status
	s.lastHealth = &report
	return changed
}

func (s *Service) publishHealth(report domain.HealthReport) {
	if !s.storeHealth(report) {
		return
	}
	s.logger.Info("health status changed",
		s.logAttrs("health_sample", report.Status,
			slog.Float64("score", report.Score),
		)...)
	if s.healthListener != nil {
		s.healthListener(report)
	}
}

func avgLatency(totalNanos, samples int64) time.Duration {
	if samples == 0 {
		return 0
	}
	return time.Duration(totalNanos / samples)
}

func latencyScore(avg, budget time.Duration) float64 {
	if avg <= budget {
		return 1
	}
	return float64(budget) / float64(avg)
}
