package application

import (
	"context"
	"log/slog"
	"time"
)

// lockoutSweeper is implemented by lockout stores that reclaim expired
// records. Stores with server-side TTLs simply do not implement it.
type lockoutSweeper interface {
	Sweep(ctx context.Context, now time.Time, lockoutWindow time.Duration) (int, error)
}

// RunMaintenance periodically reclaims expired sessions, prunes events past
// the retention horizon, and sweeps stale lockout records. It blocks until
// the context is cancelled.
func (s *Service) RunMaintenance(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("maintenance worker started",
		s.logAttrs("maintenance", "start", slog.Duration("interval", interval))...)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance worker stopped", s.logAttrs("maintenance", "stop")...)
			return ctx.Err()
		case <-ticker.C:
			s.runMaintenancePass(ctx)
		}
	}
}

func (s *Service) runMaintenancePass(ctx context.Context) {
	now := s.nowFn()

	if removed, err := s.sessions.DeleteExpired(ctx, now); err != nil {
		s.logger.Warn("session sweep failed", s.logAttrs("maintenance", "degraded", slog.Any("error", err))...)
	} else if removed > 0 {
		s.logger.Info("expired sessions reclaimed",
			s.logAttrs("maintenance", "success", slog.Int("removed", removed))...)
	}

	cutoff := now.Add(-s.cfg.RetentionPeriod)
	if pruned, err := s.events.PruneBefore(ctx, cutoff); err != nil {
		s.logger.Warn("event retention prune failed", s.logAttrs("maintenance", "degraded", slog.Any("error", err))...)
	} else if pruned > 0 {
		s.logger.Info("events pruned past retention",
			s.logAttrs("maintenance", "success", slog.Int("pruned", pruned))...)
	}

	if pruned := s.pruneCooldowns(now); pruned > 0 {
		s.logger.Info("stale alert cooldowns pruned",
			s.logAttrs("maintenance", "success", slog.Int("pruned", pruned))...)
	}

	if sweeper, ok := s.lockouts.(lockoutSweeper); ok {
		if swept, err := sweeper.Sweep(ctx, now, s.cfg.LockoutDuration); err != nil {
			s.logger.Warn("lockout sweep failed", s.logAttrs("maintenance", "degraded", slog.Any("error", err))...)
		} else if swept > 0 {
			s.logger.Info("stale lockout records swept",
				s.logAttrs("maintenance", "success", slog.Int("swept", swept))...)
		}
	}
}

// RunHealthSampler periodically recomputes the health report and notifies
// the listener on status transitions. It blocks until the context is
// cancelled.
func (s *Service) RunHealthSampler(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Prime the cached report so readiness checks have data immediately.
	s.publishHealth(s.SampleHealth(ctx))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("health sampler stopped", s.logAttrs("health_sample", "stop")...)
			return ctx.Err()
		case <-ticker.C:
			s.publishHealth(s.SampleHealth(ctx))
		}
	}
}
