package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// AlertStore keeps every alert ever raised; the active view excludes terminal
// statuses but terminal alerts stay queryable through History.
type AlertStore struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]domain.SecurityAlert
}

var _ ports.AlertStore = (*AlertStore)(nil)

func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[uuid.UUID]domain.SecurityAlert)}
}

func (s *AlertStore) Insert(_ context.Context, alert domain.SecurityAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.AlertID] = alert
	return nil
}

func (s *AlertStore) Get(_ context.Context, alertID uuid.UUID) (domain.SecurityAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[alertID]
	if !ok {
		return domain.SecurityAlert{}, domain.ErrNotFound
	}
	return alert, nil
}

func (s *AlertStore) Active(_ context.Context) ([]domain.SecurityAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SecurityAlert, 0, 8)
	for _, alert := range s.alerts {
		if !alert.Status.IsTerminal() {
			out = append(out, alert)
		}
	}
	sortAlerts(out)
	return out, nil
}

func (s *AlertStore) History(_ context.Context, limit int) ([]domain.SecurityAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SecurityAlert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		out = append(out, alert)
	}
	sortAlerts(out)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *AlertStore) Update(_ context.Context, alert domain.SecurityAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerts[alert.AlertID]; !ok {
		return domain.ErrNotFound
	}
	s.alerts[alert.AlertID] = alert
	return nil
}

// sortAlerts orders newest first so operators see the current incident on top.
func sortAlerts(alerts []domain.SecurityAlert) {
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}
