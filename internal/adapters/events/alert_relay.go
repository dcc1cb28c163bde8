package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// AlertRelay decouples alert creation from delivery. The correlator enqueues
// without blocking; the relay loop publishes with bounded retries and drops
// to the log once retries are exhausted. There is no durable redelivery: the
// alert store remains the source of truth for operators.
type AlertRelay struct {
	logger     *slog.Logger
	publisher  ports.AlertPublisher
	queue      chan domain.SecurityAlert
	maxRetries int
	backoff    time.Duration
}

var _ ports.AlertQueue = (*AlertRelay)(nil)

func NewAlertRelay(logger *slog.Logger, publisher ports.AlertPublisher, queueSize, maxRetries int, backoff time.Duration) *AlertRelay {
	if queueSize <= 0 {
		queueSize = 256
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &AlertRelay{
		logger:     logger,
		publisher:  publisher,
		queue:      make(chan domain.SecurityAlert, queueSize),
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Enqueue hands an alert to the relay without blocking the correlator.
func (r *AlertRelay) Enqueue(alert domain.SecurityAlert) {
	select {
	case r.queue <- alert:
	default:
		r.logger.Warn("alert relay queue full; alert dropped from delivery",
			"module", "events.alert_relay",
			"layer", "adapter",
			"operation", "enqueue_alert",
			"outcome", "dropped",
			"alert_id", alert.AlertID,
			"alert_type", alert.Type,
		)
	}
}

// Run drains the queue until context cancellation.
func (r *AlertRelay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case alert := <-r.queue:
			r.deliver(ctx, alert)
		}
	}
}

func (r *AlertRelay) deliver(ctx context.Context, alert domain.SecurityAlert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		r.logger.ErrorContext(ctx, "alert serialization failed",
			"module", "events.alert_relay",
			"layer", "adapter",
			"operation", "publish_alert",
			"outcome", "failure",
			"alert_id", alert.AlertID,
			"error", err,
		)
		return
	}

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		err = r.publisher.Publish(ctx, string(alert.Type), payload)
		if err == nil {
			r.logger.InfoContext(ctx, "alert published",
				"module", "events.alert_relay",
				"layer", "adapter",
				"operation", "publish_alert",
				"outcome", "success",
				"alert_id", alert.AlertID,
				"alert_type", alert.Type,
				"attempt", attempt,
			)
			return
		}

		r.logger.WarnContext(ctx, "alert publish failed; retry scheduled",
			"module", "events.alert_relay",
			"layer", "adapter",
			"operation", "publish_alert",
			"outcome", "failure",
			"alert_id", alert.AlertID,
			"alert_type", alert.Type,
			"attempt", attempt,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}

	r.logger.ErrorContext(ctx, "alert dropped after retry budget",
		"module", "events.alert_relay",
		"layer", "adapter",
		"operation", "publish_alert",
		"outcome", "dropped",
		"alert_id", alert.AlertID,
		"alert_type", alert.Type,
		"error", err,
	)
}
