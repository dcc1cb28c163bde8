package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
)

type capturingPublisher struct {
	mu       sync.Mutex
	failures int
	topics   []string
	payloads [][]byte
	attempts int
	done     chan struct{}
}

func newCapturingPublisher(failures int) *capturingPublisher {
	return &capturingPublisher{failures: failures, done: make(chan struct{}, 8)}
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.attempts <= p.failures {
		p.done <- struct{}{}
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	p.done <- struct{}{}
	return nil
}

func (p *capturingPublisher) snapshot() (int, []string, [][]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts, append([]string(nil), p.topics...), append([][]byte(nil), p.payloads...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testAlert() domain.SecurityAlert {
	now := time.Now().UTC()
	return domain.SecurityAlert{
		AlertID:   uuid.New(),
		Type:      domain.AlertFailedLoginAttempts,
		Severity:  domain.SeverityWarning,
		RiskScore: 0.5,
		Status:    domain.AlertOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func waitDeliveries(t *testing.T, publisher *capturingPublisher, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-publisher.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for publish attempt %d of %d", i+1, n)
		}
	}
}

func TestAlertRelayDeliversEnqueuedAlert(t *testing.T) {
	t.Parallel()

	publisher := newCapturingPublisher(0)
	relay := NewAlertRelay(testLogger(), publisher, 8, 3, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()

	alert := testAlert()
	relay.Enqueue(alert)
	waitDeliveries(t, publisher, 1)

	attempts, topics, payloads := publisher.snapshot()
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	if topics[0] != string(domain.AlertFailedLoginAttempts) {
		t.Fatalf("topic = %q", topics[0])
	}

	var decoded domain.SecurityAlert
	if err := json.Unmarshal(payloads[0], &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.AlertID != alert.AlertID {
		t.Fatalf("alert id mismatch: %s != %s", decoded.AlertID, alert.AlertID)
	}
	if decoded.RiskScore != alert.RiskScore {
		t.Fatalf("risk score mismatch: %v", decoded.RiskScore)
	}
}

func TestAlertRelayRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	publisher := newCapturingPublisher(2)
	relay := NewAlertRelay(testLogger(), publisher, 8, 3, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()

	relay.Enqueue(testAlert())
	waitDeliveries(t, publisher, 3)

	attempts, topics, _ := publisher.snapshot()
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if len(topics) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(topics))
	}
}

func TestAlertRelayDropsAfterRetryBudget(t *testing.T) {
	t.Parallel()

	publisher := newCapturingPublisher(10)
	relay := NewAlertRelay(testLogger(), publisher, 8, 3, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()

	relay.Enqueue(testAlert())
	waitDeliveries(t, publisher, 3)

	// The retry budget is exhausted; no further attempts for this alert.
	select {
	case <-publisher.done:
		t.Fatalf("publish attempted beyond retry budget")
	case <-time.After(50 * time.Millisecond):
	}

	attempts, topics, _ := publisher.snapshot()
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if len(topics) != 0 {
		t.Fatalf("deliveries = %d, want 0", len(topics))
	}
}

func TestAlertRelayEnqueueNeverBlocksWhenFull(t *testing.T) {
	t.Parallel()

	publisher := newCapturingPublisher(0)
	relay := NewAlertRelay(testLogger(), publisher, 1, 1, time.Millisecond)

	// Without a running relay loop the queue fills; extra alerts drop.
	relay.Enqueue(testAlert())
	doneCh := make(chan struct{})
	go func() {
		relay.Enqueue(testAlert())
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full queue")
	}
}
