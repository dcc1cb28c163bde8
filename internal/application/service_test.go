package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

const (
	goodPassword = "Tr1cky-Stanza!42"
	badPassword  = "Wr0ng-Stanza!42x"
)

type fakeCredentials struct {
	mu          sync.Mutex
	secrets     map[string]string
	verifyCalls int
	delay       time.Duration
	err         error
}

func (f *fakeCredentials) Verify(ctx context.Context, key, secret string) (bool, error) {
	f.mu.Lock()
	f.verifyCalls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.err != nil {
		return false, f.err
	}
	want, ok := f.secrets[key]
	return ok && want == secret, nil
}

func (f *fakeCredentials) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

type fakeBiometrics struct {
	caps    ports.BiometricCapabilities
	match   bool
	capsErr error
}

func (f *fakeBiometrics) Capabilities(context.Context) (ports.BiometricCapabilities, error) {
	return f.caps, f.capsErr
}

func (f *fakeBiometrics) Evaluate(context.Context, string, string) (bool, error) {
	return f.match, nil
}

type captureQueue struct {
	mu     sync.Mutex
	alerts []domain.SecurityAlert
}

func (q *captureQueue) Enqueue(alert domain.SecurityAlert) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.alerts = append(q.alerts, alert)
}

func (q *captureQueue) snapshot() []domain.SecurityAlert {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.SecurityAlert, len(q.alerts))
	copy(out, q.alerts)
	return out
}

type flakySigner struct {
	inner    ports.RefreshTokenSigner
	failSign bool
}

func (f *flakySigner) Sign(claims ports.RefreshClaims) (string, error) {
	if f.failSign {
		return "", errors.New("signing backend unavailable")
	}
	return f.inner.Sign(claims)
}

func (f *flakySigner) ParseAndValidate(token string) (ports.RefreshClaims, error) {
	return f.inner.ParseAndValidate(token)
}

type fixture struct {
	service  *Service
	creds    *fakeCredentials
	bio      *fakeBiometrics
	lockouts *memory.LockoutStore
	sessions *memory.SessionStore
	alerts   *memory.AlertStore
	queue    *captureQueue
	now      time.Time
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func defaultTestConfig() Config {
	return Config{
		MaxFailedAttempts:     3,
		LockoutDuration:       30 * time.Minute,
		SessionTimeout:        15 * time.Minute,
		RefreshTokenTTL:       24 * time.Hour,
		AuthTimeout:           2 * time.Second,
		FingerprintBucket:     time.Second,
		RetentionPeriod:       24 * time.Hour,
		FailedLoginThreshold:  3,
		FailedLoginWindow:     5 * time.Minute,
		DataAccessThreshold:   5,
		DataAccessWindow:      time.Hour,
		ConfigChangeThreshold: 3,
		ConfigChangeWindow:    time.Hour,
		NormalHoursStart:      0,
		NormalHoursEnd:        0,
		TrustedDeviceIDs:      []string{"trusted-device"},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, defaultTestConfig())
}

func newFixtureWithConfig(t *testing.T, cfg Config) *fixture {
	t.Helper()

	signer, err := security.NewEphemeralJWTSigner("test-key")
	if err != nil {
		t.Fatalf("init ephemeral signer: %v", err)
	}

	f := &fixture{
		creds: &fakeCredentials{secrets: map[string]string{
			"actor-1":         goodPassword,
			"device:device-1": "7391",
		}},
		bio:      &fakeBiometrics{caps: ports.BiometricCapabilities{Available: true, Enrolled: true, Kind: "fingerprint"}, match: true},
		lockouts: memory.NewLockoutStore(),
		sessions: memory.NewSessionStore(),
		alerts:   memory.NewAlertStore(),
		queue:    &captureQueue{},
		now:      time.Now().UTC().Truncate(time.Second),
	}

	f.service = NewService(Dependencies{
		Config:       cfg,
		Sessions:     f.sessions,
		Lockouts:     f.lockouts,
		Events:       memory.NewEventStore(1024),
		Fingerprints: memory.NewFingerprintCache(1024, time.Minute),
		Alerts:       f.alerts,
		Credentials:  f.creds,
		Biometrics:   f.bio,
		TokenSigner:  signer,
		AlertQueue:   f.queue,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f.service.nowFn = func() time.Time { return f.now }
	return f
}

func passwordRequest() AuthenticateRequest {
	return AuthenticateRequest{
		ActorID:  "actor-1",
		DeviceID: "device-1",
		Method:   "password",
		Secret:   goodPassword,
	}
}

func TestAuthenticateValidateLogout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Authenticate(ctx, passwordRequest())
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if res.RefreshToken == "" {
		t.Fatalf("expected a refresh token")
	}
	if res.Method != domain.MethodPassword {
		t.Fatalf("unexpected method %s", res.Method)
	}
	if !res.ExpiresAt.Equal(f.now.Add(15 * time.Minute)) {
		t.Fatalf("expiry = %v, want %v", res.ExpiresAt, f.now.Add(15*time.Minute))
	}

	valid, err := f.service.ValidateSession(ctx, res.SessionID)
	if err != nil || !valid {
		t.Fatalf("fresh session should validate, got (%v, %v)", valid, err)
	}

	if err := f.service.Logout(ctx, res.SessionID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	valid, err = f.service.ValidateSession(ctx, res.SessionID)
	if err != nil || valid {
		t.Fatalf("revoked session must not validate, got (%v, %v)", valid, err)
	}
	// Idempotent: a second logout of the same session succeeds quietly.
	if err := f.service.Logout(ctx, res.SessionID); err != nil {
		t.Fatalf("repeat logout failed: %v", err)
	}
}

func TestSessionExpiryBoundary(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Authenticate(ctx, passwordRequest())
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}

	f.advance(899 * time.Second)
	valid, err := f.service.ValidateSession(ctx, res.SessionID)
	if err != nil || !valid {
		t.Fatalf("session at 899s should be valid, got (%v, %v)", valid, err)
	}

	f.advance(2 * time.Second)
	valid, err = f.service.ValidateSession(ctx, res.SessionID)
	if err != nil || valid {
		t.Fatalf("session at 901s should be invalid, got (%v, %v)", valid, err)
	}
	if _, err := f.service.GetSession(ctx, res.SessionID); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestValidateDoesNotExtendExpiry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Authenticate(ctx, passwordRequest())
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}

	// Validating continuously must not push the deadline.
	for i := 0; i < 14; i++ {
		f.advance(time.Minute)
		if valid, _ := f.service.ValidateSession(ctx, res.SessionID); !valid {
			t.Fatalf("session should still be valid at minute %d", i+1)
		}
	}
	f.advance(2 * time.Minute)
	if valid, _ := f.service.ValidateSession(ctx, res.SessionID); valid {
		t.Fatalf("session must expire on schedule despite activity")
	}
}

func TestLockoutEngagesAndFailsFast(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	wrong := passwordRequest()
	wrong.Secret = badPassword

	for i := 0; i < 3; i++ {
		f.advance(2 * time.Second)
		if _, err := f.service.Authenticate(ctx, wrong); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i+1, err)
		}
	}

	callsBefore := f.creds.calls()
	f.advance(2 * time.Second)
	if _, err := f.service.Authenticate(ctx, passwordRequest()); !errors.Is(err, domain.ErrLockedOut) {
		t.Fatalf("expected locked out, got %v", err)
	}
	if f.creds.calls() != callsBefore {
		t.Fatalf("locked-out attempt must not contact the credential store")
	}

	// Lock clears after LockoutDuration passes.
	f.advance(31 * time.Minute)
	if _, err := f.service.Authenticate(ctx, passwordRequest()); err != nil {
		t.Fatalf("attempt after lockout expiry should succeed: %v", err)
	}
}

func TestDeviceLockoutBlocksOtherActors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	wrong := passwordRequest()
	wrong.Secret = badPassword
	for i := 0; i < 3; i++ {
		f.advance(2 * time.Second)
		if _, err := f.service.Authenticate(ctx, wrong); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
	}

	// A different actor on the same device hits the device lock.
	other := passwordRequest()
	other.ActorID = "actor-2"
	if _, err := f.service.Authenticate(ctx, other); !errors.Is(err, domain.ErrLockedOut) {
		t.Fatalf("device lock should gate other actors, got %v", err)
	}
}

func TestPolicyViolationDoesNotCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	short := passwordRequest()
	short.Secret = "short"
	for i := 0; i < 5; i++ {
		if _, err := f.service.Authenticate(ctx, short); !errors.Is(err, domain.ErrPolicyViolation) {
			t.Fatalf("expected policy violation, got %v", err)
		}
	}
	if f.creds.calls() != 0 {
		t.Fatalf("policy violations must never reach the credential store")
	}

	state, err := f.lockouts.Get(ctx, "actor:actor-1")
	if err != nil {
		t.Fatalf("lockout get: %v", err)
	}
	if state.FailedCount != 0 {
		t.Fatalf("policy violations must not increment the failure count, got %d", state.FailedCount)
	}

	if _, err := f.service.Authenticate(ctx, passwordRequest()); err != nil {
		t.Fatalf("valid attempt after policy violations should succeed: %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	wrong := passwordRequest()
	wrong.Secret = badPassword
	for i := 0; i < 2; i++ {
		f.advance(2 * time.Second)
		if _, err := f.service.Authenticate(ctx, wrong); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
	}
	f.advance(2 * time.Second)
	if _, err := f.service.Authenticate(ctx, passwordRequest()); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}

	state, err := f.lockouts.Get(ctx, "actor:actor-1")
	if err != nil {
		t.Fatalf("lockout get: %v", err)
	}
	if state.FailedCount != 0 {
		t.Fatalf("success must clear the failure count, got %d", state.FailedCount)
	}
}

func TestBiometricHardwareFailuresDoNotCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.bio.caps.Enrolled = false
	req := AuthenticateRequest{ActorID: "actor-1", DeviceID: "device-1", Method: "biometric", Secret: "-", Prompt: "unlock"}
	if _, err := f.service.Authenticate(ctx, req); !errors.Is(err, domain.ErrHardwareUnavailable) {
		t.Fatalf("expected hardware unavailable, got %v", err)
	}

	state, err := f.lockouts.Get(ctx, "actor:actor-1")
	if err != nil {
		t.Fatalf("lockout get: %v", err)
	}
	if state.FailedCount != 0 {
		t.Fatalf("hardware faults must not count toward lockout")
	}

	f.bio.caps.Enrolled = true
	res, err := f.service.Authenticate(ctx, req)
	if err != nil {
		t.Fatalf("biometric authenticate failed: %v", err)
	}
	if res.Method != domain.MethodBiometric {
		t.Fatalf("unexpected method %s", res.Method)
	}
}

func TestPasscodeBoundToDevice(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	req := AuthenticateRequest{ActorID: "actor-1", DeviceID: "device-1", Method: "passcode", Secret: "7391"}
	if _, err := f.service.Authenticate(ctx, req); err != nil {
		t.Fatalf("passcode authenticate failed: %v", err)
	}

	req.DeviceID = "device-2"
	if _, err := f.service.Authenticate(ctx, req); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("passcode for another device must fail, got %v", err)
	}
}

func TestAuthTimeoutCountsTowardLockout(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.AuthTimeout = 20 * time.Millisecond
	f := newFixtureWithConfig(t, cfg)
	f.creds.delay = 200 * time.Millisecond
	ctx := context.Background()

	if _, err := f.service.Authenticate(ctx, passwordRequest()); !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	state, err := f.lockouts.Get(ctx, "actor:actor-1")
	if err != nil {
		t.Fatalf("lockout get: %v", err)
	}
	if state.FailedCount != 1 {
		t.Fatalf("timeout must count as one failure, got %d", state.FailedCount)
	}
}

func TestCallerCancellationAborts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.creds.delay = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if _, err := f.service.Authenticate(ctx, passwordRequest()); !errors.Is(err, domain.ErrAborted) {
		t.Fatalf("expected aborted, got %v", err)
	}

	state, err := f.lockouts.Get(context.Background(), "actor:actor-1")
	if err != nil {
		t.Fatalf("lockout get: %v", err)
	}
	if state.FailedCount != 0 {
		t.Fatalf("cancelled attempt must not count toward lockout, got %d", state.FailedCount)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Authenticate(ctx, passwordRequest())
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}

	f.advance(5 * time.Minute)
	rotated, err := f.service.RefreshSession(ctx, res.SessionID, res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rotated.SessionID == res.SessionID {
		t.Fatalf("refresh must issue a new session id")
	}
	if !rotated.ExpiresAt.Equal(f.now.Add(15 * time.Minute)) {
		t.Fatalf("rotated expiry = %v, want %v", rotated.ExpiresAt, f.now.Add(15*time.Minute))
	}

	if valid, _ := f.service.ValidateSession(ctx, res.SessionID); valid {
		t.Fatalf("old session must be dead after rotation")
	}
	if valid, _ := f.service.ValidateSession(ctx, rotated.SessionID); !valid {
		t.Fatalf("new session must be live after rotation")
	}

	// The old token no longer matches a live session.
	if _, err := f.service.RefreshSession(ctx, res.SessionID, res.RefreshToken); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("replayed refresh should fail with session not found, got %v", err)
	}
	// A token bound to another session is rejected outright.
	if _, err := f.service.RefreshSession(ctx, rotated.SessionID, res.RefreshToken); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("mismatched token should be rejected, got %v", err)
	}
}

func TestRefreshSignerFailureLeavesOldSessionAlive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Authenticate(ctx, passwordRequest())
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}

	flaky := &flakySigner{inner: f.service.tokens, failSign: true}
	f.service.tokens = flaky

	if _, err := f.service.RefreshSession(ctx, res.SessionID, res.RefreshToken); err == nil {
		t.Fatalf("refresh must fail when the signer is down")
	}

	// Rotation is all-or-nothing: the old session survives a signer fault
	// and no replacement session leaks into the store.
	if valid, _ := f.service.ValidateSession(ctx, res.SessionID); !valid {
		t.Fatalf("old session must stay live after a failed refresh")
	}
	live, err := f.sessions.ListByActor(ctx, "actor-1", f.now)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(live) != 1 || live[0].SessionID != res.SessionID {
		t.Fatalf("expected only the original session live, got %d", len(live))
	}

	// Once the signer recovers the same token still rotates the session.
	flaky.failSign = false
	rotated, err := f.service.RefreshSession(ctx, res.SessionID, res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh after recovery failed: %v", err)
	}
	if valid, _ := f.service.ValidateSession(ctx, rotated.SessionID); !valid {
		t.Fatalf("rotated session must be live")
	}
}

func TestMaxSessionsPerActorEvictsOldest(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.MaxSessionsPerActor = 2
	f := newFixtureWithConfig(t, cfg)
	ctx := context.Background()

	first, err := f.service.Authenticate(ctx, passwordRequest())
	if err != nil {
		t.Fatalf("authenticate 1: %v", err)
	}
	f.advance(time.Second)
	second, err := f.service.Authenticate(ctx, passwordRequest())
	if err != nil {
		t.Fatalf("authenticate 2: %v", err)
	}
	f.advance(time.Second)
	third, err := f.service.Authenticate(ctx, passwordRequest())
	if err != nil {
		t.Fatalf("authenticate 3: %v", err)
	}

	if valid, _ := f.service.ValidateSession(ctx, first.SessionID); valid {
		t.Fatalf("oldest session must be evicted by the cap")
	}
	for _, id := range []uuid.UUID{second.SessionID, third.SessionID} {
		if valid, _ := f.service.ValidateSession(ctx, id); !valid {
			t.Fatalf("capped actor must keep the newest sessions")
		}
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	req := passwordRequest()
	req.Method = "carrier-pigeon"
	if _, err := f.service.Authenticate(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown method, got %v", err)
	}

	req.Method = "certificate"
	if _, err := f.service.Authenticate(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unconfigured method, got %v", err)
	}
}

func TestRiskAssessmentSignals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	trusted := passwordRequest()
	trusted.DeviceID = "trusted-device"
	trustedRes, err := f.service.Authenticate(ctx, trusted)
	if err != nil {
		t.Fatalf("authenticate trusted: %v", err)
	}

	untrustedRes, err := f.service.Authenticate(ctx, passwordRequest())
	if err != nil {
		t.Fatalf("authenticate untrusted: %v", err)
	}

	if trustedRes.Risk.Score >= untrustedRes.Risk.Score {
		t.Fatalf("trusted device should lower risk: %v >= %v", trustedRes.Risk.Score, untrustedRes.Risk.Score)
	}
	if len(untrustedRes.Risk.Factors) != 4 {
		t.Fatalf("expected 4 risk factors, got %d", len(untrustedRes.Risk.Factors))
	}
}
