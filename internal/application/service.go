package application

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// Config carries the resolved policy knobs for the security-session core.
type Config struct {
	PasswordPolicy domain.PasswordPolicy

	MaxFailedAttempts int
	LockoutDuration   time.Duration

	SessionTimeout      time.Duration
	RefreshTokenTTL     time.Duration
	MaxSessionsPerActor int

	AuthTimeout time.Duration

	EnabledEventTypes []domain.EventType
	FingerprintBucket time.Duration
	RetentionPeriod   time.Duration
	// CorrelationDepth caps how many recent events a detector pass scans.
	CorrelationDepth int

	FailedLoginThreshold  int
	FailedLoginWindow     time.Duration
	DataAccessThreshold   int
	DataAccessWindow      time.Duration
	ConfigChangeThreshold int
	ConfigChangeWindow    time.Duration
	// AlertCooldown suppresses repeat firings per detector per key.
	// Zero means each detector uses its own window as the cooldown.
	AlertCooldown time.Duration

	NormalHoursStart int
	NormalHoursEnd   int
	TrustedDeviceIDs []string
}

func (c *Config) applyDefaults() {
	if c.PasswordPolicy.MinLength == 0 {
		c.PasswordPolicy = domain.DefaultPasswordPolicy()
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = 5
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 15 * time.Minute
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = 24 * time.Hour
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 10 * time.Second
	}
	if len(c.EnabledEventTypes) == 0 {
		c.EnabledEventTypes = domain.AllEventTypes()
	}
	if c.FingerprintBucket <= 0 {
		c.FingerprintBucket = time.Minute
	}
	if c.RetentionPeriod <= 0 {
		c.RetentionPeriod = 24 * time.Hour
	}
	if c.CorrelationDepth <= 0 {
		c.CorrelationDepth = 1000
	}
	if c.FailedLoginThreshold <= 0 {
		c.FailedLoginThreshold = 5
	}
	if c.FailedLoginWindow <= 0 {
		c.FailedLoginWindow = 5 * time.Minute
	}
	if c.DataAccessThreshold <= 0 {
		c.DataAccessThreshold = 50
	}
	if c.DataAccessWindow <= 0 {
		c.DataAccessWindow = time.Hour
	}
	if c.ConfigChangeThreshold <= 0 {
		c.ConfigChangeThreshold = 10
	}
	if c.ConfigChangeWindow <= 0 {
		c.ConfigChangeWindow = time.Hour
	}
	if c.NormalHoursStart == 0 && c.NormalHoursEnd == 0 {
		c.NormalHoursStart = 7
		c.NormalHoursEnd = 20
	}
}

// Service composes the security-session core: authenticators, lockout gate,
// risk engine, session manager, audit ingestor, correlator, and health
// aggregator. Each store keeps its own serialization point; the service never
// holds one component's lock while calling into another.
type Service struct {
	cfg Config

	sessions     ports.SessionStore
	lockouts     ports.LockoutStore
	events       ports.EventStore
	fingerprints ports.FingerprintCache
	alerts       ports.AlertStore

	credentials ports.CredentialStore
	biometrics  ports.BiometricHardware
	auditSink   ports.PersistentAuditSink
	tokens      ports.RefreshTokenSigner
	alertQueue  ports.AlertQueue

	healthListener func(domain.HealthReport)

	authenticators map[domain.AuthMethod]authenticator
	detectors      []detector
	trustedDevices map[string]struct{}

	// cooldowns is the correlator's own serialization point: last firing per
	// detector per key. Entries only move forward, so a detector never
	// un-fires for a window it already reported.
	cooldownMu sync.Mutex
	cooldowns  map[string]time.Time

	healthMu   sync.RWMutex
	lastHealth *domain.HealthReport

	metrics   serviceMetrics
	startedAt time.Time
	logger    *slog.Logger
	nowFn     func() time.Time
}

type serviceMetrics struct {
	authAttempts         atomic.Int64
	authSuccesses        atomic.Int64
	authLatencyNanos     atomic.Int64
	validations          atomic.Int64
	validateLatencyNanos atomic.Int64
	eventsAccepted       atomic.Int64
	eventsDeduplicated   atomic.Int64
	eventsRejected       atomic.Int64
	alertsCreated        atomic.Int64
	alertsFalsePositive  atomic.Int64
}

// Dependencies lists everything the service needs. All components are
// injected explicitly; the service holds no globals.
type Dependencies struct {
	Config       Config
	Sessions     ports.SessionStore
	Lockouts     ports.LockoutStore
	Events       ports.EventStore
	Fingerprints ports.FingerprintCache
	Alerts       ports.AlertStore
	Credentials  ports.CredentialStore
	Biometrics   ports.BiometricHardware
	AuditSink    ports.PersistentAuditSink
	TokenSigner  ports.RefreshTokenSigner
	AlertQueue   ports.AlertQueue
	// HealthListener, when set, receives every health report whose status
	// differs from the previous one.
	HealthListener func(domain.HealthReport)
	Logger         *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	cfg.applyDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:            cfg,
		sessions:       deps.Sessions,
		lockouts:       deps.Lockouts,
		events:         deps.Events,
		fingerprints:   deps.Fingerprints,
		alerts:         deps.Alerts,
		credentials:    deps.Credentials,
		biometrics:     deps.Biometrics,
		auditSink:      deps.AuditSink,
		tokens:         deps.TokenSigner,
		alertQueue:     deps.AlertQueue,
		healthListener: deps.HealthListener,
		trustedDevices: make(map[string]struct{}, len(cfg.TrustedDeviceIDs)),
		cooldowns:      make(map[string]time.Time),
		logger:         logger,
		nowFn:          func() time.Time { return time.Now().UTC() },
	}
	s.startedAt = s.nowFn()

	for _, id := range cfg.TrustedDeviceIDs {
		s.trustedDevices[id] = struct{}{}
	}

	s.authenticators = map[domain.AuthMethod]authenticator{
		domain.MethodPassword:  &passwordAuthenticator{policy: cfg.PasswordPolicy, store: deps.Credentials},
		domain.MethodBiometric: &biometricAuthenticator{hardware: deps.Biometrics},
		domain.MethodPasscode:  &passcodeAuthenticator{store: deps.Credentials},
	}

	s.detectors = []detector{
		{
			alertType: domain.AlertFailedLoginAttempts,
			eventType: domain.EventAuthentication,
			outcome:   domain.OutcomeFailure,
			perActor:  true,
			threshold: cfg.FailedLoginThreshold,
			window:    cfg.FailedLoginWindow,
		},
		{
			alertType: domain.AlertExcessiveDataAccess,
			eventType: domain.EventDataAccess,
			perActor:  true,
			threshold: cfg.DataAccessThreshold,
			window:    cfg.DataAccessWindow,
		},
		{
			alertType: domain.AlertConfigurationChurn,
			eventType: domain.EventConfigurationChange,
			threshold: cfg.ConfigChangeThreshold,
			window:    cfg.ConfigChangeWindow,
		},
		{
			alertType: domain.AlertPrivilegeEscalation,
			eventType: domain.EventPrivilegeEscalation,
			threshold: 1,
			immediate: true,
		},
	}

	return s
}
