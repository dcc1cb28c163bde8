package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the security-session
// service. It merges file defaults and environment overrides to support both
// local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	// RedisURL is optional; empty keeps lockout and dedup state in process.
	RedisURL string
	// KafkaBrokers is optional; empty routes alerts to the structured log.
	KafkaBrokers    []string
	KafkaAlertTopic string

	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTKeyID          string
	AllowEphemeralJWT bool

	BcryptCost int

	// SeedCredentials maps verification keys (actor IDs, or "device:"+deviceID
	// for passcodes) to plaintext secrets hashed at startup. Local/dev only; a
	// deployed instance verifies against the platform credential service.
	SeedCredentials map[string]string

	SessionTimeout      time.Duration
	RefreshTokenTTL     time.Duration
	MaxSessionsPerActor int

	FailedThreshold int
	LockoutDuration time.Duration
	AuthTimeout     time.Duration

	EnabledEventTypes []string
	FingerprintBucket time.Duration
	RetentionPeriod   time.Duration
	EventRingSize     int
	FingerprintSize   int

	FailedLoginThreshold  int
	FailedLoginWindow     time.Duration
	DataAccessThreshold   int
	DataAccessWindow      time.Duration
	ConfigChangeThreshold int
	ConfigChangeWindow    time.Duration
	AlertCooldown         time.Duration
	AlertQueueSize        int

	NormalHoursStart int
	NormalHoursEnd   int
	TrustedDeviceIDs []string

	MaintenanceInterval  time.Duration
	HealthSampleInterval time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		RedisURL        string   `yaml:"redis_url"`
		KafkaBrokers    []string `yaml:"kafka_brokers"`
		KafkaAlertTopic string   `yaml:"kafka_alert_topic"`
	} `yaml:"dependencies"`
	Policy struct {
		SessionTimeoutMinutes int               `yaml:"session_timeout_minutes"`
		RefreshTTLHours       int               `yaml:"refresh_ttl_hours"`
		MaxSessionsPerActor   int               `yaml:"max_sessions_per_actor"`
		FailedThreshold       int               `yaml:"failed_threshold"`
		LockoutMinutes        int               `yaml:"lockout_minutes"`
		EnabledEventTypes     []string          `yaml:"enabled_event_types"`
		TrustedDeviceIDs      []string          `yaml:"trusted_device_ids"`
		SeedCredentials       map[string]string `yaml:"seed_credentials"`
		NormalHoursStart      int               `yaml:"normal_hours_start"`
		NormalHoursEnd        int               `yaml:"normal_hours_end"`
	} `yaml:"policy"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:             "M63-Security-Session-Service",
		HTTPPort:              8080,
		GRPCPort:              9090,
		KafkaAlertTopic:       "security.alerts.v1",
		JWTKeyID:              "m63-refresh-key-1",
		AllowEphemeralJWT:     true,
		BcryptCost:            12,
		SessionTimeout:        15 * time.Minute,
		RefreshTokenTTL:       24 * time.Hour,
		MaxSessionsPerActor:   0,
		FailedThreshold:       5,
		LockoutDuration:       30 * time.Minute,
		AuthTimeout:           10 * time.Second,
		FingerprintBucket:     time.Minute,
		RetentionPeriod:       24 * time.Hour,
		EventRingSize:         4096,
		FingerprintSize:       8192,
		FailedLoginThreshold:  5,
		FailedLoginWindow:     5 * time.Minute,
		DataAccessThreshold:   50,
		DataAccessWindow:      time.Hour,
		ConfigChangeThreshold: 10,
		ConfigChangeWindow:    time.Hour,
		AlertQueueSize:        256,
		NormalHoursStart:      7,
		NormalHoursEnd:        20,
		MaintenanceInterval:   time.Minute,
		HealthSampleInterval:  30 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaAlertTopic != "" {
			cfg.KafkaAlertTopic = f.Dependencies.KafkaAlertTopic
		}
		if f.Policy.SessionTimeoutMinutes > 0 {
			cfg.SessionTimeout = time.Duration(f.Policy.SessionTimeoutMinutes) * time.Minute
		}
		if f.Policy.RefreshTTLHours > 0 {
			cfg.RefreshTokenTTL = time.Duration(f.Policy.RefreshTTLHours) * time.Hour
		}
		if f.Policy.MaxSessionsPerActor > 0 {
			cfg.MaxSessionsPerActor = f.Policy.MaxSessionsPerActor
		}
		if f.Policy.FailedThreshold > 0 {
			cfg.FailedThreshold = f.Policy.FailedThreshold
		}
		if f.Policy.LockoutMinutes > 0 {
			cfg.LockoutDuration = time.Duration(f.Policy.LockoutMinutes) * time.Minute
		}
		if len(f.Policy.EnabledEventTypes) > 0 {
			cfg.EnabledEventTypes = f.Policy.EnabledEventTypes
		}
		if len(f.Policy.TrustedDeviceIDs) > 0 {
			cfg.TrustedDeviceIDs = f.Policy.TrustedDeviceIDs
		}
		if len(f.Policy.SeedCredentials) > 0 {
			cfg.SeedCredentials = f.Policy.SeedCredentials
		}
		if f.Policy.NormalHoursStart > 0 || f.Policy.NormalHoursEnd > 0 {
			cfg.NormalHoursStart = f.Policy.NormalHoursStart
			cfg.NormalHoursEnd = f.Policy.NormalHoursEnd
		}
	}

	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaAlertTopic = envOrDefault("KAFKA_ALERT_TOPIC", cfg.KafkaAlertTopic)
	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)
	cfg.EnabledEventTypes = envCSV("ENABLED_EVENT_TYPES", cfg.EnabledEventTypes)
	cfg.TrustedDeviceIDs = envCSV("TRUSTED_DEVICE_IDS", cfg.TrustedDeviceIDs)
	cfg.SeedCredentials = envKeyValues("SEED_CREDENTIALS", cfg.SeedCredentials)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.MaxSessionsPerActor = envInt("MAX_SESSIONS_PER_ACTOR", cfg.MaxSessionsPerActor)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.EventRingSize = envInt("EVENT_RING_SIZE", cfg.EventRingSize)
	cfg.FingerprintSize = envInt("FINGERPRINT_CACHE_SIZE", cfg.FingerprintSize)
	cfg.FailedLoginThreshold = envInt("DETECTOR_FAILED_LOGIN_THRESHOLD", cfg.FailedLoginThreshold)
	cfg.DataAccessThreshold = envInt("DETECTOR_DATA_ACCESS_THRESHOLD", cfg.DataAccessThreshold)
	cfg.ConfigChangeThreshold = envInt("DETECTOR_CONFIG_CHANGE_THRESHOLD", cfg.ConfigChangeThreshold)
	cfg.AlertQueueSize = envInt("ALERT_QUEUE_SIZE", cfg.AlertQueueSize)
	cfg.NormalHoursStart = envInt("NORMAL_HOURS_START", cfg.NormalHoursStart)
	cfg.NormalHoursEnd = envInt("NORMAL_HOURS_END", cfg.NormalHoursEnd)

	cfg.SessionTimeout = time.Duration(envInt("SESSION_TIMEOUT_MINUTES", int(cfg.SessionTimeout.Minutes()))) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TTL_HOURS", int(cfg.RefreshTokenTTL.Hours()))) * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.AuthTimeout = time.Duration(envInt("AUTH_TIMEOUT_SECONDS", int(cfg.AuthTimeout.Seconds()))) * time.Second
	cfg.FingerprintBucket = time.Duration(envInt("FINGERPRINT_BUCKET_SECONDS", int(cfg.FingerprintBucket.Seconds()))) * time.Second
	cfg.RetentionPeriod = time.Duration(envInt("EVENT_RETENTION_HOURS", int(cfg.RetentionPeriod.Hours()))) * time.Hour
	cfg.FailedLoginWindow = time.Duration(envInt("DETECTOR_FAILED_LOGIN_WINDOW_SECONDS", int(cfg.FailedLoginWindow.Seconds()))) * time.Second
	cfg.DataAccessWindow = time.Duration(envInt("DETECTOR_DATA_ACCESS_WINDOW_SECONDS", int(cfg.DataAccessWindow.Seconds()))) * time.Second
	cfg.ConfigChangeWindow = time.Duration(envInt("DETECTOR_CONFIG_CHANGE_WINDOW_SECONDS", int(cfg.ConfigChangeWindow.Seconds()))) * time.Second
	cfg.AlertCooldown = time.Duration(envInt("ALERT_COOLDOWN_SECONDS", int(cfg.AlertCooldown.Seconds()))) * time.Second
	cfg.MaintenanceInterval = time.Duration(envInt("MAINTENANCE_INTERVAL_SECONDS", int(cfg.MaintenanceInterval.Seconds()))) * time.Second
	cfg.HealthSampleInterval = time.Duration(envInt("HEALTH_SAMPLE_INTERVAL_SECONDS", int(cfg.HealthSampleInterval.Seconds()))) * time.Second

	if (cfg.JWTPrivateKeyPEM == "" || cfg.JWTPublicKeyPEM == "") && !cfg.AllowEphemeralJWT {
		return Config{}, fmt.Errorf("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
	}
	if cfg.NormalHoursStart < 0 || cfg.NormalHoursStart > 23 || cfg.NormalHoursEnd < 0 || cfg.NormalHoursEnd > 23 {
		return Config{}, fmt.Errorf("normal hours must be within 0-23")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envKeyValues parses comma-separated key=value env vars into a map.
func envKeyValues(name string, fallback map[string]string) map[string]string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
