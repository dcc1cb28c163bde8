package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/application"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/domain"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	healthSrv  *health.Server
	relay      *eventadapter.AlertRelay
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping m63 security session service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	cleanup := func(context.Context) {}

	var lockouts ports.LockoutStore = memory.NewLockoutStore()
	var fingerprints ports.FingerprintCache = memory.NewFingerprintCache(cfg.FingerprintSize, cfg.FingerprintBucket)
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		lockouts = cacheadapter.NewRedisLockoutStore(redisClient)
		fingerprints = cacheadapter.NewRedisFingerprintCache(redisClient, cfg.FingerprintBucket)
		cleanup = func(context.Context) { _ = redisClient.Close() }
	}

	tokenSigner, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
	if err != nil {
		if !cfg.AllowEphemeralJWT {
			return nil, fmt.Errorf("init jwt signer: %w", err)
		}
		logger.Warn("using ephemeral JWT keys for local/dev runtime")
		tokenSigner, err = security.NewEphemeralJWTSigner(cfg.JWTKeyID)
		if err != nil {
			return nil, fmt.Errorf("init ephemeral jwt signer: %w", err)
		}
	}

	var publisher ports.AlertPublisher = eventadapter.NewLoggingPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
		publisher = kafkaPublisher
		prev := cleanup
		cleanup = func(c context.Context) {
			_ = kafkaPublisher.Close()
			prev(c)
		}
	}
	relay := eventadapter.NewAlertRelay(logger, publisher, cfg.AlertQueueSize, 3, 500*time.Millisecond)

	enabledTypes := make([]domain.EventType, 0, len(cfg.EnabledEventTypes))
	for _, raw := range cfg.EnabledEventTypes {
		t, parseErr := domain.ParseEventType(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("enabled event types: %w", parseErr)
		}
		enabledTypes = append(enabledTypes, t)
	}

	credentials := security.NewStaticCredentialStore(security.NewBcryptHasher(cfg.BcryptCost))
	for key, secret := range cfg.SeedCredentials {
		if err := credentials.Seed(key, secret); err != nil {
			return nil, fmt.Errorf("seed credential %q: %w", key, err)
		}
	}
	if len(cfg.SeedCredentials) > 0 {
		logger.Info("seeded local credential store", "count", len(cfg.SeedCredentials))
	}

	healthSrv := health.NewServer()
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			MaxFailedAttempts:     cfg.FailedThreshold,
			LockoutDuration:       cfg.LockoutDuration,
			SessionTimeout:        cfg.SessionTimeout,
			RefreshTokenTTL:       cfg.RefreshTokenTTL,
			MaxSessionsPerActor:   cfg.MaxSessionsPerActor,
			AuthTimeout:           cfg.AuthTimeout,
			EnabledEventTypes:     enabledTypes,
			FingerprintBucket:     cfg.FingerprintBucket,
			RetentionPeriod:       cfg.RetentionPeriod,
			FailedLoginThreshold:  cfg.FailedLoginThreshold,
			FailedLoginWindow:     cfg.FailedLoginWindow,
			DataAccessThreshold:   cfg.DataAccessThreshold,
			DataAccessWindow:      cfg.DataAccessWindow,
			ConfigChangeThreshold: cfg.ConfigChangeThreshold,
			ConfigChangeWindow:    cfg.ConfigChangeWindow,
			AlertCooldown:         cfg.AlertCooldown,
			NormalHoursStart:      cfg.NormalHoursStart,
			NormalHoursEnd:        cfg.NormalHoursEnd,
			TrustedDeviceIDs:      cfg.TrustedDeviceIDs,
		},
		Sessions:     memory.NewSessionStore(),
		Lockouts:     lockouts,
		Events:       memory.NewEventStore(cfg.EventRingSize),
		Fingerprints: fingerprints,
		Alerts:       memory.NewAlertStore(),
		Credentials:  credentials,
		Biometrics:   security.NewUnavailableBiometricHardware(),
		AuditSink:    eventadapter.NewLoggingAuditSink(logger),
		TokenSigner:  tokenSigner,
		AlertQueue:   relay,
		HealthListener: func(report domain.HealthReport) {
			status := healthpb.HealthCheckResponse_SERVING
			if report.Status == domain.HealthCritical {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			healthSrv.SetServingStatus("", status)
		},
		Logger: logger,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewSecurityInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		healthSrv:  healthSrv,
		relay:      relay,
		cleanupFn:  cleanup,
	}, nil
}

// Run starts the HTTP and gRPC servers alongside the background loops (alert
// relay, maintenance sweeper, health sampler) and blocks until a shutdown
// signal or a server failure.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_ = r.relay.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		_ = r.service.RunMaintenance(workerCtx, r.cfg.MaintenanceInterval)
	}()
	go func() {
		defer wg.Done()
		_ = r.service.RunHealthSampler(workerCtx, r.cfg.HealthSampleInterval)
	}()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	cancelWorkers()
	wg.Wait()
	r.cleanupFn(shutdownCtx)
	return nil
}
