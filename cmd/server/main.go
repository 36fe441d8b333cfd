// server runs the identity gRPC API. Configuration comes from the environment (see internal/config).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/health"

	identityv1 "multidevice-identity/backend/api/identity/v1"
	"multidevice-identity/backend/internal/audit"
	auditrepo "multidevice-identity/backend/internal/audit/repository"
	"multidevice-identity/backend/internal/config"
	"multidevice-identity/backend/internal/db"
	devicerepo "multidevice-identity/backend/internal/device/repository"
	deviceservice "multidevice-identity/backend/internal/device/service"
	"multidevice-identity/backend/internal/deviceregistry"
	registryrepo "multidevice-identity/backend/internal/deviceregistry/repository"
	registryservice "multidevice-identity/backend/internal/deviceregistry/service"
	"multidevice-identity/backend/internal/devotp"
	devotphandler "multidevice-identity/backend/internal/devotp/handler"
	"multidevice-identity/backend/internal/email"
	healthhandler "multidevice-identity/backend/internal/health/handler"
	identityhandler "multidevice-identity/backend/internal/identity/handler"
	identityservice "multidevice-identity/backend/internal/identity/service"
	"multidevice-identity/backend/internal/logger"
	otprepo "multidevice-identity/backend/internal/otp/repository"
	otpservice "multidevice-identity/backend/internal/otp/service"
	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/policy/engine"
	"multidevice-identity/backend/internal/ratelimit"
	refreshrepo "multidevice-identity/backend/internal/refreshtoken/repository"
	refreshservice "multidevice-identity/backend/internal/refreshtoken/service"
	rolerepo "multidevice-identity/backend/internal/role/repository"
	roleservice "multidevice-identity/backend/internal/role/service"
	"multidevice-identity/backend/internal/security"
	"multidevice-identity/backend/internal/server"
	"multidevice-identity/backend/internal/server/interceptors"
	"multidevice-identity/backend/internal/telemetry"
	telemetryotel "multidevice-identity/backend/internal/telemetry/otel"
	"multidevice-identity/backend/internal/telemetry/producer"
	tokencontextrepo "multidevice-identity/backend/internal/tokencontext/repository"
	userrepo "multidevice-identity/backend/internal/user/repository"
	verificationrepo "multidevice-identity/backend/internal/verification/repository"
	verificationservice "multidevice-identity/backend/internal/verification/service"
)

const (
	serviceName    = "multidevice-identity"
	healthInterval = 10 * time.Second
	shutdownGrace  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server: exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = providers.Shutdown(sctx)
	}()
	metrics, err := telemetryotel.NewIdentityMetrics(providers.MeterProvider)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	otelEvents := telemetryotel.NewEventEmitter(providers.LoggerProvider)
	events := telemetry.Fanout{otelEvents}
	if kp := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic); kp != nil {
		defer kp.Close()
		events = append(events, kp)
		log.Info("server: publishing identity events to kafka", "topic", cfg.EventsKafkaTopic)
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer sqlDB.Close()
	tx := db.NewTxManager(sqlDB)
	clk := clock.System{}

	users := userrepo.NewPostgresRepository(sqlDB)
	tokenContexts := tokencontextrepo.NewPostgresRepository(sqlDB)

	policy, err := engine.NewOPAEvaluator(ctx, "", log)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	roles := roleservice.NewUserRoleService(rolerepo.NewPostgresRepository(sqlDB), policy, clk)

	fingerprinter, err := deviceregistry.NewFingerprinter([]byte(cfg.FingerprintKey))
	if err != nil {
		return fmt.Errorf("fingerprint: %w", err)
	}
	devices := deviceservice.NewDeviceService(devicerepo.NewPostgresRepository(sqlDB), clk)
	registry := registryservice.NewRegistryService(registryrepo.NewPostgresRepository(sqlDB), users, devices, fingerprinter, clk, cfg.MaxDevicesPerUser)

	var devStore devotp.Store
	if cfg.OTPReturnToClient {
		devStore = devotp.NewMemoryStore(clk)
		log.Warn("server: OTP_RETURN_TO_CLIENT is enabled; DevService/GetOTP exposes login codes")
	}
	sender, err := email.New(cfg, devStore, cfg.OTPLifetime(), log)
	if err != nil {
		return err
	}
	otps := otpservice.NewOTPService(otprepo.NewPostgresRepository(sqlDB), security.NewHasher(cfg.BcryptCost), clk, cfg.OTPLifetime())
	verification := verificationservice.NewVerificationService(tx, users, verificationrepo.NewPostgresRepository(sqlDB), otps, roles, sender, clk, log)
	refreshTokens := refreshservice.NewRefreshTokenService(refreshrepo.NewPostgresRepository(sqlDB), tx, clk, cfg.RefreshTTL(), log)

	accessTokens, err := newTokenProvider(cfg, log)
	if err != nil {
		return err
	}
	identities := identityservice.NewMultiDeviceIdentityService(identityservice.IdentityDeps{
		Tx:       tx,
		Registry: registry,
		Devices:  devices,
		Users:    users,
		Tokens:   refreshTokens,
		Contexts: tokenContexts,
		Roles:    roles,
		Minter:   accessTokens,
		Clock:    clk,
		Log:      log,
		Metrics:  metrics,
		Events:   events,
	})

	limiter, closeLimiter, err := newLimiter(ctx, cfg, clk, log)
	if err != nil {
		return err
	}
	defer closeLimiter()
	auth := identityservice.NewPasswordlessAuthService(verification, identities, users, roles, limiter, log, metrics, events)

	hs := health.NewServer()
	checker := healthhandler.NewChecker(hs, sqlDB, policy, log, identityv1.IdentityServiceName)
	go checker.Run(ctx, healthInterval)

	deps := server.Deps{
		Identity: identityhandler.NewServer(auth, registry, identities, roles, log),
		Health:   hs,
	}
	if devStore != nil {
		deps.DevOTP = devotphandler.NewServer(devStore)
	}
	s := server.NewServer(server.Options{
		Tokens: accessTokens,
		Audit:  audit.NewLogger(auditrepo.NewPostgresRepository(sqlDB), interceptors.ClientIP, clk, log),
		Events: otelEvents,
	})
	server.RegisterServices(s, deps)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server: gRPC listening", "addr", cfg.GRPCAddr)
		serveErr <- s.Serve(lis)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	log.Info("server: shutting down")
	hs.Shutdown()
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownGrace):
		s.Stop()
	}
	log.Info("server: stopped")
	return nil
}

// newTokenProvider loads the JWT key pair. Outside production a missing pair falls back to an
// ephemeral key so local runs work without setup.
func newTokenProvider(cfg *config.Config, log *slog.Logger) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey == "" && cfg.JWTPublicKey == "" {
		if cfg.IsProduction() {
			return nil, errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set when APP_ENV=production")
		}
		log.Warn("server: no JWT key pair configured; using an ephemeral key")
		priv, pub, err := security.GenerateEphemeralKey()
		if err != nil {
			return nil, err
		}
		return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
	}
	priv, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("jwt keys: %w", err)
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
}

// newLimiter returns the Redis limiter when REDIS_ADDR is set, else the in-memory one.
func newLimiter(ctx context.Context, cfg *config.Config, clk clock.Clock, log *slog.Logger) (ratelimit.Limiter, func(), error) {
	rl := ratelimit.Config{PerMinute: cfg.OTPSendPerMinute, PerHour: cfg.OTPSendPerHour}
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(rl, clk), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	log.Info("server: using redis rate limiter", "addr", cfg.RedisAddr)
	return ratelimit.NewRedisLimiter(client, rl, clk), func() { _ = client.Close() }, nil
}
