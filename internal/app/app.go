// Package app builds the session stack (store, registry, backend client, service, manager) from config.
package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"staff-dashboard/internal/backend"
	"staff-dashboard/internal/backend/grpcrpc"
	"staff-dashboard/internal/backend/httprpc"
	"staff-dashboard/internal/config"
	"staff-dashboard/internal/db"
	"staff-dashboard/internal/db/migrate"
	"staff-dashboard/internal/demoaccount"
	"staff-dashboard/internal/security"
	"staff-dashboard/internal/server"
	"staff-dashboard/internal/session/manager"
	"staff-dashboard/internal/session/repository"
	"staff-dashboard/internal/session/service"
	"staff-dashboard/internal/telemetry"
	otelsetup "staff-dashboard/internal/telemetry/otel"
	"staff-dashboard/internal/telemetry/producer"
)

const meterName = "staff-dashboard"

// App holds the wired session stack. Close releases everything New opened.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Providers *otelsetup.Providers
	Store     repository.Store
	Registry  demoaccount.Registry
	Client    backend.Client
	Auth      *service.AuthService
	Manager   *manager.Manager
	// Checks are dependency health checks for /healthz.
	Checks map[string]server.HealthCheck

	closers []func(context.Context) error
}

// NewLogger returns a production zap logger; level "debug" enables debug output.
func NewLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level == "debug" {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

// New wires the stack for cfg. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Checks: map[string]server.HealthCheck{}}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	a.Providers, err = otelsetup.NewProviders(ctx, otelsetup.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.Providers.SetGlobal()
	a.closers = append(a.closers, a.Providers.Shutdown)

	emitters := telemetry.Fanout{otelsetup.NewEventEmitter(a.Providers.LoggerProvider)}
	if kp := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.SessionEventsTopic); kp != nil {
		emitters = append(emitters, kp)
		a.closers = append(a.closers, func(context.Context) error { return kp.Close() })
		logger.Info("session events: kafka enabled", zap.String("topic", kp.Topic()))
	}

	if a.Store, err = a.openStore(ctx); err != nil {
		return nil, err
	}
	if a.Registry, err = newRegistry(cfg); err != nil {
		return nil, err
	}
	if a.Client, err = a.newClient(); err != nil {
		return nil, err
	}

	a.Auth = service.NewAuthService(
		a.Registry,
		a.Store,
		a.Client,
		security.UUIDGenerator{},
		emitters,
		a.Providers.MeterProvider.Meter(meterName),
		logger,
	)
	a.Manager = manager.New(a.Auth, logger)
	a.closers = append(a.closers, func(context.Context) error {
		a.Manager.Close()
		return nil
	})
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	cfg := a.Config
	switch cfg.SessionStore {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	case config.StoreFile:
		path := cfg.SessionFile
		if path == "" {
			p, err := repository.DefaultFilePath()
			if err != nil {
				return nil, fmt.Errorf("session file: %w", err)
			}
			path = p
		}
		a.Logger.Debug("session store: file", zap.String("path", path))
		return repository.NewFileStore(path, a.Logger), nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Checks["session_store"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		return repository.NewRedisStore(rdb, cfg.SessionClientID, cfg.SessionStoreTTL), nil
	case config.StorePostgres:
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
		a.Checks["session_store"] = sqlDB.PingContext
		return repository.NewPostgresStore(sqlDB, cfg.SessionClientID), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

func newRegistry(cfg *config.Config) (demoaccount.Registry, error) {
	if !cfg.DemoAccountsEnabled {
		return demoaccount.Disabled{}, nil
	}
	seeds := demoaccount.DefaultSeeds()
	if cfg.DemoAccountsFile != "" {
		s, err := demoaccount.LoadSeeds(cfg.DemoAccountsFile)
		if err != nil {
			return nil, err
		}
		seeds = s
	}
	return demoaccount.NewStaticRegistry(security.NewHasher(cfg.BcryptCost), seeds)
}

func (a *App) newClient() (backend.Client, error) {
	cfg := a.Config
	if !cfg.BackendConfigured() {
		a.Logger.Info("backend: not configured; only demo accounts can sign in")
		return backend.Unconfigured{}, nil
	}
	switch cfg.BackendTransport {
	case config.TransportGRPC:
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
		if cfg.BackendGRPCInsecure {
			creds = insecure.NewCredentials()
		}
		c, err := grpcrpc.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout, creds)
		if err != nil {
			return nil, fmt.Errorf("grpc backend: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return c.Close() })
		return c, nil
	default:
		return httprpc.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
