package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/grantd/internal/provider/credentials"
	httpapi "github.com/aussiebroadwan/grantd/internal/provider/http"
	"github.com/aussiebroadwan/grantd/internal/provider/lock"
	"github.com/aussiebroadwan/grantd/internal/provider/metrics"
	"github.com/aussiebroadwan/grantd/internal/provider/service"
	"github.com/aussiebroadwan/grantd/internal/provider/store"
	"github.com/aussiebroadwan/grantd/internal/provider/store/drivers/postgres"
	"github.com/aussiebroadwan/grantd/internal/provider/store/drivers/sqlite"
	"github.com/aussiebroadwan/grantd/pkg/cryptox"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
	"github.com/aussiebroadwan/grantd/pkg/jwtx"
	"github.com/aussiebroadwan/grantd/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the authorization server with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	redis    *redis.Client
	locker   service.Locker
	users    *credentials.FileVerifier
	metrics  *metrics.Metrics
	verifier jwtx.Verifier

	// Services
	tokenService        *service.TokenService
	authorizeService    *service.AuthorizeService
	clientService       *service.ClientService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "grantd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("load pepper: %w", err)
	}

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initDependencies(ctx); err != nil {
		app.closeDependencies()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("grantd starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"driver", app.cfg.DatabaseDriver,
		"distributed_lock", app.redis != nil,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// SIGHUP reloads the users file, the others shut down
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	for {
		select {
		case err := <-serverErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				app.reloadUsers()
				continue
			}

			app.logger.Info("shutdown signal received", "signal", sig)
			if err := app.Shutdown(); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		}
	}
}

func (app *Application) reloadUsers() {
	if app.users == nil {
		return
	}
	if err := app.users.Reload(); err != nil {
		app.logger.Error("failed to reload users file, keeping previous users", "error", err)
		return
	}
	app.logger.Info("users file reloaded", "users", app.users.Len())
	app.warnOutdatedHashes()
}

func (app *Application) warnOutdatedHashes() {
	if stale := app.users.OutdatedHashes(); len(stale) > 0 {
		app.logger.Warn("users with outdated password hashes, regenerate them with hash-password", "users", stale)
	}
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down grantd...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	if app.metrics != nil {
		if err := app.metrics.Shutdown(ctx); err != nil {
			app.logger.Error("error shutting down metrics", "error", err)
		}
	}

	if err := app.closeDependencies(); err != nil {
		return err
	}

	app.logger.Info("grantd stopped")
	return nil
}

func (app *Application) closeDependencies() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initDependencies sets up the optional collaborators: Redis, the users
// file, metrics and the session verifier.
func (app *Application) initDependencies(ctx context.Context) error {
	if app.cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := app.redis.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	if app.cfg.UsersFile != "" {
		users, err := credentials.LoadFile(app.cfg.UsersFile)
		if err != nil {
			return fmt.Errorf("failed to load users file: %w", err)
		}
		app.users = users
		app.logger.Info("users file loaded", "users", users.Len())
		app.warnOutdatedHashes()
	} else {
		app.logger.Warn("no users file configured, the password grant will reject every user")
	}

	if app.cfg.MetricsEnabled {
		m, err := metrics.New()
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		app.metrics = m
	}

	if app.cfg.SessionSecret != "" {
		v, err := jwtx.NewVerifierHS256([]byte(app.cfg.SessionSecret), app.cfg.SessionIssuer, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize session verifier: %w", err)
		}
		app.verifier = v
	}

	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.clientService = &service.ClientService{Store: app.db}

	app.locker = lock.NewMemoryLocker()
	if app.redis != nil {
		app.locker = lock.NewRedisLocker(app.redis, app.cfg.RedisPrefix, lock.DefaultLockTTL)
	}

	var verifier service.CredentialVerifier
	if app.users != nil {
		verifier = app.users
	}

	app.tokenService = &service.TokenService{
		Store:           app.db,
		Clients:         app.clientService,
		Verifier:        verifier,
		Locker:          app.locker,
		RequireSecure:   app.cfg.RequireSecureTransport,
		TokenLifetime:   app.cfg.TokenLifetime,
		RefreshRotation: app.cfg.RefreshRotation,
		Metrics:         app.metrics,
	}

	app.authorizeService = &service.AuthorizeService{
		Store:         app.db,
		RequireSecure: app.cfg.RequireSecureTransport,
		CodeLifetime:  app.cfg.CodeLifetime,
		TokenLifetime: app.cfg.TokenLifetime,
		Metrics:       app.metrics,
	}

	app.bootstrapService = &service.BootstrapService{
		Store:   app.db,
		Clients: app.clientService,
		Token:   app.cfg.BootstrapToken,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.TokenRetention,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		app.cfg.TrustForwardedProto,
		BuildVersion,
		app.metrics,
		app.logger,
	)

	// Wire services to router
	router.TokenService = app.tokenService
	router.AuthorizeService = app.authorizeService
	router.ClientService = app.clientService
	router.BootstrapService = app.bootstrapService
	if app.cfg.RateLimits != (httpx.RateLimits{}) {
		router.RateLimits = app.cfg.RateLimits
	}

	router.AddReadinessCheck("database", app.db)
	if p, ok := app.locker.(httpapi.Pinger); ok {
		router.AddReadinessCheck("redis", p)
	}
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
