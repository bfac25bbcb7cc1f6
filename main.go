package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/auth"
	"github.com/ranchforce/agriwebb-sync/pkg/config"
	"github.com/ranchforce/agriwebb-sync/pkg/crypto"
	"github.com/ranchforce/agriwebb-sync/pkg/database"
	"github.com/ranchforce/agriwebb-sync/pkg/handlers"
	"github.com/ranchforce/agriwebb-sync/pkg/logging"
	"github.com/ranchforce/agriwebb-sync/pkg/middleware"
	"github.com/ranchforce/agriwebb-sync/pkg/repositories"
	"github.com/ranchforce/agriwebb-sync/pkg/services"
	"github.com/ranchforce/agriwebb-sync/pkg/services/workqueue"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connStr := cfg.Database.ConnectionString()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(connStr)),
		zap.String("agriwebb_api", cfg.AgriWebb.APIURL),
		zap.Int("max_concurrent_jobs", cfg.Sync.MaxConcurrentJobs))

	if cfg.Sync.MigrationsOnStart {
		if err := migrate(connStr, logger); err != nil {
			return err
		}
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	sealer, err := crypto.NewTokenSealer(cfg.TokenCredentialsKey)
	if err != nil {
		return fmt.Errorf("failed to create token sealer: %w", err)
	}

	client, err := agriwebb.NewClient(agriwebb.Config{
		ClientID:         cfg.AgriWebb.ClientID,
		ClientSecret:     cfg.AgriWebb.ClientSecret,
		RedirectURI:      cfg.AgriWebb.RedirectURI,
		AuthorizationURL: cfg.AgriWebb.AuthorizationURL,
		TokenURL:         cfg.AgriWebb.TokenURL,
		APIURL:           cfg.AgriWebb.APIURL,
		Scopes:           cfg.AgriWebb.ScopeList(),
		Timeout:          cfg.AgriWebb.RequestTimeout,
	}, logger)
	if err != nil {
		return err
	}

	// Repositories
	tokenRepo := repositories.NewTokenRepository(sealer)
	animalRepo := repositories.NewAnimalRepository()
	farmRepo := repositories.NewFarmRepository()

	// Services
	tokenService := services.NewTokenService(db, tokenRepo, client, logger)
	oauthService := services.NewOAuthService(client, tokenService, logger)
	syncService := services.NewSyncService(db, tokenService, client,
		services.NewAnimalIngester(animalRepo, logger),
		services.NewFarmIngester(farmRepo, logger),
		cfg.Sync.ExportDir, logger)
	lookupService := services.NewLookupService(db, animalRepo, farmRepo)

	queue := workqueue.New(logger,
		workqueue.WithStrategy(workqueue.StrategyFor(cfg.Sync.MaxConcurrentJobs)),
		workqueue.WithHistoryLimit(cfg.Sync.TaskHistory))
	if cfg.IsLocal() {
		queueLogger := logger.Named("workqueue")
		queue.SetOnUpdate(func(tasks []workqueue.TaskSnapshot) {
			queueLogger.Debug("Task queue updated", zap.Int("tasks", len(tasks)))
		})
	}

	// Authentication of API callers
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		Audience:           cfg.Auth.Audience,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize JWKS client: %w", err)
	}
	defer jwksClient.Close()
	if !cfg.Auth.EnableVerification {
		logger.Warn("JWT signature verification is disabled")
	}
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(jwksClient, logger), logger)
	sessions := auth.NewSessionStore(cfg.SessionSecret, auth.DeriveCookieSettings(cfg.BaseURL, cfg.CookieDomain))

	// Handlers
	mux := http.NewServeMux()
	health := handlers.NewHealthHandler(cfg, db, logger)
	health.SetTaskStats(queue)
	health.RegisterRoutes(mux)
	handlers.NewOAuthHandler(oauthService, sessions, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewSyncHandler(syncService, tokenService, queue, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewTokenHandler(tokenService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewDataHandler(lookupService, logger).RegisterRoutes(mux, authMiddleware)

	var handler http.Handler = mux
	handler = middleware.Recoverer(logger)(handler)
	handler = middleware.RequestLogger(logger)(handler)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting agriwebb-sync",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))

		var err error
		if cfg.TLSCertPath != "" {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server did not shut down cleanly", zap.Error(err))
	}
	if cfg.Sync.DrainTimeout > 0 {
		drain(queue, cfg.Sync.DrainTimeout, logger)
		// Draining must not eat into the time cancelled jobs get to roll back.
		cancel()
		shutdownCtx, cancel = context.WithTimeout(context.Background(), cfg.Sync.ShutdownTimeout)
		defer cancel()
	}
	// Jobs see their context cancelled and roll back the page in flight.
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Sync jobs did not finish before shutdown timeout", zap.Error(err))
	}

	p := queue.Progress()
	logger.Info("Stopped",
		zap.Int("completed_jobs", p.Completed),
		zap.Int("failed_jobs", p.Failed),
		zap.Int("cancelled_jobs", p.Cancelled))
	return nil
}

// drain lets queued and running jobs finish. Jobs still running when
// timeout expires are cancelled.
func drain(queue *workqueue.Queue, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := queue.Wait(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		logger.Warn("Sync jobs did not drain in time", zap.Duration("timeout", timeout))
	default:
		logger.Info("Sync jobs drained with failures", zap.Error(err))
	}
}

func migrate(connStr string, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger.Named("migrations")); err != nil {
		return err
	}
	return nil
}
