package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/podcaster/internal"
	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/DukeRupert/podcaster/internal/handler"
	"github.com/DukeRupert/podcaster/internal/metrics"
	"github.com/DukeRupert/podcaster/internal/middleware"
	"github.com/DukeRupert/podcaster/internal/repository"
	"github.com/DukeRupert/podcaster/internal/service"
	"github.com/DukeRupert/podcaster/internal/storage"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	if !cfg.HasJWTSecret {
		logger.Warn("JWT_SECRET not set, using development secret")
	}

	// Initialize database connection
	db, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// The schema must be current before any request is served.
	if err := internal.RunMigrations(db.DB, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	store := repository.NewStore(db)

	gateway, localFiles, err := newGateway(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Initialize services
	plans := domain.NewDefaultPlanRegistry()
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	accountService := service.NewAccountService(store, tokens, plans, logger)
	quotaService := service.NewQuotaService(store, plans, logger)
	feedService := service.NewFeedService(store, quotaService, gateway, logger)
	episodeService := service.NewEpisodeService(store, quotaService, gateway, service.EpisodeConfig{
		StorageRoot: cfg.StorageRoot,
	}, logger)

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(accountService, logger)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	defer loginLimiter.Stop()
	rateLimitMw := middleware.NewRateLimitMiddleware(loginLimiter, logger)

	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)
	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("metrics endpoint is not protected")
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	handler.RegisterSystemRoutes(mux, handler.DebugInfo{
		Env:            cfg.Env,
		HasDatabaseURL: cfg.HasDatabaseURL,
		HasPGHost:      cfg.HasPGHost,
		HasJWTSecret:   cfg.HasJWTSecret,
		Storage:        cfg.StorageProvider,
	})
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	if localFiles != nil {
		mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(localFiles.BasePath()))))
	}

	handler.NewAuthHandler(accountService, rateLimitMw, logger).RegisterRoutes(mux, authMw.RequireAccount, rateLimitMw.Limit)
	handler.NewFeedHandler(feedService, logger).RegisterRoutes(mux, authMw.RequireAccount)
	handler.NewEpisodeHandler(episodeService, cfg.MaxUploadBytes, logger).RegisterRoutes(mux, authMw.RequireAccount)

	stack := middleware.Stack(
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
		middleware.NewSecurityHeadersMiddleware(!cfg.IsDevelopment()).Handler,
		metrics.Middleware,
		middleware.NewRequestLoggingMiddleware(logger).Handler,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "storage", cfg.StorageProvider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newGateway builds the asset gateway for the configured provider. For the
// local provider it also returns the store so its files can be served.
func newGateway(cfg *internal.Config, logger *slog.Logger) (storage.Gateway, *storage.LocalStorage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		r2, err := storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewObjectGateway(r2, 0), nil, nil

	case storage.ProviderCloudinary:
		gw, err := storage.NewCloudinaryGateway(storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return gw, nil, nil

	default:
		local, err := storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewObjectGateway(local, 0), local, nil
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
