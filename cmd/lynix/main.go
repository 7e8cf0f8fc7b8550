package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lynixity/lynix-go/internal/config"
	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/handler"
	"github.com/lynixity/lynix-go/internal/infra/cache"
	"github.com/lynixity/lynix-go/internal/infra/gemini"
	"github.com/lynixity/lynix-go/internal/infra/memstore"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/infra/postgres"
	"github.com/lynixity/lynix-go/internal/infra/resilience"
	"github.com/lynixity/lynix-go/internal/port"
	"github.com/lynixity/lynix-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_postgres", cfg.DatabaseURL != ""),
		zap.Bool("seed_demo_data", cfg.SeedDemoData),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.String("gemini_model", cfg.GeminiModel),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "lynix-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	ctx := context.Background()
	var store port.Store
	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := postgres.ApplyMigrations(ctx, cfg.DatabaseURL); err != nil {
				logger.Fatal("failed to apply migrations", zap.Error(err))
			}
			logger.Info("database migrations applied")
		}
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pg.Close()
		store = pg
		logger.Info("using PostgreSQL as data backend")
	} else {
		store = memstore.New()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	// --- Services ---
	authSvc := service.NewAuthService(store, service.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		AccessTTL: cfg.JWTAccessTTL,
	}, logger)

	if cfg.SeedDemoData {
		if err := service.SeedDemoData(ctx, store, authSvc, logger); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	usersCache := cache.New[[]domain.User](cfg.CacheTTL)
	defer usersCache.Close()

	var generator port.TextGenerator
	if cfg.GeminiAPIKey != "" {
		generator = gemini.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.GeminiBaseURL,
			cfg.GeminiAPIKey,
			cfg.GeminiModel,
			resilience.NewCircuitBreaker("gemini"),
			resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff},
		)
	} else {
		logger.Warn("text generation: no API key configured, /api/generate-text will fail")
	}
	textGenSvc := service.NewTextGenService(generator, metrics, logger)
	if cfg.MaxConcurrency > 0 {
		textGenSvc.WithBulkhead(resilience.NewBulkhead(cfg.MaxConcurrency))
	}

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Auth:      authSvc,
		Directory: service.NewDirectoryService(store, authSvc, usersCache, metrics, logger),
		Notes:     service.NewNotesService(store, logger),
		Contacts:  service.NewContactsService(store, logger),
		Chat:      service.NewChatService(store, logger),
		Mail:      service.NewMailService(store),
		TextGen:   textGenSvc,
		Health:    service.NewHealthService(store, textGenSvc),
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
