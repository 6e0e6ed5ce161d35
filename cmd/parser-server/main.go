package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/maltedev/universal-product-parser/internal/api"
	"github.com/maltedev/universal-product-parser/internal/browser"
	"github.com/maltedev/universal-product-parser/internal/cache"
	"github.com/maltedev/universal-product-parser/internal/config"
	"github.com/maltedev/universal-product-parser/internal/engine"
	"github.com/maltedev/universal-product-parser/internal/fetch"
	"github.com/maltedev/universal-product-parser/internal/images"
	"github.com/maltedev/universal-product-parser/internal/patterns"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Result cache
	resultCache, err := newCache(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Error("failed to initialize cache", "error", err, "backend", cfg.Cache.Backend)
		os.Exit(1)
	}

	// Pattern store
	store, err := newPatternStore(ctx, cfg.Patterns, logger)
	if err != nil {
		logger.Error("failed to initialize pattern store", "error", err, "backend", cfg.Patterns.Backend)
		os.Exit(1)
	}

	// Fetch strategies
	direct := fetch.NewDirect(cfg.Fetch.Timeout, cfg.Fetch.UserAgent)
	rendered := browser.NewRendered(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Fetch.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	}, cfg.Browser.HeadingWait, logger)

	// Smart image extraction with network validation
	smart := images.NewSmartExtractor(store, images.NewHTTPProber(5*time.Second), images.Options{
		ValidationCeiling: 20,
		ProbeConcurrency:  5,
		MaxImages:         cfg.Engine.MaxImages,
	}, logger)

	// Extraction engine
	eng := engine.New(cfg.Engine, cfg.Domains, engine.Deps{
		Direct:   direct,
		Rendered: rendered,
		Cache:    resultCache,
		Patterns: store,
		Smart:    smart,
		Logger:   logger,
	})
	eng.RegisterShutdown(rendered.Shutdown)

	// Initialize API handlers
	handlers := api.NewHandlers(eng, store, logger)

	// Setup Chi router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", handlers.Health)

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", handlers.Extract)
		r.Get("/metrics", handlers.GetMetrics)
		r.Get("/patterns/{domain}", handlers.GetPattern)
	})

	// Start server
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}

		if err := eng.Shutdown(); err != nil {
			logger.Error("engine shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (cache.Cache, error) {
	if cfg.Backend == "redis" {
		return cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.DirectTTL, cfg.RenderedTTL, logger)
	}
	return cache.NewMemoryCache(cfg.Capacity, cfg.DirectTTL, cfg.RenderedTTL), nil
}

func newPatternStore(ctx context.Context, cfg config.PatternsConfig, logger *slog.Logger) (patterns.Store, error) {
	if cfg.Backend == "postgres" {
		return patterns.NewPostgresStore(ctx, patterns.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
	}
	return patterns.NewFileStore(cfg.FilePath, logger)
}
