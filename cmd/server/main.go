// JapaAdvisor API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/japa-advisor/internal/api"
	"github.com/ashureev/japa-advisor/internal/config"
	"github.com/ashureev/japa-advisor/internal/identity"
	"github.com/ashureev/japa-advisor/internal/live"
	"github.com/ashureev/japa-advisor/internal/middleware"
	"github.com/ashureev/japa-advisor/internal/requirements"
	"github.com/ashureev/japa-advisor/internal/roadmap"
	"github.com/ashureev/japa-advisor/internal/store"
	"github.com/ashureev/japa-advisor/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, roadmap generation will fail upstream")
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "model", cfg.LLM.Model)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	// Initialize services.
	generator := roadmap.NewGenerator(roadmap.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout,
		Temperature: cfg.LLM.Temperature,
	}, &http.Client{}, logger)

	fetcher := requirements.NewFetcher(&http.Client{Timeout: cfg.Requirements.ScrapeTimeout}, cfg.Requirements.UserAgent)
	visa, err := requirements.NewService(requirements.Config{
		CacheTTL:      cfg.Requirements.CacheTTL,
		ScrapeTimeout: cfg.Requirements.ScrapeTimeout,
	}, requirements.DefaultCountries(), repo, fetcher, logger)
	if err != nil {
		slog.Error("Failed to initialize requirements service", "error", err)
		os.Exit(1)
	}

	sm := live.NewSessionManager()
	limiter := middleware.NewKeyLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 10*time.Minute)

	// Initialize handlers.
	handler := api.NewHandler(generator, visa, repo, cfg.Nationality)
	wsHandler := live.NewWebSocketHandler(
		api.LocalBackend{Roadmaps: generator, Requirements: visa},
		sm, cfg.Nationality, cfg.FrontendURL, cfg.IsDevelopment())
	wsHandler.SetLimiter(limiter)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	handler.RegisterRoutes(r, middleware.RateLimit(limiter))

	// Live submission sessions share the roadmap budget per submit.
	r.With(identity.Middleware(cfg.IsDevelopment())).Get("/ws/session", wsHandler.ServeHTTP)

	r.Handle("/metrics", promhttp.Handler())

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WriteTimeout must exceed the LLM timeout so slow generations still get a response.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requirements.StartCacheSweeper(ctx, repo, cfg.Requirements.CacheTTL, cfg.Requirements.SweepInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	// Hijacked websocket connections are not tracked by Shutdown.
	sm.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
