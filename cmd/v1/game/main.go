package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/clashdeck/backend/internal/v1/auth"
	"github.com/clashdeck/backend/internal/v1/config"
	"github.com/clashdeck/backend/internal/v1/game"
	"github.com/clashdeck/backend/internal/v1/health"
	"github.com/clashdeck/backend/internal/v1/httpapi"
	"github.com/clashdeck/backend/internal/v1/logging"
	"github.com/clashdeck/backend/internal/v1/middleware"
	"github.com/clashdeck/backend/internal/v1/ratelimit"
	"github.com/clashdeck/backend/internal/v1/session"
	"github.com/clashdeck/backend/internal/v1/store"
	"github.com/clashdeck/backend/internal/v1/tracing"
)

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	// Validate environment variables before starting the server
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// --- Tracing (opt-in) ---
	tp, err := initTracing(ctx, cfg)
	if err != nil {
		logging.Error(ctx, "Failed to initialize tracing: "+err.Error())
		os.Exit(1)
	}

	// --- Storage ---
	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		logging.Error(ctx, "Failed to open database: "+err.Error())
		os.Exit(1)
	}
	if err := db.SeedCards(ctx); err != nil {
		logging.Error(ctx, "Failed to seed card catalog: "+err.Error())
		os.Exit(1)
	}

	// --- Auth ---
	validator := auth.NewValidator(cfg.JWTSecret)

	// --- Rate limiting ---
	rateLimiter, err := ratelimit.NewRateLimiter(cfg)
	if err != nil {
		logging.Error(ctx, "Failed to create rate limiter: "+err.Error())
		os.Exit(1)
	}

	// --- Game core ---
	allowedOrigins := auth.GetAllowedOriginsFromEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	hub := session.NewHub(validator, rateLimiter, allowedOrigins)
	registry := game.NewRegistry(game.NewDeckLoader(db), hub)
	hub.AttachRegistry(registry)

	// --- Set up Server ---
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	if tp != nil {
		router.Use(otelgin.Middleware("game-backend"))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	// REST surface
	apiHandler := httpapi.NewHandler(db, validator)
	apiHandler.Register(router, middleware.RequireAuth(validator), rateLimiter.GlobalMiddleware())

	// Game channel
	router.GET("/ws/game", hub.ServeWs)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	healthHandler := health.NewHandler(db)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// The test harness exercises the wiring without binding a port.
	if cfg.IsTest() {
		logging.Info(ctx, "GO_ENV=test - listener suppressed")
		return
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		logging.Info(ctx, "Game server starting on port "+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(ctx, "Failed to run server: "+err.Error())
			_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "Shutting down server...")

	// The context gives in-flight requests 30 seconds to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "Error during Hub shutdown: "+err.Error())
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "Server forced to shutdown: "+err.Error())
	}

	if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
		logging.Error(shutdownCtx, "Failed to flush tracer: "+err.Error())
	}

	if err := db.Close(); err != nil {
		logging.Error(shutdownCtx, "Failed to close database: "+err.Error())
	}

	logging.Info(context.Background(), "Server exiting")
}

func initTracing(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	if !cfg.TracingEnabled {
		return nil, nil
	}
	return tracing.InitTracer(ctx, "game-backend", cfg.OTLPAddr)
}
