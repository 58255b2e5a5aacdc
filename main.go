package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"annadan-api/auth"
	"annadan-api/config"
	"annadan-api/handlers"
	"annadan-api/lifecycle"
	"annadan-api/metrics"
	"annadan-api/middleware"
	"annadan-api/ratelimit"
	"annadan-api/recipes"
	"annadan-api/routes"
	"annadan-api/storage"
	"annadan-api/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := newLogger(cfg.Env, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		appLogger.Error("open database failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	repo := store.New(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(reg)

	images, err := storage.New(cfg.Cloudinary)
	if err != nil {
		appLogger.Error("init image storage failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !cfg.Cloudinary.Enabled() {
		appLogger.Warn("cloudinary not configured, images will not be stored")
	}

	var gen recipes.Generator
	gemini, err := recipes.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		appLogger.Error("init gemini failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if gemini != nil {
		gen = gemini
		defer gemini.Close()
	} else {
		appLogger.Warn("GEMINI_API_KEY not set, recipe generation disabled")
	}

	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Warn("redis unreachable, rate limiting fails open", slog.String("error", err.Error()))
		}
		limiter = ratelimit.New(rdb, appLogger, "annadan:ratelimit:recipes", cfg.RecipeRateLimit, cfg.RecipeRateBurst)
	} else {
		appLogger.Warn("REDIS_ADDR not set, recipe rate limiting disabled")
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer, cfg.JWT.Audience)
	engine := lifecycle.NewEngine(repo, images, appLogger,
		lifecycle.WithMetrics(appMetrics),
		lifecycle.WithExclusiveApproval(cfg.ExclusiveApproval))
	recipeService := recipes.NewService(gen, repo, appLogger, appMetrics)

	reconciler := lifecycle.NewReconciler(repo, appLogger, appMetrics, cfg.ReconcileInterval)
	go reconciler.Run(ctx)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(appLogger, appMetrics), middleware.CORS())
	routes.SetupRoutes(r, routes.Deps{
		Handler:       handlers.New(engine, repo, tokens, recipeService, appLogger),
		Tokens:        tokens,
		Users:         repo,
		RecipeLimiter: limiter,
		Logger:        appLogger,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("api server listening", slog.String("addr", httpServer.Addr), slog.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server run failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down api server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http shutdown failed", slog.String("error", err.Error()))
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			appLogger.Error("close database failed", slog.String("error", err.Error()))
		}
	}
}

// newLogger writes text for local development and JSON everywhere else
func newLogger(env, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if env == "local" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
