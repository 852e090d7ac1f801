// Package main is the entry point for the meal planner API server.
//
// The main package stays minimal. Its job is to:
//  1. Read configuration (.env, config.yaml, environment)
//  2. Create dependencies (logger, store, provider, services)
//  3. Start the server and release resources when it stops
//
// All actual logic lives in the internal/ packages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/meal-planner/internal/ai"
	"github.com/sakif/meal-planner/internal/auth"
	"github.com/sakif/meal-planner/internal/config"
	"github.com/sakif/meal-planner/internal/ratelimit"
	"github.com/sakif/meal-planner/internal/repository"
	"github.com/sakif/meal-planner/internal/repository/mongo"
	"github.com/sakif/meal-planner/internal/repository/postgres"
	"github.com/sakif/meal-planner/internal/repository/sqlite"
	"github.com/sakif/meal-planner/internal/server"
	"github.com/sakif/meal-planner/internal/service"
	"github.com/sakif/meal-planner/internal/validate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// === 1. CONFIGURATION ===
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// === 2. LOGGING ===
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if cfg.Auth.UsesDefaultSecret() {
		logger.Warn("using the default JWT secret; set JWT_SECRET before deploying")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === 3. STORE ===
	// Opened once, migrated, shared by every service, closed on the way out.
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	// === 4. SERVICES ===
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)
	validator := validate.New()

	provider := ai.NewOpenAIProvider(ai.OpenAIConfig{
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		BaseURL:     cfg.AI.BaseURL,
		Temperature: &cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	}, logger)
	generator := ai.NewGenerator(provider, ai.Strictness(cfg.AI.Strictness), logger)

	deps := server.Deps{
		Auth:      service.NewAuthService(store, tokens, passwords, validator, logger),
		MealPlans: service.NewMealPlanService(store, generator, validator, logger),
	}

	// === 5. RATE LIMITING (optional) ===
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(ctx, cfg.RateLimit.RedisAddr, cfg.RateLimit.RequestsPerMinute, time.Minute)
		if err != nil {
			return err
		}
		defer limiter.Close()
		deps.Limiter = limiter
		logger.Info("rate limiting enabled",
			slog.String("redis", cfg.RateLimit.RedisAddr),
			slog.Int("requestsPerMinute", cfg.RateLimit.RequestsPerMinute),
		)
	}

	// === 6. SERVE ===
	// Start blocks until SIGINT/SIGTERM.
	return server.New(cfg.Server, deps, logger).Start(ctx)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (repository.Store, error) {
	logger.Info("opening store", slog.String("driver", cfg.Driver))

	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.PostgresDSN, logger)
	case config.DriverMongo:
		return mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	default:
		return sqlite.New(ctx, cfg.SQLitePath, logger)
	}
}
