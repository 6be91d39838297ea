package main

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

	"github.com/joho/godotenv"

	"github.com/duckask/duckask/internal/api"
	"github.com/duckask/duckask/internal/assist"
	"github.com/duckask/duckask/internal/auth"
	"github.com/duckask/duckask/internal/config"
	"github.com/duckask/duckask/internal/nl2sql"
	"github.com/duckask/duckask/internal/observability"
	"github.com/duckask/duckask/internal/schema"
	"github.com/duckask/duckask/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("duckask-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	desc, err := loadSchema(context.Background(), cfg, db)
	if err != nil {
		logger.Error("failed to load table schema", slog.Any("error", err))
		os.Exit(1)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		logger.Error("failed to initialize sql generator", slog.Any("error", err))
		os.Exit(1)
	}

	controller, err := assist.NewController(generator, db, desc, assist.Options{
		MaxAttempts:     cfg.Assist.MaxAttempts,
		GenerateTimeout: cfg.AI.Timeout,
		ExecuteTimeout:  cfg.Assist.ExecuteTimeout,
		StrictTypes:     cfg.Assist.StrictTypes,
		RowLimit:        cfg.Store.RowLimit,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize assist controller", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:      logger,
		Controller:  controller,
		Schema:      desc,
		StrictTypes: cfg.Assist.StrictTypes,
		Readiness: api.CombineReadinessChecks(
			db.Ping,
			api.CheckSchemaLoaded(desc),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("table", desc.TableName()),
			slog.String("provider", cfg.AI.Provider),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// loadSchema prefers an explicit schema document and falls back to
// introspecting the live table.
func loadSchema(ctx context.Context, cfg config.Config, db *store.Store) (schema.Descriptor, error) {
	if cfg.Schema.Path != "" {
		return schema.LoadFile(cfg.Schema.Path)
	}
	return schema.Introspect(ctx, db.DB(), cfg.Schema.Table)
}

func newGenerator(cfg config.Config) (nl2sql.Generator, error) {
	switch cfg.AI.Provider {
	case "openai":
		return nl2sql.NewOpenAIGenerator(nl2sql.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
	case "gemini":
		return nl2sql.NewGeminiGenerator(nl2sql.GeminiConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}
