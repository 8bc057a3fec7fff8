package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/textclass/internal/classifier"
	"github.com/JonMunkholm/textclass/internal/config"
	"github.com/JonMunkholm/textclass/internal/core"
	"github.com/JonMunkholm/textclass/internal/history"
	"github.com/JonMunkholm/textclass/internal/logging"
	"github.com/JonMunkholm/textclass/internal/metrics"
	"github.com/JonMunkholm/textclass/internal/storage"
	"github.com/JonMunkholm/textclass/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Real environment variables take precedence over .env
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	m := metrics.New()

	client := classifier.New(cfg.Classifier.BaseURL, cfg.Classifier.Timeout,
		classifier.WithMetrics(m),
		classifier.WithMaxResponseBytes(cfg.Classifier.MaxResponseBytes),
	)

	aliases, err := core.LoadAliasFile(cfg.Aliases.File)
	if err != nil {
		slog.Error("failed to load column aliases", "file", cfg.Aliases.File, "error", err)
		os.Exit(1)
	}

	opts := []core.Option{
		core.WithAliases(aliases),
		core.WithMetrics(m),
		core.WithMaxUnits(cfg.Predict.MaxUnits),
	}
	deps := web.Deps{Health: client, Metrics: m}

	// Background jobs stop when jobCtx is cancelled
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if cfg.History.Enabled() {
		pool, err := openPool(ctx, &cfg.History)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := history.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare history schema", "error", err)
			os.Exit(1)
		}
		opts = append(opts, core.WithRunRecorder(store))
		deps.Runs = store

		go history.StartRetentionScheduler(jobCtx, store, history.RetentionConfig{
			RetentionDays: cfg.History.RetentionDays,
			CheckInterval: cfg.History.CheckInterval,
		})
	} else {
		slog.Info("run history disabled, DATABASE_URL is not set")
	}

	if cfg.Storage.Enabled() {
		fetcher, err := storage.NewFetcher(ctx, storage.Config{
			Bucket:   cfg.Storage.Bucket,
			Region:   cfg.Storage.Region,
			Endpoint: cfg.Storage.Endpoint,
			MaxSize:  cfg.Storage.MaxObjectSize,
		})
		if err != nil {
			slog.Error("failed to configure object storage", "error", err)
			os.Exit(1)
		}
		deps.Objects = fetcher
		slog.Info("object storage enabled", "bucket", fetcher.Bucket())
	}

	service, err := core.NewService(client, opts...)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg, deps)

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := server.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for retrains to complete", "active", status.Active)
			if err := server.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("retrains did not complete in time", "error", err)
			} else {
				slog.Info("all retrains completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting",
		"addr", cfg.Server.Addr(),
		"classifier", client.BaseURL(),
	)
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}

// openPool connects to Postgres with the configured pool sizing and pings it.
func openPool(ctx context.Context, cfg *config.HistoryConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to database", "max_conns", cfg.MaxConns)
	return pool, nil
}
