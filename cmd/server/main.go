package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/ats-export/internal/ats"
	"github.com/JonMunkholm/ats-export/internal/config"
	"github.com/JonMunkholm/ats-export/internal/core"
	"github.com/JonMunkholm/ats-export/internal/export"
	"github.com/JonMunkholm/ats-export/internal/logging"
	"github.com/JonMunkholm/ats-export/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"page_size", cfg.Export.PageSize,
		"max_pages", cfg.Export.MaxPages,
		"batch_width", cfg.Export.BatchWidth,
		"export_max_concurrent", cfg.Export.MaxConcurrent,
		"history_enabled", cfg.HistoryEnabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	client, err := ats.NewClient(ats.Options{
		BaseURL:   cfg.Upstream.BaseURL,
		Token:     cfg.Upstream.Token,
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   cfg.Upstream.Timeout,
	})
	if err != nil {
		slog.Error("failed to create recruitment API client", "error", err)
		os.Exit(1)
	}

	presets, err := export.LoadPresets(cfg.Export.PresetsFile)
	if err != nil {
		slog.Error("failed to load column presets", "path", cfg.Export.PresetsFile, "error", err)
		os.Exit(1)
	}
	if len(presets) > 0 {
		slog.Info("column presets loaded", "names", presets.Names())
	}

	ctx := context.Background()

	var history *core.HistoryStore
	if cfg.HistoryEnabled() {
		pool, err := connectDB(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		history = core.NewHistoryStore(pool)
		if err := history.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare export history schema", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("DATABASE_URL not set, export history disabled")
	}

	service := core.NewService(client, core.Options{
		Pipeline: export.Config{
			PageSize:      cfg.Export.PageSize,
			MaxPages:      cfg.Export.MaxPages,
			BatchWidth:    cfg.Export.BatchWidth,
			DetailTimeout: cfg.Export.DetailTimeout,
		},
		RunTimeout:    cfg.Export.RunTimeout,
		MaxConcurrent: cfg.Export.MaxConcurrent,
		MaxWait:       cfg.Export.MaxWaitTime,
		Presets:       presets,
		History:       history,
	})

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go service.StartHistoryPurge(jobCtx, core.PurgeConfig{
		RetentionDays: cfg.History.RetentionDays,
		Interval:      cfg.History.PurgeInterval,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests; in-flight exports keep their connections.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for exports to complete", "active", status.Active)
			if err := service.WaitForExports(shutdownCtx); err != nil {
				slog.Warn("exports did not complete in time", "error", err)
			} else {
				slog.Info("all exports completed")
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connectDB opens the history connection pool with the configured limits.
func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
