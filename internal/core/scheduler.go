package core

// scheduler.go runs background maintenance for export history.
//
// The purge job deletes export_runs older than the retention period. It runs
// once on start and then every interval until the context is cancelled.
// A failed purge is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// PurgeConfig holds settings for the history purge scheduler.
type PurgeConfig struct {
	RetentionDays int           // Days to keep export runs (default: 90)
	Interval      time.Duration // How often to purge (default: 24h)
}

func (c PurgeConfig) withDefaults() PurgeConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	return c
}

// StartHistoryPurge blocks, purging old export runs until ctx is cancelled.
// It returns immediately when history is disabled.
func (s *Service) StartHistoryPurge(ctx context.Context, cfg PurgeConfig) {
	if s.history == nil {
		return
	}
	cfg = cfg.withDefaults()

	slog.Info("history purge scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.Interval,
	)

	s.runPurge(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history purge scheduler stopped")
			return
		case <-ticker.C:
			s.runPurge(ctx, cfg)
		}
	}
}

func (s *Service) runPurge(ctx context.Context, cfg PurgeConfig) {
	start := time.Now()
	purged, err := s.history.PurgeOlderThan(ctx, cfg.RetentionDays)
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return
	}
	slog.Info("purged export history",
		"runs_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
