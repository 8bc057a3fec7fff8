package history

// scheduler.go runs the retention job that trims old training runs.
//
// The job runs once on start and then every CheckInterval until the context
// is cancelled. A failed purge is logged and retried on the next tick; it
// never stops the scheduler.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the retention scheduler.
type RetentionConfig struct {
	RetentionDays int           // Days to keep runs (default: 180)
	CheckInterval time.Duration // How often to run (default: 24h)
}

const (
	defaultRetentionDays = 180
	defaultCheckInterval = 24 * time.Hour
)

// Purger deletes runs older than a number of days.
type Purger interface {
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

// StartRetentionScheduler blocks, purging old runs from p on every tick,
// until ctx is cancelled.
func StartRetentionScheduler(ctx context.Context, p Purger, cfg RetentionConfig) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}

	slog.Info("history retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval.String(),
	)

	runRetentionJob(ctx, p, cfg.RetentionDays)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history retention scheduler stopped")
			return
		case <-ticker.C:
			runRetentionJob(ctx, p, cfg.RetentionDays)
		}
	}
}

func runRetentionJob(ctx context.Context, p Purger, days int) {
	start := time.Now()
	purged, err := p.PurgeOlderThan(ctx, days)
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return
	}
	slog.Info("purged old training runs",
		"runs_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
