package requirements

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/japa-advisor/internal/store"
)

// StartCacheSweeper runs a background goroutine that periodically deletes
// cached requirements older than ttl. It stops when ctx is done.
func StartCacheSweeper(ctx context.Context, repo store.Repository, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Requirements cache sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepExpired(ctx, repo, ttl)
			case <-ctx.Done():
				slog.Info("Requirements cache sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepExpired(ctx context.Context, repo store.Repository, ttl time.Duration) {
	deleted, err := repo.DeleteExpiredRequirements(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Requirements sweep interrupted by shutdown", "error", err)
			return
		}
		slog.Error("Requirements cache sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Requirements cache sweep removed expired entries", "count", deleted)
	}
}
