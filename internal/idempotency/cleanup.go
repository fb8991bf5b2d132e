package idempotency

import (
	"context"
	"log/slog"
	"time"
)

// StartCleanup drops records older than expiry every interval until ctx is
// cancelled. It returns immediately.
func StartCleanup(ctx context.Context, repo *InMemoryRepository, interval, expiry time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if deleted := repo.DeleteOlderThan(expiry); deleted > 0 {
					logger.Info("cleaned up idempotency keys", "deleted", deleted, "older_than", expiry)
				}
			}
		}
	}()
}
