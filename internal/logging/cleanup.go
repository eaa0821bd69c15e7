package logging

import (
	"context"
	"log/slog"
	"time"
)

// Retention is how long persisted error logs are kept.
const Retention = 30 * 24 * time.Hour

// Purger deletes persisted logs older than the cutoff.
type Purger interface {
	PurgeSystemLogs(ctx context.Context, before time.Time) (int64, error)
}

// StartCleanup runs a daily goroutine that deletes system logs older than Retention.
func StartCleanup(p Purger, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				purgeOnce(p, time.Now())
			case <-done:
				return
			}
		}
	}()
}

func purgeOnce(p Purger, now time.Time) {
	deleted, err := p.PurgeSystemLogs(context.Background(), now.Add(-Retention))
	if err != nil {
		slog.Error("log cleanup failed", "error", err)
	} else if deleted > 0 {
		slog.Info("log cleanup completed", "deleted", deleted)
	}
}
