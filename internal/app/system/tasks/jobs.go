// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/chartcache"
	"go.uber.org/zap"
)

// ChartCacheSweepJob creates a job that drops expired chart cache entries.
func ChartCacheSweepJob(cache *chartcache.Cache, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "chart-cache-sweep",
		Interval: interval,
		Delay:    interval,
		Run: func(ctx context.Context) error {
			if removed := cache.Sweep(); removed > 0 {
				stats := cache.Stats()
				logger.Info("swept expired chart cache entries",
					zap.Int("removed", removed),
					zap.Int("remaining", stats.Entries),
					zap.Int64("hits", stats.Hits),
					zap.Int64("misses", stats.Misses))
			}
			return nil
		},
	}
}

// SnapshotPruner deletes snapshots older than a cutoff.
type SnapshotPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SnapshotRetentionJob creates a job that removes snapshots older than
// retention. Removing snapshots invalidates cached charts.
func SnapshotRetentionJob(store SnapshotPruner, cache *chartcache.Cache, logger *zap.Logger, retention time.Duration) Job {
	return Job{
		Name:     "snapshot-retention",
		Interval: 24 * time.Hour,
		Timeout:  5 * time.Minute,
		Delay:    time.Minute,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().Add(-retention)
			deleted, err := store.DeleteBefore(ctx, cutoff)
			if err != nil {
				return err
			}
			if deleted > 0 {
				if cache != nil {
					cache.Invalidate()
				}
				logger.Info("pruned old snapshots",
					zap.Int64("deleted", deleted),
					zap.Time("cutoff", cutoff))
			}
			return nil
		},
	}
}
