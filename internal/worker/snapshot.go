package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/postrater/internal/snapshot"
)

// SnapshotStore defines the store operations needed by the snapshot worker.
type SnapshotStore interface {
	GenerateSnapshot(ctx context.Context, path string) error
}

// SnapshotWorker writes a consistent copy of the database and publishes it.
type SnapshotWorker struct {
	store    SnapshotStore
	uploader snapshot.Uploader
	path     string
	interval time.Duration
}

// NewSnapshotWorker creates a worker that snapshots store to path and
// uploads the result every interval.
func NewSnapshotWorker(store SnapshotStore, uploader snapshot.Uploader, path string, interval time.Duration) *SnapshotWorker {
	return &SnapshotWorker{
		store:    store,
		uploader: uploader,
		path:     path,
		interval: interval,
	}
}

// Run publishes a snapshot immediately, then on each interval, until ctx is
// cancelled. A snapshot in progress runs to completion.
func (w *SnapshotWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "snapshot",
		"interval", w.interval,
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.publishLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "snapshot",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.publishLogged(ctx)
		}
	}
}

// Publish generates one snapshot and uploads it.
func (w *SnapshotWorker) Publish(ctx context.Context) error {
	start := time.Now()
	if err := w.store.GenerateSnapshot(ctx, w.path); err != nil {
		return fmt.Errorf("generate snapshot: %w", err)
	}
	if err := w.uploader.Upload(ctx, w.path); err != nil {
		return err
	}
	slog.Info("snapshot published",
		"component", "worker",
		"action", "snapshot_published",
		"path", w.path,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *SnapshotWorker) publishLogged(ctx context.Context) {
	if err := w.Publish(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("snapshot failed",
			"component", "worker",
			"action", "snapshot_failed",
			"error", err,
		)
	}
}
