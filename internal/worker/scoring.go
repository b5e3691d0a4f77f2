package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/postrater/internal/types"
)

// BatchExecutor runs one tracked scoring batch synchronously.
type BatchExecutor interface {
	Execute(ctx context.Context) (*types.BatchResult, error)
}

// ScoringWorker sweeps unrated posts on a fixed interval.
type ScoringWorker struct {
	runner   BatchExecutor
	interval time.Duration
}

// NewScoringWorker creates a worker that runs a batch every interval.
func NewScoringWorker(runner BatchExecutor, interval time.Duration) *ScoringWorker {
	return &ScoringWorker{
		runner:   runner,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled. The first sweep happens after one
// interval; sweeps never overlap.
func (w *ScoringWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "scoring",
		"interval", w.interval,
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "scoring",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ScoringWorker) sweep(ctx context.Context) {
	result, err := w.runner.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("scoring sweep failed",
			"component", "worker",
			"action", "sweep_failed",
			"error", err,
		)
		return
	}
	if result != nil && result.Candidates > 0 {
		slog.Info("scoring sweep completed",
			"component", "worker",
			"action", "sweep_completed",
			"run_id", result.RunID,
			"processed", result.Processed,
			"duplicates", result.Duplicates,
			"errors", result.Errors,
		)
	}
}
