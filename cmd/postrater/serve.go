package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/postrater/internal/api"
	"github.com/hyperengineering/postrater/internal/config"
	"github.com/hyperengineering/postrater/internal/pipeline"
	"github.com/hyperengineering/postrater/internal/snapshot"
	"github.com/hyperengineering/postrater/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded")

	c, err := newComponents(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.store.Close(); err != nil {
			slog.Error("store close error", "error", err)
		}
	}()

	uploader, err := snapshot.NewUploader(cfg.SnapshotStorage)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	// Triggered runs use gctx so shutdown rolls them back.
	runner := pipeline.NewRunner(gctx, c.orchestrator)

	handler := api.NewHandler(c.store, runner, uploader, api.Models{
		Embedding: c.embedder.ModelName(),
		Scoring:   c.scorer.ModelName(),
	}, Version)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	g.Go(func() error {
		slog.Info("server starting", "address", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown initiated")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout))
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		return nil
	})

	startWorkers(gctx, g, cfg, runner, worker.NewSnapshotWorker(c.store, uploader,
		cfg.SnapshotStorage.Path, time.Duration(cfg.Worker.SnapshotInterval)))

	err = g.Wait()

	// In-flight runs finish (or roll back) before the store closes.
	runner.Wait()

	slog.Info("shutdown complete")
	return err
}

// startWorkers launches the workers enabled by a positive interval.
func startWorkers(ctx context.Context, g *errgroup.Group, cfg *config.Config, runner *pipeline.Runner, snapshots *worker.SnapshotWorker) {
	if d := time.Duration(cfg.Worker.ScoringInterval); d > 0 {
		startWorker(ctx, g, "scoring", worker.NewScoringWorker(runner, d).Run)
	}
	if time.Duration(cfg.Worker.SnapshotInterval) > 0 {
		startWorker(ctx, g, "snapshot", snapshots.Run)
	}
}

// startWorker runs fn in the group until ctx is cancelled.
func startWorker(ctx context.Context, g *errgroup.Group, name string, fn func(ctx context.Context)) {
	g.Go(func() error {
		slog.Info("worker launched", "worker", name)
		fn(ctx)
		slog.Info("worker exited", "worker", name)
		return nil
	})
}
