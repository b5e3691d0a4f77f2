package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/postrater/internal/pipeline"
	"github.com/hyperengineering/postrater/internal/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Run one scoring batch over unrated posts and exit",
	Args:  cobra.NoArgs,
	RunE:  runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c, err := newComponents(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.store.Close(); err != nil {
			slog.Error("store close error", "error", err)
		}
	}()

	result, err := pipeline.NewRunner(ctx, c.orchestrator).Execute(ctx)
	if err != nil {
		return fmt.Errorf("scoring run: %w", err)
	}
	return printBatchResult(cmd, result)
}

func printBatchResult(cmd *cobra.Command, r *types.BatchResult) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), r)
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintf(w, "Run:\t%s\n", r.RunID)
	fmt.Fprintf(w, "Candidates:\t%d\n", r.Candidates)
	fmt.Fprintf(w, "Processed:\t%d\n", r.Processed)
	fmt.Fprintf(w, "Duplicates:\t%d\n", r.Duplicates)
	fmt.Fprintf(w, "Errors:\t%d\n", r.Errors)
	fmt.Fprintf(w, "Duration:\t%s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	return w.Flush()
}
