package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/postrater/internal/snapshot"
	"github.com/hyperengineering/postrater/internal/store"
	"github.com/hyperengineering/postrater/internal/worker"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write a database snapshot and upload it when storage is configured",
	Args:  cobra.NoArgs,
	RunE:  runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer closeStore(db)

	uploader, err := snapshot.NewUploader(cfg.SnapshotStorage)
	if err != nil {
		return err
	}

	path := cfg.SnapshotStorage.Path
	if err := worker.NewSnapshotWorker(db, uploader, path, 0).Publish(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Snapshot written to %s\n", path)

	link, expiry, err := uploader.PresignedURL(ctx)
	if errors.Is(err, snapshot.ErrNotConfigured) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Download (expires %s):\n%s\n", expiry.UTC().Format("2006-01-02 15:04:05 MST"), link)
	return nil
}
