package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/postrater/internal/loader"
	"github.com/hyperengineering/postrater/internal/store"
	"github.com/hyperengineering/postrater/internal/types"
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Load posts and inspect rating progress",
}

var postsLoadCmd = &cobra.Command{
	Use:   "load <dir>",
	Short: "Insert every .txt, .md and .html file in dir as a published post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostsLoad,
}

var postsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show post and rating counts",
	Args:  cobra.NoArgs,
	RunE:  runPostsStats,
}

func init() {
	postsCmd.AddCommand(postsLoadCmd)
	postsCmd.AddCommand(postsStatsCmd)
}

// openStore opens the configured database without the model clients.
func openStore() (*store.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(cfg.Database.Path)
}

func closeStore(s *store.SQLiteStore) {
	if err := s.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}
}

func runPostsLoad(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(db)

	result, err := loader.LoadDir(context.Background(), args[0], db)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), result)
	}
	out := cmd.OutOrStdout()
	for _, s := range result.Skipped {
		fmt.Fprintf(out, "Skipped %s: %s\n", s.Name, s.Reason)
	}
	if len(result.IDs) == 0 {
		fmt.Fprintln(out, "No valid posts found to insert.")
		return nil
	}
	fmt.Fprintf(out, "Inserted %d posts.\n", len(result.IDs))
	return nil
}

func runPostsStats(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(db)

	stats, err := db.GetStats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	return printStats(cmd, stats)
}

func printStats(cmd *cobra.Command, s *types.StoreStats) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), s)
	}
	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintf(w, "Posts:\t%d\n", s.Posts)
	fmt.Fprintf(w, "Published:\t%d\n", s.PublishedPosts)
	fmt.Fprintf(w, "Rated:\t%d\n", s.RatedPosts)
	fmt.Fprintf(w, "Unrated:\t%d\n", s.UnratedPosts)
	fmt.Fprintf(w, "Duplicates:\t%d\n", s.Duplicates)
	return w.Flush()
}
