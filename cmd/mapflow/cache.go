package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mapflow/mapflow/internal/storage"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the mapping run cache",
	}
	cmd.AddCommand(cacheClearCmd())
	cmd.AddCommand(cacheStatsCmd())
	return cmd
}

func cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached mapping runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := storage.NewSQLiteStore(cacheDBPath())
			if err != nil {
				return fmt.Errorf("failed to open cache: %w", err)
			}
			defer func() { _ = store.Close() }()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Cleared %d cached mapping runs\n", n)
			return nil
		},
	}
}

func cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show mapping cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := storage.NewSQLiteStore(cacheDBPath())
			if err != nil {
				return fmt.Errorf("failed to open cache: %w", err)
			}
			defer func() { _ = store.Close() }()

			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Cached mapping runs: %d\n", n)
			fmt.Printf("Database: %s\n", cacheDBPath())
			return nil
		},
	}
}

// cacheDBPath resolves the cache database location: config override
// first, then the standard data directory.
func cacheDBPath() string {
	if path := viper.GetString("cache.path"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "mapflow.db"
	}
	return filepath.Join(home, ".local", "share", "mapflow", "mapflow.db")
}
