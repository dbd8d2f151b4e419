package cli

import (
	"fmt"

	"github.com/ppiankov/osmlookup/internal/cache"
	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every response stored in the disk cache",
	Long:  `Remove the cache.disk_dir directory (or --cache-dir) with all cached OSM responses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.Cache.DiskDir == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No disk cache configured")
			return nil
		}

		if err := cache.NewDiskCache(cfg.Cache.DiskDir, cfg.Cache.DiskTTL).Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache: %s\n", cfg.Cache.DiskDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
