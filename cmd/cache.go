package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/danielolaszy/triage/internal/cache"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/internal/ui"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local caches",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the issues and scoring caches are usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store := newStore(cfg)
		now := time.Now()
		return ui.RenderCacheStatus(cmd.OutOrStdout(), store.Dir(), store.TTL(), store.Info(fingerprint(cfg), now), now)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached issues and scores",
	Long: `Delete cached data. Without flags both caches are removed.

Example:
  triage cache clear --scoring`,
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := cmd.Flags().GetBool("issues")
		if err != nil {
			return err
		}
		scoring, err := cmd.Flags().GetBool("scoring")
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return clearCache(cmd.OutOrStdout(), newStore(cfg), issues, scoring)
	},
}

func init() {
	cacheClearCmd.Flags().Bool("issues", false, "clear only the issues cache")
	cacheClearCmd.Flags().Bool("scoring", false, "clear only the scoring cache")

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func clearCache(out io.Writer, store *cache.Store, issues, scoring bool) error {
	clearFn, cleared := store.ClearAll, "all caches"
	switch {
	case issues && !scoring:
		clearFn, cleared = store.ClearIssues, "issues cache"
	case scoring && !issues:
		clearFn, cleared = store.ClearScoring, "scoring cache"
	}

	if err := clearFn(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", cleared, err)
	}

	logging.Info("cache cleared", "dir", store.Dir(), "which", cleared)
	_, err := fmt.Fprintf(out, "Cleared %s in %s\n", cleared, store.Dir())
	return err
}
