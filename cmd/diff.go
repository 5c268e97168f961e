package cmd

import (
	"fmt"
	"time"

	"github.com/danielolaszy/triage/internal/ranker"
	"github.com/danielolaszy/triage/internal/tracker"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show how a fresh ranking differs from the cached one",
	Long: `Score the backlog again and compare the result with the cached ranking,
regardless of the cache's age. The scoring cache is left untouched; the issues
cache is used and refreshed as usual.

Example:
  triage diff
  triage diff --force-refresh`,
	RunE: func(cmd *cobra.Command, args []string) error {
		forceRefresh, err := cmd.Flags().GetBool("force-refresh")
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		asJSON, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		tr, err := tracker.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize %s tracker: %w", cfg.Source, err)
		}

		return runRank(cmd.Context(), cmd.OutOrStdout(), cfg, tr, time.Now(), rankOptions{
			RunOptions: ranker.RunOptions{
				ForceRefresh: forceRefresh,
				Compare:      true,
				DryRun:       true,
			},
			Limit: limit,
			JSON:  asJSON,
		})
	},
}

func init() {
	diffCmd.Flags().Bool("force-refresh", false, "refetch the backlog instead of using the issues cache")
	diffCmd.Flags().IntP("limit", "n", 0, "show only the top N issues and changes")
	diffCmd.Flags().Bool("json", false, "print JSON instead of tables")
}
