// Package cmd provides the command-line interface for the triage tool.
package cmd

import (
	"fmt"
	"time"

	"github.com/danielolaszy/triage/internal/cache"
	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/scoring"
	"github.com/spf13/cobra"

	// Tracker adapters register themselves on import.
	_ "github.com/danielolaszy/triage/internal/github"
	_ "github.com/danielolaszy/triage/internal/jira"
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage ranks a backlog by value, effort and relevance",
	Long: `Triage is a CLI tool that ranks the backlog of an issue tracker so that the
highest-value, lowest-effort and most relevant issues surface first.

Issues are fetched from GitHub or JIRA, scored, cached locally and printed as a
ranked table. Trackers that support a manual order (JIRA) can be updated to
match the ranking.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, toml or json); environment variables take precedence")

	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(cacheCmd)
}

// loadConfig reads the configuration named by the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newStore(cfg *config.Config) *cache.Store {
	return cache.NewStore(cfg.CacheDir, cfg.CacheTTL())
}

func fingerprint(cfg *config.Config) cache.Fingerprint {
	return cache.Fingerprint{
		TeamID:         cfg.TeamID,
		BacklogStateID: cfg.BacklogStateID,
		Keywords:       cfg.RelevanceKeywords,
	}
}

func calculator(cfg *config.Config, now time.Time) scoring.Calculator {
	return scoring.Calculator{
		Weights:         cfg.Weights,
		Keywords:        cfg.RelevanceKeywords,
		TargetProject:   cfg.TargetProject,
		InternalAliases: cfg.InternalAliases,
		TrackerDomain:   cfg.TrackerDomain,
		Now:             now,
	}
}
