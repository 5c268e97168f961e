package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/internal/ranker"
	"github.com/danielolaszy/triage/internal/tracker"
	"github.com/danielolaszy/triage/internal/ui"
	"github.com/spf13/cobra"
)

// rankOptions are the flags shared by rank and diff.
type rankOptions struct {
	ranker.RunOptions
	Update bool
	Limit  int
	JSON   bool
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank the backlog",
	Long: `Fetch the backlog, score every issue and print the ranking.

Fetched issues and computed scores are cached for the configured TTL. A cache
is reused only when it belongs to the same team and backlog state, and, for
scores, the same relevance keywords.

Example:
  triage rank --limit 20
  triage rank --compare
  triage rank --force-refresh --update`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := rankFlags(cmd)
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

		return runRank(cmd.Context(), cmd.OutOrStdout(), cfg, tr, time.Now(), opts)
	},
}

func init() {
	rankCmd.Flags().Bool("force-refresh", false, "ignore caches but write fresh results")
	rankCmd.Flags().Bool("no-cache", false, "neither read nor write caches")
	rankCmd.Flags().Bool("compare", false, "show how the ranking moved since the cached one")
	rankCmd.Flags().Bool("update", false, "apply the ranking to the tracker's manual order")
	rankCmd.Flags().IntP("limit", "n", 0, "show only the top N issues")
	rankCmd.Flags().Bool("json", false, "print JSON instead of a table")
}

func rankFlags(cmd *cobra.Command) (rankOptions, error) {
	var opts rankOptions
	var err error

	if opts.ForceRefresh, err = cmd.Flags().GetBool("force-refresh"); err != nil {
		return opts, err
	}
	if opts.NoCache, err = cmd.Flags().GetBool("no-cache"); err != nil {
		return opts, err
	}
	if opts.Compare, err = cmd.Flags().GetBool("compare"); err != nil {
		return opts, err
	}
	if opts.Update, err = cmd.Flags().GetBool("update"); err != nil {
		return opts, err
	}
	if opts.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.JSON, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.Limit < 0 {
		return opts, fmt.Errorf("limit must not be negative, got %d", opts.Limit)
	}
	return opts, nil
}

// runRank performs a ranking run and writes the result to out. When only the
// scoring cache write failed, the ranking is still written and the error is
// returned afterwards.
func runRank(ctx context.Context, out io.Writer, cfg *config.Config, tr tracker.Tracker, now time.Time, opts rankOptions) error {
	store := newStore(cfg)
	fp := fingerprint(cfg)
	loader := ranker.NewLoader(store, tr, fp, now)
	scorer := ranker.NewScorer(store, calculator(cfg, now), fp)

	logging.Debug("ranking backlog",
		"source", tr.Name(),
		"team", cfg.TeamID,
		"state", cfg.BacklogStateID,
		"keywords", cfg.RelevanceKeywords)

	result, err := ranker.Run(ctx, loader, scorer, opts.RunOptions)
	var cacheErr error
	if err != nil {
		if !errors.Is(err, ranker.ErrCacheWrite) {
			return err
		}
		logging.Warn("ranking computed but not cached", "error", err)
		cacheErr = err
	}

	if opts.Compare && result.Previous == nil {
		logging.Info("no previous ranking to compare with")
	}

	if err := render(out, result, opts, now); err != nil {
		return err
	}

	if opts.Update {
		if err := tr.ApplyOrder(ctx, result.Ranked); err != nil {
			if errors.Is(err, tracker.ErrOrderingUnsupported) {
				return fmt.Errorf("cannot update %s: %w", tr.Name(), err)
			}
			return fmt.Errorf("failed to apply ranking: %w", err)
		}
		logging.Info("tracker order updated", "source", tr.Name(), "issues", len(result.Ranked))
	}

	return cacheErr
}

func render(out io.Writer, result ranker.Result, opts rankOptions, now time.Time) error {
	if opts.JSON {
		ranked := result.Ranked
		if opts.Limit > 0 && opts.Limit < len(ranked) {
			ranked = ranked[:opts.Limit]
		}
		return ui.WriteJSON(out, ui.Report{
			GeneratedAt: now.UTC(),
			Issues:      ranked,
			Changes:     result.Changes,
		})
	}

	if err := ui.RenderRanking(out, result.Ranked, opts.Limit); err != nil {
		return err
	}
	if opts.Compare && result.Previous != nil {
		fmt.Fprintln(out)
		return ui.RenderChanges(out, result.Changes, opts.Limit)
	}
	return nil
}
