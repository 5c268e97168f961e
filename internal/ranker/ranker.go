package ranker

import (
	"context"

	"github.com/danielolaszy/triage/pkg/models"
)

// RunOptions configures a full ranking run.
type RunOptions struct {
	ForceRefresh bool
	NoCache      bool

	// Compare reads the previous ranking before scoring and reports the moves.
	// It always recomputes scores.
	Compare bool

	// DryRun computes a ranking without replacing the scoring cache.
	DryRun bool
}

// Result is the outcome of a ranking run.
type Result struct {
	Issues   []models.Issue
	Ranked   []models.ScoredIssue
	Previous []models.ScoredIssue
	Changes  []models.RankingChange
}

// Run loads the backlog, ranks it and, when asked to, compares the ranking
// with the previous one. If only caching the ranking failed, the result is
// complete and the error wraps ErrCacheWrite.
func Run(ctx context.Context, loader *Loader, scorer *Scorer, opts RunOptions) (Result, error) {
	var result Result

	issues, err := loader.Load(ctx, Options{ForceRefresh: opts.ForceRefresh, NoCache: opts.NoCache})
	if err != nil {
		return result, err
	}
	result.Issues = issues

	if opts.Compare {
		result.Previous = scorer.Previous()
	}

	ranked, err := scorer.Score(issues, Options{
		ForceRefresh: opts.ForceRefresh || opts.Compare,
		NoCache:      opts.NoCache || opts.DryRun,
	})
	result.Ranked = ranked
	if opts.Compare && ranked != nil {
		result.Changes = Diff(result.Previous, ranked)
	}
	return result, err
}
