// Package ranker ties the tracker, the cache store and the score calculator
// together into a ranking run.
package ranker

import (
	"errors"
	"fmt"

	"github.com/danielolaszy/triage/internal/cache"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/internal/scoring"
	"github.com/danielolaszy/triage/pkg/models"
)

// ErrCacheWrite marks a ranking that was computed but could not be cached.
var ErrCacheWrite = errors.New("failed to write cache")

// Options controls how a cache is consulted.
type Options struct {
	// ForceRefresh skips the cache read but still writes the fresh result.
	ForceRefresh bool
	// NoCache skips both the cache read and the cache write.
	NoCache bool
}

func (o Options) readCache() bool  { return !o.ForceRefresh && !o.NoCache }
func (o Options) writeCache() bool { return !o.NoCache }

// Scorer produces a ranking, reusing the scoring cache when it is still valid.
type Scorer struct {
	store *cache.Store
	calc  scoring.Calculator
	fp    cache.Fingerprint
}

// NewScorer creates a scorer. The calculator's Now is also used for cache validity.
func NewScorer(store *cache.Store, calc scoring.Calculator, fp cache.Fingerprint) *Scorer {
	return &Scorer{store: store, calc: calc, fp: fp}
}

// Score returns issues ranked by final score, highest first. A valid,
// non-empty scoring cache is returned as-is. When the fresh ranking cannot be
// cached, it is returned together with an error wrapping ErrCacheWrite.
func (s *Scorer) Score(issues []models.Issue, opts Options) ([]models.ScoredIssue, error) {
	log := logging.With("ranker")
	now := s.calc.Now

	if opts.readCache() {
		status := s.store.CheckScoring(s.fp, now)
		if status.Valid() {
			if cached := s.store.ReadScoredIssues(s.fp, now, false); len(cached) > 0 {
				log.Info("using cached scores", "issues", len(cached), "updated", status.Metadata.LastUpdated)
				return cached, nil
			}
			log.Debug("scoring cache is empty, recomputing")
		} else {
			log.Info("scoring cache miss", "reason", status.Reason)
		}
	}

	scored, err := s.calc.ScoreAll(issues)
	if err != nil {
		return nil, err
	}
	log.Debug("scored issues", "count", len(scored))

	if !opts.writeCache() {
		return scored, nil
	}
	if err := s.store.WriteScoredIssues(scored, s.fp, now); err != nil {
		return scored, fmt.Errorf("%w: %w", ErrCacheWrite, err)
	}
	return scored, nil
}

// Previous returns the scoring snapshot on disk regardless of its age, or nil.
func (s *Scorer) Previous() []models.ScoredIssue {
	return s.store.ReadScoredIssues(s.fp, s.calc.Now, true)
}
