package ranker

import (
	"context"
	"fmt"
	"time"

	"github.com/danielolaszy/triage/internal/cache"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/internal/tracker"
	"github.com/danielolaszy/triage/pkg/models"
)

// Loader returns the backlog, preferring the issues cache over the tracker.
type Loader struct {
	store   *cache.Store
	fetcher tracker.Fetcher
	fp      cache.Fingerprint
	now     time.Time
}

// NewLoader creates a loader for the backlog identified by fp.
func NewLoader(store *cache.Store, fetcher tracker.Fetcher, fp cache.Fingerprint, now time.Time) *Loader {
	return &Loader{store: store, fetcher: fetcher, fp: fp, now: now}
}

// Load returns the backlog. Fetch failures are fatal; failing to cache the
// fetched backlog is only logged.
func (l *Loader) Load(ctx context.Context, opts Options) ([]models.Issue, error) {
	log := logging.With("ranker")
	if opts.readCache() {
		status := l.store.CheckIssues(l.fp, l.now)
		if status.Valid() {
			if issues := l.store.ReadIssues(l.fp, l.now); issues != nil {
				log.Info("using cached issues", "issues", len(issues), "updated", status.Metadata.LastUpdated)
				return issues, nil
			}
		} else {
			log.Info("issues cache miss", "reason", status.Reason)
		}
	}

	log.Info("fetching backlog", "team", l.fp.TeamID, "state", l.fp.BacklogStateID)
	issues, err := l.fetcher.FetchBacklog(ctx, l.fp.TeamID, l.fp.BacklogStateID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch backlog: %w", err)
	}
	log.Info("fetched backlog", "issues", len(issues))

	if opts.writeCache() {
		if err := l.store.WriteIssues(issues, l.fp, l.now); err != nil {
			log.Warn("failed to cache issues", "error", err)
		}
	}
	return issues, nil
}
