// Package tracker defines the boundary between the ranking engine and the
// external issue trackers it reads backlogs from and writes orderings to.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/pkg/models"
)

// ErrOrderingUnsupported is returned by trackers that cannot persist an order.
var ErrOrderingUnsupported = errors.New("tracker does not support persisting an ordering")

// Fetcher retrieves a backlog with labels and comments already resolved.
type Fetcher interface {
	// FetchBacklog returns the issues of a team that are in the backlog state.
	FetchBacklog(ctx context.Context, teamID, backlogStateID string) ([]models.Issue, error)
}

// Updater persists a ranking back to the tracker.
type Updater interface {
	// ApplyOrder makes the tracker's manual order match the given ranking.
	ApplyOrder(ctx context.Context, ranked []models.ScoredIssue) error
}

// Tracker is a source of backlogs that may also accept orderings.
type Tracker interface {
	Fetcher
	Updater

	// Name returns the lowercase identifier (e.g., "github", "jira").
	Name() string
}

// Factory builds a tracker from the loaded configuration.
type Factory func(cfg *config.Config) (Tracker, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a tracker available under name. It is called from the
// adapters' init functions.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// List returns the registered tracker names in alphabetical order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the tracker named by cfg.Source.
func New(cfg *config.Config) (Tracker, error) {
	mu.RLock()
	factory, ok := factories[cfg.Source]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tracker %q (available: %v)", cfg.Source, List())
	}
	return factory(cfg)
}
