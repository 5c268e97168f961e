package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/danielolaszy/triage/pkg/models"
)

// weightTolerance is the allowed deviation of a weight set's sum from 1.
const weightTolerance = 1e-6

// ErrInvalidWeights is returned when a weight set is not a convex combination.
var ErrInvalidWeights = errors.New("invalid scoring weights")

// Weights is the flat set of coefficients used by the Calculator. The outer
// weights (Relevance, Value, Complexity) and the inner value weights
// (Priority, Recency, Interactions) must each sum to 1.
type Weights struct {
	Relevance  float64 `json:"relevance"`
	Value      float64 `json:"value"`
	Complexity float64 `json:"complexity"`

	Priority     float64 `json:"priority"`
	Recency      float64 `json:"recency"`
	Interactions float64 `json:"interactions"`
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{
		Relevance:    0.5,
		Value:        0.2,
		Complexity:   0.3,
		Priority:     0.5,
		Recency:      0.3,
		Interactions: 0.2,
	}
}

// Validate reports whether both weight sets are non-negative and sum to 1.
func (w Weights) Validate() error {
	all := map[string]float64{
		"relevance":    w.Relevance,
		"value":        w.Value,
		"complexity":   w.Complexity,
		"priority":     w.Priority,
		"recency":      w.Recency,
		"interactions": w.Interactions,
	}
	for name, v := range all {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight must be a non-negative number, got %v", ErrInvalidWeights, name, v)
		}
	}

	if sum := w.Relevance + w.Value + w.Complexity; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: relevance, value and complexity must sum to 1.0, got %.4f", ErrInvalidWeights, sum)
	}
	if sum := w.Priority + w.Recency + w.Interactions; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: priority, recency and interactions must sum to 1.0, got %.4f", ErrInvalidWeights, sum)
	}
	return nil
}

// Calculator turns issues into scored issues. All parameters are explicit so
// scoring the same issue twice yields identical results.
type Calculator struct {
	Weights       Weights
	Keywords      []string
	TargetProject string

	// InternalAliases names or emails of the organisation's own staff
	InternalAliases []string

	// TrackerDomain is the email domain used by the tracker's own system users
	TrackerDomain string

	// Now is the reference time for recency scoring
	Now time.Time
}

// Score computes the ScoredIssue for a single issue.
func (c Calculator) Score(issue models.Issue) models.ScoredIssue {
	priority := PriorityScore(issue)
	relevance := RelevanceScore(issue, c.Keywords, c.TargetProject)
	recency, days := RecencyScore(issue.UpdatedAt, c.Now)
	interaction := InteractionScore(issue.Comments, c.InternalAliases, c.TrackerDomain)
	complexity := ComplexityScore(issue)

	value := clamp(priority.Score*c.Weights.Priority +
		recency*c.Weights.Recency +
		interaction.Score*c.Weights.Interactions)

	final := clamp(relevance.Score*c.Weights.Relevance +
		value*c.Weights.Value +
		complexity.Score*c.Weights.Complexity)

	return models.ScoredIssue{
		Issue:           issue,
		RelevanceScore:  relevance.Score,
		ValueScore:      value,
		ComplexityScore: complexity.Score,
		FinalScore:      final,
		Analysis: models.AnalysisDetails{
			PriorityLabel:      priority.Label,
			PrioritySource:     priority.Source,
			PriorityScore:      priority.Score,
			ComplexityLabel:    complexity.Label,
			ComplexitySource:   complexity.Source,
			DaysSinceUpdate:    days,
			RecencyScore:       recency,
			InteractionScore:   interaction.Score,
			ExternalComments:   interaction.External,
			InternalComments:   interaction.Internal,
			ExternalCommenters: interaction.Commenters,
			MatchedKeywords:    relevance.Matched,
			TargetProjectMatch: relevance.TargetProject,
		},
	}
}

// ScoreAll scores a batch in input order and returns it sorted. A malformed
// issue fails the whole batch so a ranking never silently omits items.
func (c Calculator) ScoreAll(issues []models.Issue) ([]models.ScoredIssue, error) {
	scored := make([]models.ScoredIssue, 0, len(issues))
	for i, issue := range issues {
		if err := validateIssue(issue); err != nil {
			return nil, fmt.Errorf("failed to score issue at position %d: %w", i, err)
		}
		scored = append(scored, c.Score(issue))
	}
	SortByScore(scored)
	return scored, nil
}

// SortByScore orders issues by final score, highest first. Equal scores keep
// their relative input order.
func SortByScore(issues []models.ScoredIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].FinalScore > issues[j].FinalScore
	})
}

func validateIssue(issue models.Issue) error {
	if issue.ID == "" {
		return errors.New("issue has no id")
	}
	if issue.Identifier == "" {
		return fmt.Errorf("issue %s has no identifier", issue.ID)
	}
	return nil
}
