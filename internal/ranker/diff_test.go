package ranker

import (
	"testing"

	"github.com/danielolaszy/triage/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ranking(ids ...string) []models.ScoredIssue {
	out := make([]models.ScoredIssue, len(ids))
	for i, id := range ids {
		out[i] = models.ScoredIssue{Issue: models.Issue{ID: id, Identifier: "ENG-" + id, Title: "Issue " + id}}
	}
	return out
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		previous []models.ScoredIssue
		current  []models.ScoredIssue
		want     []models.RankingChange
	}{
		{
			name:     "identical rankings",
			previous: ranking("a", "b", "c"),
			current:  ranking("a", "b", "c"),
			want:     nil,
		},
		{
			name:     "empty previous",
			previous: nil,
			current:  ranking("a", "b"),
			want:     nil,
		},
		{
			name:     "swap",
			previous: ranking("a", "b"),
			current:  ranking("b", "a"),
			want: []models.RankingChange{
				{IssueID: "b", Identifier: "ENG-b", Title: "Issue b", OldRank: 2, NewRank: 1, Delta: 1},
				{IssueID: "a", Identifier: "ENG-a", Title: "Issue a", OldRank: 1, NewRank: 2, Delta: -1},
			},
		},
		{
			name:     "largest move first",
			previous: ranking("a", "b", "c", "d"),
			current:  ranking("d", "a", "b", "c"),
			want: []models.RankingChange{
				{IssueID: "d", Identifier: "ENG-d", Title: "Issue d", OldRank: 4, NewRank: 1, Delta: 3},
				{IssueID: "a", Identifier: "ENG-a", Title: "Issue a", OldRank: 1, NewRank: 2, Delta: -1},
				{IssueID: "b", Identifier: "ENG-b", Title: "Issue b", OldRank: 2, NewRank: 3, Delta: -1},
				{IssueID: "c", Identifier: "ENG-c", Title: "Issue c", OldRank: 3, NewRank: 4, Delta: -1},
			},
		},
		{
			name:     "new and removed issues are ignored",
			previous: ranking("a", "gone", "b"),
			current:  ranking("new", "b", "a"),
			want: []models.RankingChange{
				{IssueID: "a", Identifier: "ENG-a", Title: "Issue a", OldRank: 1, NewRank: 3, Delta: -2},
				{IssueID: "b", Identifier: "ENG-b", Title: "Issue b", OldRank: 3, NewRank: 2, Delta: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.previous, tt.current))
		})
	}
}

func TestDiffSymmetry(t *testing.T) {
	previous := ranking("a", "b", "c", "d", "e")
	current := ranking("c", "e", "a", "d", "b")

	forward := Diff(previous, current)
	backward := Diff(current, previous)
	require.Len(t, backward, len(forward))

	byID := make(map[string]models.RankingChange, len(backward))
	for _, change := range backward {
		byID[change.IssueID] = change
	}
	for _, change := range forward {
		reverse, ok := byID[change.IssueID]
		require.True(t, ok, change.IssueID)
		assert.Equal(t, -change.Delta, reverse.Delta)
		assert.Equal(t, change.OldRank, reverse.NewRank)
		assert.Equal(t, change.NewRank, reverse.OldRank)
	}
}
