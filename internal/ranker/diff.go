package ranker

import (
	"sort"

	"github.com/danielolaszy/triage/pkg/models"
)

// Diff reports how issues present in both rankings moved. Ranks are 1-based
// and Delta is previous rank minus current rank, so a positive delta means the
// issue moved up. Unmoved issues are omitted. Changes are ordered by the size
// of the move, largest first; equal moves keep their current-rank order.
func Diff(previous, current []models.ScoredIssue) []models.RankingChange {
	previousRank := make(map[string]int, len(previous))
	for i, issue := range previous {
		if _, seen := previousRank[issue.ID]; !seen {
			previousRank[issue.ID] = i + 1
		}
	}

	var changes []models.RankingChange
	for i, issue := range current {
		oldRank, ok := previousRank[issue.ID]
		if !ok {
			continue
		}
		newRank := i + 1
		if delta := oldRank - newRank; delta != 0 {
			changes = append(changes, models.RankingChange{
				IssueID:    issue.ID,
				Identifier: issue.Identifier,
				Title:      issue.Title,
				OldRank:    oldRank,
				NewRank:    newRank,
				Delta:      delta,
			})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return abs(changes[i].Delta) > abs(changes[j].Delta)
	})
	return changes
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
