package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/danielolaszy/triage/internal/cache"
	"github.com/danielolaszy/triage/pkg/models"
)

// maxTitleWidth is the widest title cell before truncation.
const maxTitleWidth = 60

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(MutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

// RenderRanking writes the ranking as a table. A positive limit shows only the
// top entries.
func RenderRanking(w io.Writer, ranked []models.ScoredIssue, limit int) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, MutedStyle.Render("No issues in backlog."))
		return err
	}

	shown := ranked
	if limit > 0 && limit < len(shown) {
		shown = shown[:limit]
	}

	t := newTable("#", "Issue", "Title", "Final", "Relevance", "Value", "Complexity", "Priority")
	for i, issue := range shown {
		t.Row(
			strconv.Itoa(i+1),
			issue.Identifier,
			truncate(issue.Title, maxTitleWidth),
			formatScore(issue.FinalScore),
			formatScore(issue.RelevanceScore),
			formatScore(issue.ValueScore),
			fmt.Sprintf("%s (%s)", formatScore(issue.ComplexityScore), issue.Analysis.ComplexityLabel),
			issue.Analysis.PriorityLabel,
		)
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	if len(shown) < len(ranked) {
		_, err := fmt.Fprintln(w, MutedStyle.Render(fmt.Sprintf("Showing %d of %d issues.", len(shown), len(ranked))))
		return err
	}
	return nil
}

// RenderChanges writes the ranking moves as a table.
func RenderChanges(w io.Writer, changes []models.RankingChange, limit int) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintln(w, MutedStyle.Render("No ranking changes."))
		return err
	}

	shown := changes
	if limit > 0 && limit < len(shown) {
		shown = shown[:limit]
	}

	if _, err := fmt.Fprintln(w, TitleStyle.Render("Ranking changes")); err != nil {
		return err
	}

	t := newTable("Issue", "Title", "Was", "Now", "Move")
	for _, change := range shown {
		t.Row(
			change.Identifier,
			truncate(change.Title, maxTitleWidth),
			strconv.Itoa(change.OldRank),
			strconv.Itoa(change.NewRank),
			formatDelta(change.Delta),
		)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// RenderCacheStatus writes one line per cache with its validity.
func RenderCacheStatus(w io.Writer, dir string, ttl time.Duration, statuses []cache.Status, now time.Time) error {
	if _, err := fmt.Fprintf(w, "%s %s (ttl %s)\n", TitleStyle.Render("Cache"), dir, ttl); err != nil {
		return err
	}

	t := newTable("Cache", "State", "Team", "Backlog", "Issues", "Age")
	for _, status := range statuses {
		state := UpStyle.Render(string(status.Reason))
		if !status.Valid() {
			state = WarnStyle.Render(string(status.Reason))
		}

		team, backlog, count, age := "-", "-", "-", "-"
		if meta := status.Metadata; meta != nil {
			team = meta.TeamID
			backlog = meta.BacklogStateID
			count = strconv.Itoa(meta.IssueCount)
			age = now.Sub(meta.LastUpdated).Truncate(time.Minute).String()
		}
		t.Row(string(status.Kind), state, team, backlog, count, age)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Report is the machine-readable form of a ranking run.
type Report struct {
	GeneratedAt time.Time              `json:"generatedAt"`
	Issues      []models.ScoredIssue   `json:"issues"`
	Changes     []models.RankingChange `json:"changes,omitempty"`
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json output: %w", err)
	}
	return nil
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

func formatDelta(delta int) string {
	switch {
	case delta > 0:
		return UpStyle.Render(fmt.Sprintf("%s %d", IconUp, delta))
	case delta < 0:
		return DownStyle.Render(fmt.Sprintf("%s %d", IconDown, -delta))
	default:
		return "-"
	}
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
