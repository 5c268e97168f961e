// Package models defines data structures shared across the application.
package models

import (
	"time"
)

// Issue is a backlog item as fetched from the tracker, already carrying its
// labels and comments. Issues are treated as read-only once fetched.
type Issue struct {
	// ID is the tracker's internal identifier
	ID string `json:"id"`

	// Identifier is the human-readable key (e.g., "ENG-42" or "owner/repo#42")
	Identifier string `json:"identifier"`

	// Title is the issue's summary
	Title string `json:"title"`

	// Description is the full body text of the issue
	Description string `json:"description"`

	// Estimate is the effort estimate in points, nil when not estimated
	Estimate *float64 `json:"estimate,omitempty"`

	// Priority is the tracker-native level (1=Urgent, 2=High, 3=Medium, 4=Low), nil when none
	Priority *int `json:"priority,omitempty"`

	// CreatedAt is the timestamp when the issue was created
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp when the issue was last updated
	UpdatedAt time.Time `json:"updatedAt"`

	// Labels attached to the issue, in tracker order
	Labels []Label `json:"labels"`

	// Project is the project or milestone the issue belongs to
	Project *Project `json:"project,omitempty"`

	// Comments posted on the issue, oldest first
	Comments []Comment `json:"comments"`

	// URL links back to the issue in the tracker
	URL string `json:"url,omitempty"`
}

// Label is a tracker label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project references the project an issue is grouped under.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Comment is a single comment on an issue.
type Comment struct {
	ID     string `json:"id"`
	Body   string `json:"body"`
	Author *User  `json:"author,omitempty"`
}

// User is the author of a comment.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ScoredIssue is an issue together with its computed scores.
type ScoredIssue struct {
	Issue
	RelevanceScore  float64         `json:"relevanceScore"`
	ValueScore      float64         `json:"valueScore"`
	ComplexityScore float64         `json:"complexityScore"`
	FinalScore      float64         `json:"finalScore"`
	Analysis        AnalysisDetails `json:"analysisDetails"`
}

// AnalysisDetails records the classification behind each sub-score.
type AnalysisDetails struct {
	PriorityLabel  string  `json:"priorityLabel"`
	PrioritySource string  `json:"prioritySource"`
	PriorityScore  float64 `json:"priorityScore"`

	ComplexityLabel  string `json:"complexityLabel"`
	ComplexitySource string `json:"complexitySource"`

	DaysSinceUpdate int     `json:"daysSinceUpdate"`
	RecencyScore    float64 `json:"recencyScore"`

	InteractionScore   float64 `json:"interactionScore"`
	ExternalComments   int     `json:"externalComments"`
	InternalComments   int     `json:"internalComments"`
	ExternalCommenters int     `json:"externalCommenters"`

	MatchedKeywords    []string `json:"matchedKeywords,omitempty"`
	TargetProjectMatch bool     `json:"targetProjectMatch,omitempty"`
}

// RankingChange describes how far an issue moved between two rankings.
// A positive Delta means the issue moved toward the top.
type RankingChange struct {
	IssueID    string `json:"issueId"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	OldRank    int    `json:"oldRank"`
	NewRank    int    `json:"newRank"`
	Delta      int    `json:"delta"`
}
