// Package jira provides functionality for interacting with the JIRA API.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/internal/tracker"
	"github.com/danielolaszy/triage/pkg/models"
)

const (
	searchPageSize = 100

	// rankBatchSize is the largest number of issues the agile API ranks in one call.
	rankBatchSize = 50

	rankEndpoint = "rest/agile/1.0/issue/rank"
)

var searchFields = []string{
	"summary", "description", "created", "updated", "labels",
	"priority", "comment", "parent", "epic",
}

func init() {
	tracker.Register(config.SourceJira, func(cfg *config.Config) (tracker.Tracker, error) {
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// Client handles interactions with the JIRA API
type Client struct {
	client        *jira.Client
	baseURL       string
	estimateField string
}

// NewClient creates a JIRA client authenticated with basic auth.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}

	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}

	logging.Info("jira configuration",
		"url", cfg.Jira.BaseURL,
		"username", cfg.Jira.Username,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	return newClient(tp.Client(), cfg.Jira.BaseURL, cfg.Jira.EstimateField)
}

func newClient(httpClient *http.Client, baseURL, estimateField string) (*Client, error) {
	client, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create JIRA client: %w", err)
	}
	base := client.GetBaseURL()
	return &Client{
		client:        client,
		baseURL:       base.String(),
		estimateField: estimateField,
	}, nil
}

// Name returns the tracker identifier.
func (c *Client) Name() string {
	return config.SourceJira
}

// FetchBacklog retrieves the issues of a project that are in the given status,
// in the board's current rank order, with comments resolved.
func (c *Client) FetchBacklog(ctx context.Context, projectKey, status string) ([]models.Issue, error) {
	jql := backlogJQL(projectKey, status)
	fields := searchFields
	if c.estimateField != "" {
		fields = append(append([]string{}, searchFields...), c.estimateField)
	}

	var result []models.Issue
	startAt := 0
	for {
		var page []jira.Issue
		var resp *jira.Response
		err := tracker.Retry(ctx, "jira.Search", func() error {
			var err error
			page, resp, err = c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
				StartAt:    startAt,
				MaxResults: searchPageSize,
				Fields:     fields,
			})
			return withStatus(resp, err)
		})
		if err != nil {
			logging.Error("failed to search jira issues", "jql", jql, "error", err)
			return nil, fmt.Errorf("failed to search JIRA issues: %w", err)
		}

		for _, issue := range page {
			result = append(result, c.convertIssue(issue))
		}

		startAt += len(page)
		if len(page) == 0 || startAt >= resp.Total {
			break
		}
	}

	logging.Debug("fetched jira backlog", "project", projectKey, "status", status, "issues", len(result))
	return result, nil
}

// ApplyOrder ranks every issue directly after its predecessor in the ranking
// so the board's manual order matches it.
func (c *Client) ApplyOrder(ctx context.Context, ranked []models.ScoredIssue) error {
	if len(ranked) < 2 {
		return nil
	}

	after := ranked[0].Identifier
	for start := 1; start < len(ranked); start += rankBatchSize {
		end := min(start+rankBatchSize, len(ranked))

		keys := make([]string, 0, end-start)
		for _, issue := range ranked[start:end] {
			keys = append(keys, issue.Identifier)
		}

		if err := c.rankAfter(ctx, keys, after); err != nil {
			return fmt.Errorf("failed to rank issues after %s: %w", after, err)
		}
		logging.Debug("ranked jira issues", "after", after, "count", len(keys))
		after = keys[len(keys)-1]
	}

	logging.Info("applied ranking to jira", "issues", len(ranked))
	return nil
}

type rankRequest struct {
	Issues          []string `json:"issues"`
	RankAfterIssue  string   `json:"rankAfterIssue,omitempty"`
	RankBeforeIssue string   `json:"rankBeforeIssue,omitempty"`
}

func (c *Client) rankAfter(ctx context.Context, keys []string, after string) error {
	body := rankRequest{Issues: keys, RankAfterIssue: after}
	return tracker.Retry(ctx, "jira.Rank", func() error {
		req, err := c.client.NewRequestWithContext(ctx, http.MethodPut, rankEndpoint, body)
		if err != nil {
			return fmt.Errorf("failed to build rank request: %w", err)
		}
		resp, err := c.client.Do(req, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return withStatus(resp, err)
	})
}

func backlogJQL(projectKey, status string) string {
	return fmt.Sprintf(`project = "%s" AND status = "%s" ORDER BY Rank ASC`,
		escapeJQL(projectKey), escapeJQL(status))
}

func escapeJQL(value string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
}

// withStatus attaches the HTTP status of a failed call for retry decisions.
func withStatus(resp *jira.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp != nil && resp.Response != nil {
		return &tracker.StatusError{StatusCode: resp.StatusCode, Err: err}
	}
	return err
}

func (c *Client) convertIssue(issue jira.Issue) models.Issue {
	result := models.Issue{
		ID:         issue.ID,
		Identifier: issue.Key,
		URL:        strings.TrimSuffix(c.baseURL, "/") + "/browse/" + issue.Key,
		Labels:     []models.Label{},
	}

	fields := issue.Fields
	if fields == nil {
		return result
	}

	result.Title = fields.Summary
	result.Description = fields.Description
	result.CreatedAt = time.Time(fields.Created).UTC()
	result.UpdatedAt = time.Time(fields.Updated).UTC()

	for _, name := range fields.Labels {
		result.Labels = append(result.Labels, models.Label{ID: name, Name: name})
	}

	if fields.Priority != nil {
		result.Priority = mapPriority(fields.Priority.Name)
	}

	if c.estimateField != "" {
		if estimate, ok := parseEstimate(fields.Unknowns[c.estimateField]); ok {
			result.Estimate = &estimate
		}
	}

	switch {
	case fields.Epic != nil:
		name := fields.Epic.Name
		if name == "" {
			name = fields.Epic.Summary
		}
		result.Project = &models.Project{ID: fields.Epic.Key, Name: name}
	case fields.Parent != nil:
		result.Project = &models.Project{ID: fields.Parent.ID, Name: fields.Parent.Key}
	}

	if fields.Comments != nil {
		for _, comment := range fields.Comments.Comments {
			if comment == nil {
				continue
			}
			result.Comments = append(result.Comments, convertComment(comment))
		}
	}

	return result
}

func convertComment(comment *jira.Comment) models.Comment {
	result := models.Comment{ID: comment.ID, Body: comment.Body}
	author := comment.Author
	if author.AccountID != "" || author.Name != "" || author.DisplayName != "" {
		id := author.AccountID
		if id == "" {
			id = author.Name
		}
		name := author.DisplayName
		if name == "" {
			name = author.Name
		}
		result.Author = &models.User{ID: id, Name: name, Email: author.EmailAddress}
	}
	return result
}

// mapPriority maps JIRA priority names onto 1 (urgent) to 4 (low). Unknown
// names have no priority.
func mapPriority(name string) *int {
	var level int
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "highest", "blocker", "critical", "urgent":
		level = 1
	case "high", "major":
		level = 2
	case "medium", "normal":
		level = 3
	case "low", "lowest", "minor", "trivial":
		level = 4
	default:
		return nil
	}
	return &level
}

// parseEstimate reads a story points value from a decoded custom field.
func parseEstimate(raw any) (float64, bool) {
	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		value = parsed
	default:
		return 0, false
	}
	if value < 0 {
		return 0, false
	}
	return value, true
}
