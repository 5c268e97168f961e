// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/internal/scoring"
	"github.com/danielolaszy/triage/internal/tracker"
	"github.com/danielolaszy/triage/pkg/models"
	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	perPage = 100

	// commentConcurrency bounds parallel comment requests per backlog fetch.
	commentConcurrency = 8
)

func init() {
	tracker.Register(config.SourceGitHub, func(cfg *config.Config) (tracker.Tracker, error) {
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// Client encapsulates the GitHub API client.
type Client struct {
	client *github.Client
}

// NewClient creates a GitHub client for the configured domain, authenticated
// with the configured token.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateGitHubConfig(cfg); err != nil {
		return nil, err
	}

	domain := cfg.GitHub.Domain
	if domain == "" {
		domain = "github.com"
	}
	apiURL := apiURLForDomain(domain)

	logging.Info("github configuration",
		"domain", domain,
		"api_url", apiURL,
		"token", logging.MaskSensitive(cfg.GitHub.Token))

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.GitHub.Token},
	)
	return newClient(oauth2.NewClient(context.Background(), ts), apiURL)
}

func newClient(httpClient *http.Client, apiURL string) (*Client, error) {
	client := github.NewClient(httpClient)

	parsedURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid github api url: %w", err)
	}
	client.BaseURL = parsedURL
	client.UploadURL = parsedURL

	return &Client{client: client}, nil
}

// apiURLForDomain returns the REST endpoint for github.com or a GitHub
// Enterprise host.
func apiURLForDomain(domain string) string {
	if domain == "" || domain == "github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// Name returns the tracker identifier.
func (c *Client) Name() string {
	return config.SourceGitHub
}

// FetchBacklog retrieves the issues of repository ("owner/repo") in the given
// state ("open", "closed" or "all"), with comments resolved. Pull requests
// are skipped.
func (c *Client) FetchBacklog(ctx context.Context, repository, state string) ([]models.Issue, error) {
	owner, repo, err := parseRepository(repository)
	if err != nil {
		return nil, err
	}

	opts := &github.IssueListByRepoOptions{
		State: state,
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	var allIssues []*github.Issue
	for {
		var page []*github.Issue
		var resp *github.Response
		err := tracker.Retry(ctx, "github.ListByRepo", func() error {
			var err error
			page, resp, err = c.client.Issues.ListByRepo(ctx, owner, repo, opts)
			return withStatus(resp, err)
		})
		if err != nil {
			logging.Error("failed to fetch github issues", "repository", repository, "error", err)
			return nil, fmt.Errorf("failed to fetch GitHub issues: %w", err)
		}

		allIssues = append(allIssues, page...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	// Pull requests are also returned by the Issues API
	var ghIssues []*github.Issue
	for _, issue := range allIssues {
		if issue.PullRequestLinks == nil {
			ghIssues = append(ghIssues, issue)
		}
	}

	result := make([]models.Issue, len(ghIssues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commentConcurrency)
	for i, issue := range ghIssues {
		i, issue := i, issue
		result[i] = convertIssue(repo, issue)
		if issue.GetComments() == 0 {
			continue
		}
		g.Go(func() error {
			comments, err := c.listComments(gctx, owner, repo, issue.GetNumber())
			if err != nil {
				return err
			}
			result[i].Comments = comments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Debug("fetched github backlog", "repository", repository, "state", state, "issues", len(result))
	return result, nil
}

func (c *Client) listComments(ctx context.Context, owner, repo string, number int) ([]models.Comment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var comments []models.Comment
	for {
		var page []*github.IssueComment
		var resp *github.Response
		err := tracker.Retry(ctx, "github.ListComments", func() error {
			var err error
			page, resp, err = c.client.Issues.ListComments(ctx, owner, repo, number, opts)
			return withStatus(resp, err)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch comments for %s#%d: %w", repo, number, err)
		}

		for _, comment := range page {
			comments = append(comments, convertComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return comments, nil
}

// ApplyOrder is not supported: GitHub issues have no manual order.
func (c *Client) ApplyOrder(_ context.Context, _ []models.ScoredIssue) error {
	return tracker.ErrOrderingUnsupported
}

func parseRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: %s, expected format: owner/repo", repository)
	}
	return parts[0], parts[1], nil
}

// withStatus attaches the HTTP status of a failed call for retry decisions.
func withStatus(resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp != nil && resp.Response != nil {
		return &tracker.StatusError{StatusCode: resp.StatusCode, Err: err}
	}
	return err
}

// convertIssue maps a GitHub issue onto the tracker-neutral model. The
// milestone stands in for the project and an "estimate: N" label for the
// estimate. GitHub has no native priority.
func convertIssue(repo string, issue *github.Issue) models.Issue {
	result := models.Issue{
		ID:          strconv.FormatInt(issue.GetID(), 10),
		Identifier:  fmt.Sprintf("%s#%d", repo, issue.GetNumber()),
		Title:       issue.GetTitle(),
		Description: issue.GetBody(),
		CreatedAt:   issue.GetCreatedAt(),
		UpdatedAt:   issue.GetUpdatedAt(),
		URL:         issue.GetHTMLURL(),
		Labels:      make([]models.Label, 0, len(issue.Labels)),
	}

	for _, label := range issue.Labels {
		result.Labels = append(result.Labels, models.Label{
			ID:   strconv.FormatInt(label.GetID(), 10),
			Name: label.GetName(),
		})
		if result.Estimate == nil {
			if estimate, ok := scoring.ParseEstimateLabel(label.GetName()); ok {
				result.Estimate = &estimate
			}
		}
	}

	if m := issue.Milestone; m != nil {
		result.Project = &models.Project{
			ID:   strconv.FormatInt(m.GetID(), 10),
			Name: m.GetTitle(),
		}
	}

	return result
}

func convertComment(comment *github.IssueComment) models.Comment {
	result := models.Comment{
		ID:   strconv.FormatInt(comment.GetID(), 10),
		Body: comment.GetBody(),
	}
	if u := comment.User; u != nil {
		result.Author = &models.User{
			ID:    strconv.FormatInt(u.GetID(), 10),
			Name:  u.GetLogin(),
			Email: u.GetEmail(),
		}
	}
	return result
}
