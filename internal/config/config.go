// Package config provides centralized configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielolaszy/triage/internal/scoring"
	"github.com/spf13/viper"
)

// ErrMissingConfig is returned when a required setting is absent.
var ErrMissingConfig = errors.New("missing required configuration")

// Supported tracker sources.
const (
	SourceGitHub = "github"
	SourceJira   = "jira"
)

// DefaultCacheTTLHours is the cache lifetime when none is configured.
const DefaultCacheTTLHours = 24

// Config holds all configuration parameters for the application.
type Config struct {
	// Source selects the tracker adapter ("github" or "jira")
	Source string

	// TeamID identifies the team whose backlog is ranked
	TeamID string

	// BacklogStateID identifies the workflow state holding unscheduled work
	BacklogStateID string

	// TargetProject issues in this project are treated as fully relevant
	TargetProject string

	RelevanceKeywords []string
	InternalAliases   []string

	// TrackerDomain is the email domain of the tracker's own system accounts
	TrackerDomain string

	CacheDir      string
	CacheTTLHours int

	Weights scoring.Weights

	GitHub GitHubConfig
	Jira   JiraConfig
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token  string
	Domain string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	BaseURL  string
	Username string
	Token    string

	// EstimateField is the custom field holding story points
	EstimateField string
}

// CacheTTL returns the cache lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// LoadConfig loads configuration from environment variables and, when
// configFile is not empty, from that file. Environment variables win.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnv(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	config := &Config{
		Source:            strings.ToLower(v.GetString("source")),
		TeamID:            v.GetString("team_id"),
		BacklogStateID:    v.GetString("backlog_state_id"),
		TargetProject:     v.GetString("target_project"),
		RelevanceKeywords: splitList(v.Get("relevance_keywords")),
		InternalAliases:   splitList(v.Get("internal_aliases")),
		TrackerDomain:     v.GetString("tracker_domain"),
		CacheDir:          v.GetString("cache_dir"),
		CacheTTLHours:     v.GetInt("cache_ttl_hours"),
		Weights: scoring.Weights{
			Relevance:    v.GetFloat64("weights.relevance"),
			Value:        v.GetFloat64("weights.value"),
			Complexity:   v.GetFloat64("weights.complexity"),
			Priority:     v.GetFloat64("weights.priority"),
			Recency:      v.GetFloat64("weights.recency"),
			Interactions: v.GetFloat64("weights.interactions"),
		},
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		Jira: JiraConfig{
			BaseURL:       v.GetString("jira.url"),
			Username:      v.GetString("jira.username"),
			Token:         v.GetString("jira.token"),
			EstimateField: v.GetString("jira.estimate_field"),
		},
	}

	if config.CacheDir == "" {
		config.CacheDir = defaultCacheDir()
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	defaults := scoring.DefaultWeights()
	v.SetDefault("source", SourceGitHub)
	v.SetDefault("cache_ttl_hours", DefaultCacheTTLHours)
	v.SetDefault("github.domain", "github.com")
	v.SetDefault("jira.estimate_field", "customfield_10016")
	v.SetDefault("weights.relevance", defaults.Relevance)
	v.SetDefault("weights.value", defaults.Value)
	v.SetDefault("weights.complexity", defaults.Complexity)
	v.SetDefault("weights.priority", defaults.Priority)
	v.SetDefault("weights.recency", defaults.Recency)
	v.SetDefault("weights.interactions", defaults.Interactions)
}

// bindEnv maps the documented environment variables onto config keys.
func bindEnv(v *viper.Viper) {
	v.BindEnv("source", "TRIAGE_SOURCE")
	v.BindEnv("team_id", "TEAM_ID")
	v.BindEnv("backlog_state_id", "BACKLOG_STATE_ID")
	v.BindEnv("target_project", "TARGET_PROJECT")
	v.BindEnv("relevance_keywords", "RELEVANCE_KEYWORDS")
	v.BindEnv("internal_aliases", "INTERNAL_ALIASES")
	v.BindEnv("tracker_domain", "TRACKER_DOMAIN")
	v.BindEnv("cache_dir", "CACHE_DIR")
	v.BindEnv("cache_ttl_hours", "CACHE_TTL_HOURS")
	v.BindEnv("weights.relevance", "WEIGHT_RELEVANCE")
	v.BindEnv("weights.value", "WEIGHT_VALUE")
	v.BindEnv("weights.complexity", "WEIGHT_COMPLEXITY")
	v.BindEnv("weights.priority", "WEIGHT_PRIORITY")
	v.BindEnv("weights.recency", "WEIGHT_RECENCY")
	v.BindEnv("weights.interactions", "WEIGHT_INTERACTIONS")
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("jira.estimate_field", "JIRA_ESTIMATE_FIELD")
}

// validateConfig ensures that all required configuration values are provided
// and that the weights form convex combinations.
func validateConfig(config *Config) error {
	var missingVars []string

	if config.TeamID == "" {
		missingVars = append(missingVars, "TEAM_ID")
	}
	if config.BacklogStateID == "" {
		missingVars = append(missingVars, "BACKLOG_STATE_ID")
	}
	if len(missingVars) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingConfig, missingVars)
	}

	if config.Source != SourceGitHub && config.Source != SourceJira {
		return fmt.Errorf("unsupported source %q: expected %q or %q", config.Source, SourceGitHub, SourceJira)
	}

	if config.CacheTTLHours <= 0 {
		return fmt.Errorf("cache TTL must be a positive number of hours, got %d", config.CacheTTLHours)
	}

	if err := config.Weights.Validate(); err != nil {
		return err
	}

	return nil
}

// ValidateGitHubConfig validates GitHub-specific configuration.
func ValidateGitHubConfig(config *Config) error {
	if config.GitHub.Token == "" {
		return fmt.Errorf("%w: [GITHUB_TOKEN]", ErrMissingConfig)
	}
	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	// JIRA validation
	if config.Jira.BaseURL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingConfig, missingVars)
	}

	return nil
}

// splitList accepts either a comma-separated string (environment) or a list
// (config file) and returns the trimmed, non-empty entries.
func splitList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	default:
		parts = strings.Split(fmt.Sprint(val), ",")
	}

	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "triage")
	}
	return ".triage-cache"
}
