// Package scoring computes priority scores for backlog issues.
//
// Every function in this package is pure: scores depend only on the issue and
// the parameters passed in, so the same input always yields the same output.
package scoring

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/danielolaszy/triage/pkg/models"
)

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Native tracker priority levels.
const (
	PriorityNone   = 0
	PriorityUrgent = 1
	PriorityHigh   = 2
	PriorityMedium = 3
	PriorityLow    = 4
)

// Sources recorded in the analysis details.
const (
	SourceNative   = "native"
	SourceLabel    = "label"
	SourceDefault  = "default"
	SourceEstimate = "estimate"
	SourceLength   = "description-length"
	SourceKeywords = "keywords"
)

// Complexity levels.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

var nativePriorities = map[int]struct {
	label string
	score float64
}{
	PriorityUrgent: {"Urgent", 100},
	PriorityHigh:   {"High", 70},
	PriorityMedium: {"Medium", 40},
	PriorityLow:    {"Low", 20},
}

// labelPriorities is ordered so "Priority:P1" is tried before the others.
var labelPriorities = []struct {
	prefix string
	label  string
	score  float64
}{
	{"priority:p1", "P1", 100},
	{"priority:p2", "P2", 70},
	{"priority:p3", "P3", 40},
}

// PriorityResult is the outcome of priority scoring.
type PriorityResult struct {
	Score  float64
	Label  string
	Source string
}

// PriorityScore scores an issue's urgency. A native tracker priority always
// wins over a Priority:P{1,2,3} label; the label is only consulted when the
// native priority is absent. Without either the issue is treated as P3.
func PriorityScore(issue models.Issue) PriorityResult {
	if issue.Priority != nil {
		if p, ok := nativePriorities[*issue.Priority]; ok {
			return PriorityResult{Score: p.score, Label: p.label, Source: SourceNative}
		}
	}

	for _, label := range issue.Labels {
		name := strings.ToLower(strings.ReplaceAll(label.Name, " ", ""))
		for _, lp := range labelPriorities {
			if strings.HasPrefix(name, lp.prefix) {
				return PriorityResult{Score: lp.score, Label: lp.label, Source: SourceLabel}
			}
		}
	}

	return PriorityResult{Score: 40, Label: "P3", Source: SourceDefault}
}

// Relevance weights per keyword hit.
const (
	titleHitWeight       = 20.0
	descriptionHitWeight = 10.0
	labelHitWeight       = 30.0
)

// RelevanceResult is the outcome of relevance scoring.
type RelevanceResult struct {
	Score         float64
	Matched       []string
	TargetProject bool
}

// RelevanceScore measures how well an issue matches the configured topic.
// Issues in the target project score 100 outright. Otherwise each keyword
// adds weight for a title hit, a description hit and every label it appears in.
func RelevanceScore(issue models.Issue, keywords []string, targetProject string) RelevanceResult {
	if targetProject != "" && issue.Project != nil && issue.Project.Name == targetProject {
		return RelevanceResult{Score: MaxScore, TargetProject: true}
	}

	title := strings.ToLower(issue.Title)
	description := strings.ToLower(issue.Description)

	var score float64
	var matched []string
	for _, keyword := range keywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw == "" {
			continue
		}

		hit := false
		if strings.Contains(title, kw) {
			score += titleHitWeight
			hit = true
		}
		if strings.Contains(description, kw) {
			score += descriptionHitWeight
			hit = true
		}
		for _, label := range issue.Labels {
			if strings.Contains(strings.ToLower(label.Name), kw) {
				score += labelHitWeight
				hit = true
			}
		}
		if hit {
			matched = append(matched, kw)
		}
	}

	return RelevanceResult{Score: clamp(score), Matched: matched}
}

// recencyBuckets must stay ordered by ascending age.
var recencyBuckets = []struct {
	maxDays int
	score   float64
}{
	{30, 100},
	{90, 80},
	{180, 50},
	{365, 10},
}

// RecencyScore maps the age of the last update onto a non-increasing step
// function. Updates in the future count as fresh.
func RecencyScore(updatedAt, now time.Time) (float64, int) {
	days := int(now.Sub(updatedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	for _, b := range recencyBuckets {
		if days < b.maxDays {
			return b.score, days
		}
	}
	return MinScore, days
}

// Interaction weights.
const (
	externalCommentWeight = 20.0
	internalCommentWeight = 5.0
	extraCommenterBonus   = 10.0
)

// automatedMarkers identify comments posted by integrations rather than people.
var automatedMarkers = []string{
	"this comment thread is synced",
	"this thread is synced",
	"synced from slack",
	"synced from github",
	"synced from jira",
	"this issue was automatically",
	"this comment was automatically",
	"automated message",
}

// InteractionResult is the outcome of interaction scoring.
type InteractionResult struct {
	Score      float64
	External   int
	Internal   int
	Commenters int
}

// InteractionScore counts human discussion on an issue. Comments without an
// author, integration comments, bot accounts and authors on the tracker's own
// domain are ignored. Authors matching one of the aliases count as internal
// staff and weigh less than external parties.
func InteractionScore(comments []models.Comment, aliases []string, trackerDomain string) InteractionResult {
	var res InteractionResult
	seen := make(map[string]struct{})

	for _, c := range comments {
		if !isHumanComment(c, trackerDomain) {
			continue
		}
		if isInternalAuthor(c.Author, aliases) {
			res.Internal++
			continue
		}
		res.External++
		key := c.Author.ID
		if key == "" {
			key = strings.ToLower(c.Author.Name + "|" + c.Author.Email)
		}
		seen[key] = struct{}{}
	}
	res.Commenters = len(seen)

	score := float64(res.External)*externalCommentWeight + float64(res.Internal)*internalCommentWeight
	if res.Commenters > 1 {
		score += float64(res.Commenters-1) * extraCommenterBonus
	}
	res.Score = clamp(score)
	return res
}

func isHumanComment(c models.Comment, trackerDomain string) bool {
	if c.Author == nil {
		return false
	}

	body := strings.ToLower(c.Body)
	for _, marker := range automatedMarkers {
		if strings.Contains(body, marker) {
			return false
		}
	}

	name := strings.ToLower(c.Author.Name)
	if strings.HasSuffix(name, "[bot]") {
		return false
	}

	domain := strings.ToLower(strings.TrimPrefix(trackerDomain, "@"))
	if domain != "" && strings.HasSuffix(strings.ToLower(c.Author.Email), "@"+domain) {
		return false
	}
	return true
}

func isInternalAuthor(author *models.User, aliases []string) bool {
	name := strings.ToLower(strings.TrimSpace(author.Name))
	email := strings.ToLower(strings.TrimSpace(author.Email))
	for _, alias := range aliases {
		a := strings.ToLower(strings.TrimSpace(alias))
		if a == "" {
			continue
		}
		if a == name || a == email {
			return true
		}
		// "@example.com" style aliases match a whole email domain
		if strings.HasPrefix(a, "@") && strings.HasSuffix(email, a) {
			return true
		}
	}
	return false
}

// Effort thresholds in estimate points.
const (
	lowEffortMax    = 2.0
	mediumEffortMax = 5.0

	// longDescriptionChars marks a description long enough to suggest a large task.
	longDescriptionChars = 2000
)

var complexityScores = map[string]float64{
	ComplexityLow:    100,
	ComplexityMedium: 60,
	ComplexityHigh:   20,
}

var complexityLabelValues = map[string]string{
	"low":      ComplexityLow,
	"easy":     ComplexityLow,
	"small":    ComplexityLow,
	"trivial":  ComplexityLow,
	"medium":   ComplexityMedium,
	"moderate": ComplexityMedium,
	"high":     ComplexityHigh,
	"hard":     ComplexityHigh,
	"large":    ComplexityHigh,
	"complex":  ComplexityHigh,
}

var (
	complexIndicators = []string{
		"refactor", "migration", "migrate", "architecture", "redesign",
		"rewrite", "overhaul", "investigate", "performance", "infrastructure",
	}
	simpleIndicators = []string{
		"typo", "quick fix", "copy change", "rename", "simple", "minor",
		"small change", "tweak", "wording",
	}
)

// ComplexityResult is the outcome of complexity scoring.
type ComplexityResult struct {
	Score  float64
	Label  string
	Source string
}

// ComplexityScore is inverted: low effort scores high so quick wins rise.
// Effort is taken from the first signal available: the numeric estimate, a
// complexity or difficulty label, a very long description, indicator words in
// the text. Without any signal the issue is assumed to be medium.
func ComplexityScore(issue models.Issue) ComplexityResult {
	level, source := complexityLevel(issue)
	return ComplexityResult{Score: complexityScores[level], Label: level, Source: source}
}

func complexityLevel(issue models.Issue) (string, string) {
	if issue.Estimate != nil {
		switch e := *issue.Estimate; {
		case e <= lowEffortMax:
			return ComplexityLow, SourceEstimate
		case e <= mediumEffortMax:
			return ComplexityMedium, SourceEstimate
		default:
			return ComplexityHigh, SourceEstimate
		}
	}

	for _, label := range issue.Labels {
		if level, ok := complexityFromLabel(label.Name); ok {
			return level, SourceLabel
		}
	}

	if len(issue.Description) > longDescriptionChars {
		return ComplexityHigh, SourceLength
	}

	text := strings.ToLower(issue.Title + "\n" + issue.Description)
	for _, w := range complexIndicators {
		if strings.Contains(text, w) {
			return ComplexityHigh, SourceKeywords
		}
	}
	for _, w := range simpleIndicators {
		if strings.Contains(text, w) {
			return ComplexityLow, SourceKeywords
		}
	}

	return ComplexityMedium, SourceDefault
}

// complexityFromLabel understands "complexity: low", "Difficulty/Hard" and similar.
func complexityFromLabel(name string) (string, bool) {
	n := strings.ToLower(name)
	var rest string
	switch {
	case strings.HasPrefix(n, "complexity"):
		rest = n[len("complexity"):]
	case strings.HasPrefix(n, "difficulty"):
		rest = n[len("difficulty"):]
	default:
		return "", false
	}
	rest = strings.TrimLeft(rest, ":/-_= ")
	level, ok := complexityLabelValues[strings.TrimSpace(rest)]
	return level, ok
}

// ParseEstimateLabel reads an "estimate: 3" style label, used by trackers
// without a native estimate field.
func ParseEstimateLabel(name string) (float64, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "estimate") {
		return 0, false
	}
	rest := strings.TrimSpace(strings.TrimLeft(n[len("estimate"):], ":/= "))
	v, err := strconv.ParseFloat(rest, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func clamp(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}
