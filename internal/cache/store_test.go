package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielolaszy/triage/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	testFP  = Fingerprint{TeamID: "team-1", BacklogStateID: "state-backlog", Keywords: []string{"billing", "api"}}
)

func testIssues() []models.Issue {
	priority := 2
	estimate := 3.0
	return []models.Issue{
		{
			ID: "a1", Identifier: "ENG-1", Title: "First", Description: "desc",
			Priority: &priority, Estimate: &estimate,
			CreatedAt: testNow.Add(-72 * time.Hour), UpdatedAt: testNow.Add(-time.Hour),
			Labels:   []models.Label{{ID: "l1", Name: "Priority:P1"}},
			Project:  &models.Project{ID: "p1", Name: "Payments"},
			Comments: []models.Comment{{ID: "c1", Body: "hi", Author: &models.User{ID: "u1", Name: "Ann", Email: "ann@x.io"}}},
		},
		{
			ID: "a2", Identifier: "ENG-2", Title: "Second",
			CreatedAt: testNow.Add(-48 * time.Hour), UpdatedAt: testNow.Add(-2 * time.Hour),
		},
	}
}

func testScored() []models.ScoredIssue {
	issues := testIssues()
	return []models.ScoredIssue{
		{
			Issue: issues[0], RelevanceScore: 40, ValueScore: 71.5, ComplexityScore: 60, FinalScore: 52.3,
			Analysis: models.AnalysisDetails{
				PriorityLabel: "High", PrioritySource: "native", PriorityScore: 70,
				ComplexityLabel: "medium", ComplexitySource: "estimate",
				DaysSinceUpdate: 0, RecencyScore: 100,
				InteractionScore: 20, ExternalComments: 1, ExternalCommenters: 1,
				MatchedKeywords: []string{"billing"},
			},
		},
		{
			Issue: issues[1], RelevanceScore: 0, ValueScore: 50, ComplexityScore: 60, FinalScore: 28,
			Analysis: models.AnalysisDetails{PriorityLabel: "P3", PrioritySource: "default", PriorityScore: 40},
		},
	}
}

func TestEvaluate(t *testing.T) {
	ttl := 24 * time.Hour
	eps := time.Millisecond
	meta := Metadata{
		LastUpdated:       testNow,
		TeamID:            testFP.TeamID,
		BacklogStateID:    testFP.BacklogStateID,
		RelevanceKeywords: []string{"api", "billing"},
	}

	tests := []struct {
		name          string
		meta          Metadata
		fp            Fingerprint
		now           time.Time
		checkKeywords bool
		want          Reason
	}{
		{"Fresh", meta, testFP, testNow.Add(time.Hour), true, ReasonValid},
		{"Just before TTL", meta, testFP, testNow.Add(ttl - eps), true, ReasonValid},
		{"Exactly TTL", meta, testFP, testNow.Add(ttl), true, ReasonExpired},
		{"Just after TTL", meta, testFP, testNow.Add(ttl + eps), true, ReasonExpired},
		{"Team mismatch", meta, Fingerprint{TeamID: "other", BacklogStateID: testFP.BacklogStateID, Keywords: testFP.Keywords}, testNow, true, ReasonKeyMismatch},
		{"State mismatch", meta, Fingerprint{TeamID: testFP.TeamID, BacklogStateID: "todo", Keywords: testFP.Keywords}, testNow, true, ReasonKeyMismatch},
		{"Keyword added", meta, Fingerprint{TeamID: testFP.TeamID, BacklogStateID: testFP.BacklogStateID, Keywords: []string{"billing", "api", "ux"}}, testNow, true, ReasonKeywordsMismatch},
		{"Keyword removed", meta, Fingerprint{TeamID: testFP.TeamID, BacklogStateID: testFP.BacklogStateID, Keywords: []string{"billing"}}, testNow, true, ReasonKeywordsMismatch},
		{"Keywords ignored for issues cache", meta, Fingerprint{TeamID: testFP.TeamID, BacklogStateID: testFP.BacklogStateID}, testNow, false, ReasonValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.meta, tt.fp, ttl, tt.now, tt.checkKeywords))
		})
	}
}

func TestSameKeywords(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"Both empty", nil, []string{}, true},
		{"Same order", []string{"a", "b"}, []string{"a", "b"}, true},
		{"Reordered", []string{"a", "b", "c"}, []string{"c", "a", "b"}, true},
		{"Different length", []string{"a"}, []string{"a", "b"}, false},
		{"Duplicates count", []string{"a", "a", "b"}, []string{"a", "b", "b"}, false},
		{"Case insensitive", []string{"API", " billing"}, []string{"api", "billing"}, true},
		{"Blank entries dropped", []string{"api", "  "}, []string{"api"}, true},
		{"Trimmed duplicates count", []string{"api", " API"}, []string{"api"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameKeywords(tt.a, tt.b))
		})
	}
}

func TestNewStore_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewStore(t.TempDir(), 0).TTL())
	assert.Equal(t, 2*time.Hour, NewStore(t.TempDir(), 2*time.Hour).TTL())
}

func TestIssuesCache_RoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), 24*time.Hour)
	issues := testIssues()

	require.NoError(t, store.WriteIssues(issues, testFP, testNow))

	status := store.CheckIssues(testFP, testNow.Add(time.Hour))
	require.True(t, status.Valid())
	assert.Equal(t, 2, status.Metadata.IssueCount)
	assert.Empty(t, status.Metadata.RelevanceKeywords)

	got := store.ReadIssues(testFP, testNow.Add(time.Hour))
	assert.Equal(t, issues, got)
}

func TestIssuesCache_Invalidation(t *testing.T) {
	store := NewStore(t.TempDir(), 24*time.Hour)
	require.NoError(t, store.WriteIssues(testIssues(), testFP, testNow))

	assert.Nil(t, store.ReadIssues(testFP, testNow.Add(25*time.Hour)))
	assert.Equal(t, ReasonExpired, store.CheckIssues(testFP, testNow.Add(25*time.Hour)).Reason)

	other := Fingerprint{TeamID: "team-2", BacklogStateID: testFP.BacklogStateID}
	assert.Nil(t, store.ReadIssues(other, testNow))
	assert.Equal(t, ReasonKeyMismatch, store.CheckIssues(other, testNow).Reason)

	// keyword changes never invalidate the raw issues cache
	reworded := Fingerprint{TeamID: testFP.TeamID, BacklogStateID: testFP.BacklogStateID, Keywords: []string{"ux"}}
	assert.NotNil(t, store.ReadIssues(reworded, testNow))
}

func TestScoringCache_RoundTripIgnoringExpiry(t *testing.T) {
	store := NewStore(t.TempDir(), time.Hour)
	scored := testScored()

	require.NoError(t, store.WriteScoredIssues(scored, testFP, testNow))

	got := store.ReadScoredIssues(testFP, testNow.Add(48*time.Hour), true)
	assert.Equal(t, scored, got)

	assert.Nil(t, store.ReadScoredIssues(testFP, testNow.Add(48*time.Hour), false))
}

func TestScoringCache_PreviousRanking(t *testing.T) {
	store := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, store.WriteScoredIssues(testScored(), testFP, testNow))
	later := testNow.Add(48 * time.Hour)

	tests := []struct {
		name    string
		fp      Fingerprint
		wantLen int
	}{
		{"Same key and keywords", testFP, 2},
		{"Different keywords", Fingerprint{TeamID: testFP.TeamID, BacklogStateID: testFP.BacklogStateID, Keywords: []string{"ux"}}, 2},
		{"Other team", Fingerprint{TeamID: "team-2", BacklogStateID: testFP.BacklogStateID, Keywords: testFP.Keywords}, 0},
		{"Other state", Fingerprint{TeamID: testFP.TeamID, BacklogStateID: "state-todo", Keywords: testFP.Keywords}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, store.ReadScoredIssues(tt.fp, later, true), tt.wantLen)
		})
	}
}

func TestScoringCache_KeywordFingerprint(t *testing.T) {
	store := NewStore(t.TempDir(), 24*time.Hour)
	require.NoError(t, store.WriteScoredIssues(testScored(), testFP, testNow))

	reordered := Fingerprint{TeamID: testFP.TeamID, BacklogStateID: testFP.BacklogStateID, Keywords: []string{"api", "billing"}}
	assert.True(t, store.CheckScoring(reordered, testNow).Valid())
	assert.Len(t, store.ReadScoredIssues(reordered, testNow, false), 2)

	added := Fingerprint{TeamID: testFP.TeamID, BacklogStateID: testFP.BacklogStateID, Keywords: []string{"api", "billing", "ux"}}
	status := store.CheckScoring(added, testNow)
	assert.Equal(t, ReasonKeywordsMismatch, status.Reason)
	assert.Nil(t, store.ReadScoredIssues(added, testNow, false))
}

func TestCheck_Missing(t *testing.T) {
	store := NewStore(t.TempDir(), time.Hour)

	assert.Equal(t, ReasonMissing, store.CheckIssues(testFP, testNow).Reason)
	assert.Equal(t, ReasonMissing, store.CheckScoring(testFP, testNow).Reason)
	assert.Nil(t, store.ReadIssues(testFP, testNow))
	assert.Nil(t, store.ReadScoredIssues(testFP, testNow, true))
}

func TestCheck_MetadataWithoutSnapshot(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, time.Hour)
	require.NoError(t, store.WriteIssues(testIssues(), testFP, testNow))
	require.NoError(t, os.Remove(filepath.Join(dir, issuesFile)))

	assert.Equal(t, ReasonMissing, store.CheckIssues(testFP, testNow).Reason)
}

func TestCheck_MalformedMetadata(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, time.Hour)
	require.NoError(t, store.WriteScoredIssues(testScored(), testFP, testNow))
	require.NoError(t, os.WriteFile(filepath.Join(dir, scoringMetadataFile), []byte("{not json"), 0o644))

	assert.Equal(t, ReasonMalformed, store.CheckScoring(testFP, testNow).Reason)
	assert.Nil(t, store.ReadScoredIssues(testFP, testNow, false))
	assert.Nil(t, store.ReadScoredIssues(testFP, testNow, true))
}

func TestRead_MalformedSnapshot(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, time.Hour)
	require.NoError(t, store.WriteIssues(testIssues(), testFP, testNow))
	require.NoError(t, os.WriteFile(filepath.Join(dir, issuesFile), []byte("[{"), 0o644))

	assert.True(t, store.CheckIssues(testFP, testNow).Valid())
	assert.Nil(t, store.ReadIssues(testFP, testNow))
}

func TestRead_CountMismatch(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, time.Hour)
	require.NoError(t, store.WriteIssues(testIssues(), testFP, testNow))
	require.NoError(t, os.WriteFile(filepath.Join(dir, issuesFile), []byte("[]"), 0o644))

	assert.Nil(t, store.ReadIssues(testFP, testNow))
}

func TestWrite_FailurePropagates(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := NewStore(blocker, time.Hour)
	assert.Error(t, store.WriteIssues(testIssues(), testFP, testNow))
	assert.Error(t, store.WriteScoredIssues(testScored(), testFP, testNow))
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, time.Hour)
	require.NoError(t, store.WriteIssues(testIssues(), testFP, testNow))
	require.NoError(t, store.WriteScoredIssues(testScored(), testFP, testNow))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{issuesFile, issuesMetadataFile, scoringFile, scoringMetadataFile}, names)
}

func TestClear_Independent(t *testing.T) {
	store := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, store.WriteIssues(testIssues(), testFP, testNow))
	require.NoError(t, store.WriteScoredIssues(testScored(), testFP, testNow))

	require.NoError(t, store.ClearIssues())
	assert.Equal(t, ReasonMissing, store.CheckIssues(testFP, testNow).Reason)
	assert.True(t, store.CheckScoring(testFP, testNow).Valid())

	require.NoError(t, store.ClearScoring())
	assert.Equal(t, ReasonMissing, store.CheckScoring(testFP, testNow).Reason)

	// clearing an empty cache is not an error
	assert.NoError(t, store.ClearAll())
}

func TestInfo(t *testing.T) {
	store := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, store.WriteIssues(testIssues(), testFP, testNow))

	info := store.Info(testFP, testNow)
	require.Len(t, info, 2)
	assert.Equal(t, KindIssues, info[0].Kind)
	assert.True(t, info[0].Valid())
	assert.Equal(t, KindScoring, info[1].Kind)
	assert.Equal(t, ReasonMissing, info[1].Reason)
}
