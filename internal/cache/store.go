// Package cache persists fetched and scored issues between runs.
//
// Two caches live side by side in one directory: the issues cache holds the
// raw backlog as fetched from the tracker, the scoring cache holds the ranked
// result. Each is a pair of JSON files, a data snapshot and a metadata stamp,
// and each is validated independently against the current run's fingerprint.
//
// The directory is owned by a single run at a time; there is no file locking.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/pkg/models"
)

const (
	issuesFile          = "issues.json"
	issuesMetadataFile  = "issues_metadata.json"
	scoringFile         = "scored_issues.json"
	scoringMetadataFile = "scoring_metadata.json"

	dirPerms  = 0o755
	filePerms = 0o644
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Kind names one of the two caches.
type Kind string

const (
	KindIssues  Kind = "issues"
	KindScoring Kind = "scoring"
)

// Metadata is the stamp stored next to each snapshot.
type Metadata struct {
	LastUpdated       time.Time `json:"lastUpdated"`
	TeamID            string    `json:"teamId"`
	BacklogStateID    string    `json:"backlogStateId"`
	IssueCount        int       `json:"issueCount"`
	RelevanceKeywords []string  `json:"relevanceKeywords,omitempty"`
}

// Fingerprint is what a snapshot is validated against.
type Fingerprint struct {
	TeamID         string
	BacklogStateID string
	Keywords       []string
}

// Reason explains a validity decision.
type Reason string

const (
	ReasonValid            Reason = "valid"
	ReasonMissing          Reason = "missing"
	ReasonMalformed        Reason = "malformed"
	ReasonKeyMismatch      Reason = "key_mismatch"
	ReasonExpired          Reason = "expired"
	ReasonKeywordsMismatch Reason = "keywords_mismatch"
)

// Status is the result of a validity check.
type Status struct {
	Kind     Kind
	Reason   Reason
	Metadata *Metadata
}

// Valid reports whether the cache can be used.
func (s Status) Valid() bool {
	return s.Reason == ReasonValid
}

// Evaluate is the validity predicate shared by both caches. The snapshot is
// valid when the team and backlog state match and it is younger than ttl.
// When checkKeywords is set the stored keywords must also equal the
// fingerprint's keywords as a multiset.
func Evaluate(meta Metadata, fp Fingerprint, ttl time.Duration, now time.Time, checkKeywords bool) Reason {
	if meta.TeamID != fp.TeamID || meta.BacklogStateID != fp.BacklogStateID {
		return ReasonKeyMismatch
	}
	if now.Sub(meta.LastUpdated) >= ttl {
		return ReasonExpired
	}
	if checkKeywords && !SameKeywords(meta.RelevanceKeywords, fp.Keywords) {
		return ReasonKeywordsMismatch
	}
	return ReasonValid
}

// SameKeywords compares two keyword lists the way relevance scoring sees
// them: order, case and surrounding whitespace are ignored, blank entries are
// dropped, duplicates count.
func SameKeywords(a, b []string) bool {
	return slices.Equal(normalizeKeywords(a), normalizeKeywords(b))
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Store manages the cache files in a directory.
type Store struct {
	dir string
	ttl time.Duration
}

// NewStore creates a store rooted at dir. A non-positive ttl selects DefaultTTL.
func NewStore(dir string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{dir: dir, ttl: ttl}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// CheckIssues validates the issues cache.
func (s *Store) CheckIssues(fp Fingerprint, now time.Time) Status {
	return s.check(KindIssues, fp, now)
}

// CheckScoring validates the scoring cache, including the keyword set.
func (s *Store) CheckScoring(fp Fingerprint, now time.Time) Status {
	return s.check(KindScoring, fp, now)
}

func (s *Store) check(kind Kind, fp Fingerprint, now time.Time) Status {
	dataPath, metaPath := s.paths(kind)

	if !exists(dataPath) || !exists(metaPath) {
		return Status{Kind: kind, Reason: ReasonMissing}
	}

	meta, err := readJSON[Metadata](metaPath)
	if err != nil {
		logging.With("cache").Warn("failed to read cache metadata", "cache", kind, "path", metaPath, "error", err)
		return Status{Kind: kind, Reason: ReasonMalformed}
	}

	reason := Evaluate(meta, fp, s.ttl, now, kind == KindScoring)
	return Status{Kind: kind, Reason: reason, Metadata: &meta}
}

// ReadIssues returns the cached backlog, or nil when the cache is missing,
// malformed or invalid for fp.
func (s *Store) ReadIssues(fp Fingerprint, now time.Time) []models.Issue {
	log := logging.With("cache")

	status := s.CheckIssues(fp, now)
	if !status.Valid() {
		log.Debug("issues cache not usable", "reason", status.Reason)
		return nil
	}
	dataPath, _ := s.paths(KindIssues)
	issues, err := readSnapshot[models.Issue](dataPath, status.Metadata.IssueCount)
	if err != nil {
		log.Warn("failed to read issues cache", "error", err)
		return nil
	}
	return issues
}

// ReadScoredIssues returns the cached ranking, or nil when it is missing,
// malformed or invalid for fp. With ignoreExpiry the TTL and keyword checks
// are skipped but the snapshot must still belong to fp's team and backlog
// state; this is used to compare a previous ranking with a fresh one.
func (s *Store) ReadScoredIssues(fp Fingerprint, now time.Time, ignoreExpiry bool) []models.ScoredIssue {
	log := logging.With("cache")

	status := s.CheckScoring(fp, now)
	if ignoreExpiry {
		if !comparableRanking(status) {
			log.Debug("no comparable ranking in scoring cache", "reason", status.Reason)
			return nil
		}
	} else if !status.Valid() {
		log.Debug("scoring cache not usable", "reason", status.Reason)
		return nil
	}

	dataPath, _ := s.paths(KindScoring)
	scored, err := readSnapshot[models.ScoredIssue](dataPath, status.Metadata.IssueCount)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("failed to read scoring cache", "error", err)
		}
		return nil
	}
	return scored
}

// comparableRanking reports whether a scoring snapshot may serve as the previous
// ranking: stale or differently keyed rankings qualify, other teams' do not.
func comparableRanking(status Status) bool {
	if status.Metadata == nil {
		return false
	}
	switch status.Reason {
	case ReasonValid, ReasonExpired, ReasonKeywordsMismatch:
		return true
	default:
		return false
	}
}

// WriteIssues replaces the issues cache.
func (s *Store) WriteIssues(issues []models.Issue, fp Fingerprint, now time.Time) error {
	meta := Metadata{
		LastUpdated:    now.UTC(),
		TeamID:         fp.TeamID,
		BacklogStateID: fp.BacklogStateID,
		IssueCount:     len(issues),
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	return s.write(KindIssues, issues, meta)
}

// WriteScoredIssues replaces the scoring cache, stamping it with the keyword set.
func (s *Store) WriteScoredIssues(scored []models.ScoredIssue, fp Fingerprint, now time.Time) error {
	meta := Metadata{
		LastUpdated:       now.UTC(),
		TeamID:            fp.TeamID,
		BacklogStateID:    fp.BacklogStateID,
		IssueCount:        len(scored),
		RelevanceKeywords: fp.Keywords,
	}
	if scored == nil {
		scored = []models.ScoredIssue{}
	}
	return s.write(KindScoring, scored, meta)
}

// write stages both files before renaming either so a failed marshal or
// write leaves the previous snapshot untouched. The snapshot is renamed
// before the metadata; a reader that sees new metadata always sees new data.
func (s *Store) write(kind Kind, data any, meta Metadata) error {
	if err := os.MkdirAll(s.dir, dirPerms); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", s.dir, err)
	}

	dataPath, metaPath := s.paths(kind)

	dataTmp, err := writeTemp(dataPath, data)
	if err != nil {
		return fmt.Errorf("failed to write %s cache: %w", kind, err)
	}
	metaTmp, err := writeTemp(metaPath, meta)
	if err != nil {
		os.Remove(dataTmp)
		return fmt.Errorf("failed to write %s cache metadata: %w", kind, err)
	}

	if err := os.Rename(dataTmp, dataPath); err != nil {
		os.Remove(dataTmp)
		os.Remove(metaTmp)
		return fmt.Errorf("failed to replace %s cache: %w", kind, err)
	}
	if err := os.Rename(metaTmp, metaPath); err != nil {
		os.Remove(metaTmp)
		return fmt.Errorf("failed to replace %s cache metadata: %w", kind, err)
	}

	logging.With("cache").Debug("cache written", "cache", kind, "issue_count", meta.IssueCount, "path", dataPath)
	return nil
}

// ClearIssues deletes the issues cache. The scoring cache is left alone.
func (s *Store) ClearIssues() error {
	return s.clear(KindIssues)
}

// ClearScoring deletes the scoring cache.
func (s *Store) ClearScoring() error {
	return s.clear(KindScoring)
}

// ClearAll deletes both caches.
func (s *Store) ClearAll() error {
	return errors.Join(s.ClearIssues(), s.ClearScoring())
}

func (s *Store) clear(kind Kind) error {
	dataPath, metaPath := s.paths(kind)
	var errs []error
	for _, p := range []string{dataPath, metaPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", p, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	logging.With("cache").Debug("cache cleared", "cache", kind)
	return nil
}

// Info reports the state of both caches for display.
func (s *Store) Info(fp Fingerprint, now time.Time) []Status {
	return []Status{s.CheckIssues(fp, now), s.CheckScoring(fp, now)}
}

func (s *Store) paths(kind Kind) (string, string) {
	if kind == KindScoring {
		return filepath.Join(s.dir, scoringFile), filepath.Join(s.dir, scoringMetadataFile)
	}
	return filepath.Join(s.dir, issuesFile), filepath.Join(s.dir, issuesMetadataFile)
}

// readSnapshot loads a snapshot; expected < 0 skips the count check.
func readSnapshot[T any](dataPath string, expected int) ([]T, error) {
	items, err := readJSON[[]T](dataPath)
	if err != nil {
		return nil, err
	}
	if expected >= 0 && len(items) != expected {
		return nil, fmt.Errorf("snapshot %s holds %d issues, metadata says %d", dataPath, len(items), expected)
	}
	return items, nil
}

func readJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}

func writeTemp(path string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), ".json")+"-*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Chmod(tmp, filePerms); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
