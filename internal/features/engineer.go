// Package features turns a collected repository and its recent history into
// a fixed-shape numeric vector.
package features

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

const (
	starsWindow    = 30
	commitWindow   = 90
	activityWindow = 7
)

// DefaultLargeEmployers is the set of employers counted as large technology companies
var DefaultLargeEmployers = []string{"Google", "Microsoft", "Meta", "Amazon", "Apple", "Netflix", "Tesla"}

// Engineer extracts feature vectors. It holds no mutable state, so one
// Engineer can be shared between goroutines.
type Engineer struct {
	largeEmployers map[string]struct{}
}

// NewEngineer returns an Engineer using the given large-employer names, or
// DefaultLargeEmployers when none are given.
func NewEngineer(largeEmployers ...string) *Engineer {
	if len(largeEmployers) == 0 {
		largeEmployers = DefaultLargeEmployers
	}
	set := make(map[string]struct{}, len(largeEmployers))
	for _, name := range largeEmployers {
		if n := NormalizeEmployer(name); n != "" {
			set[n] = struct{}{}
		}
	}
	return &Engineer{largeEmployers: set}
}

// IsLargeEmployer reports whether the employer belongs to the large-employer set
func (e *Engineer) IsLargeEmployer(employer string) bool {
	_, ok := e.largeEmployers[NormalizeEmployer(employer)]
	return ok
}

// NormalizeEmployer trims a free-form company field, drops a leading "@"
// and folds case, so "@Google " and "google" compare equal.
func NormalizeEmployer(employer string) string {
	employer = strings.TrimSpace(employer)
	employer = strings.TrimPrefix(employer, "@")
	return strings.ToLower(strings.TrimSpace(employer))
}

// Extract computes the feature vector of repo. history is ordered oldest
// first. Extract never reads the clock and never mutates its inputs.
func (e *Engineer) Extract(repo models.RepositoryRecord, contributors []models.ContributorRecord, history []models.HistoryPoint) models.FeatureVector {
	fv := models.FeatureVector{
		RepoID:              repo.ID,
		StarsGrowthRate:     starsGrowthRate(repo.Stars, tail(history, starsWindow)),
		CommitFrequency:     commitFrequency(tail(history, commitWindow)),
		RecentActivityScore: recentActivity(tail(history, commitWindow)),
		LanguageConsistency: languageConsistency(repo.Language, history),
		OrganizationSize:    len(contributors),
		NetworkCentrality:   math.Log1p(float64(repo.Stars + repo.Forks + repo.Watchers)),
		LicenseChanges:      licenseChanges(repo, history),
		TopicChanges:        topicChanges(repo, history),
	}
	fv.ContributorDiversity, fv.CrossCompanyContributions = e.contributorMix(contributors)
	return fv
}

func (e *Engineer) contributorMix(contributors []models.ContributorRecord) (diversity, crossCompany float64) {
	if len(contributors) == 0 {
		return 0, 0
	}
	employers := make(map[string]struct{})
	large := 0
	for _, c := range contributors {
		n := NormalizeEmployer(c.Employer)
		if n == "" {
			continue
		}
		employers[n] = struct{}{}
		if _, ok := e.largeEmployers[n]; ok {
			large++
		}
	}
	total := float64(len(contributors))
	return float64(len(employers)) / total, float64(large) / total
}

func tail(history []models.HistoryPoint, n int) []models.HistoryPoint {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func starsGrowthRate(current int, window []models.HistoryPoint) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, p := range window {
		sum += float64(p.Stars)
	}
	mean := sum / float64(len(window))
	if mean == 0 {
		return 0
	}
	return (float64(current) - mean) / mean
}

// commitFrequency is commits per hour over distinct commit timestamps,
// with the mean gap floored at one hour.
func commitFrequency(window []models.HistoryPoint) float64 {
	seen := make(map[int64]struct{})
	var commits []time.Time
	for _, p := range window {
		for _, c := range p.Commits {
			key := c.UnixNano()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			commits = append(commits, c)
		}
	}
	if len(commits) < 2 {
		return 0
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].Before(commits[j]) })

	// the mean of consecutive gaps telescopes to span / (n-1)
	span := commits[len(commits)-1].Sub(commits[0]).Hours()
	meanGap := span / float64(len(commits)-1)
	return 1 / math.Max(meanGap, 1)
}

// recentActivity is the share of the activityWindow days before the newest
// observation that saw at least one commit. Days are counted back from that
// observation in 24h steps.
func recentActivity(window []models.HistoryPoint) float64 {
	var anchor time.Time
	for _, p := range window {
		if p.ObservedAt.After(anchor) {
			anchor = p.ObservedAt
		}
	}
	if anchor.IsZero() {
		return 0
	}

	days := make(map[int64]struct{})
	for _, p := range window {
		for _, c := range p.Commits {
			if c.After(anchor) {
				continue
			}
			back := int64(anchor.Sub(c) / (24 * time.Hour))
			if back < activityWindow {
				days[back] = struct{}{}
			}
		}
	}
	return math.Min(float64(len(days))/activityWindow, 1)
}

func languageConsistency(current string, history []models.HistoryPoint) float64 {
	tracked, same := 0, 0
	for _, p := range history {
		if p.Language == "" {
			continue
		}
		tracked++
		if p.Language == current {
			same++
		}
	}
	if tracked == 0 {
		return 1
	}
	return float64(same) / float64(tracked)
}

func licenseChanges(repo models.RepositoryRecord, history []models.HistoryPoint) int {
	if len(history) == 0 {
		return 0
	}
	changes := 0
	prev := history[0].License
	for _, p := range history[1:] {
		if p.License != prev {
			changes++
		}
		prev = p.License
	}
	if repo.License != prev {
		changes++
	}
	return changes
}

func topicChanges(repo models.RepositoryRecord, history []models.HistoryPoint) int {
	if len(history) == 0 {
		return 0
	}
	changes := 0
	prev := topicKey(history[0].Topics)
	for _, p := range history[1:] {
		key := topicKey(p.Topics)
		if key != prev {
			changes++
		}
		prev = key
	}
	if topicKey(repo.Topics) != prev {
		changes++
	}
	return changes
}

func topicKey(topics []string) string {
	sorted := append([]string(nil), topics...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
