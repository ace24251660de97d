package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/github-ma-intel/internal/models"
)

func testRepo() models.RepositoryRecord {
	return models.RepositoryRecord{
		ID:       1,
		Name:     "repo",
		FullName: "owner/repo",
		Owner:    "owner",
		Language: "Go",
		Stars:    50000,
		Forks:    100,
		License:  "MIT License",
		Topics:   []string{"cli"},
	}
}

func TestExtract_RepositoryWithoutContributors(t *testing.T) {
	fv := NewEngineer().Extract(testRepo(), nil, nil)

	assert.Equal(t, 0.0, fv.ContributorDiversity)
	assert.Equal(t, 0.0, fv.CrossCompanyContributions)
	assert.Equal(t, 0, fv.OrganizationSize)
	assert.InDelta(t, math.Log(50101), fv.NetworkCentrality, 1e-12)
	assert.Equal(t, 0.0, fv.StarsGrowthRate)
	assert.Equal(t, 0.0, fv.CommitFrequency)
	assert.Equal(t, 1.0, fv.LanguageConsistency)
	assert.Equal(t, 0, fv.LicenseChanges)
	assert.Equal(t, 0, fv.TopicChanges)
	require.NoError(t, fv.Validate())
}

func TestExtract_Deterministic(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	history := []models.HistoryPoint{
		{ObservedAt: base, Stars: 40000, Commits: []time.Time{base.Add(-2 * time.Hour), base.Add(-time.Hour)}},
		{ObservedAt: base.Add(24 * time.Hour), Stars: 45000, Commits: []time.Time{base.Add(20 * time.Hour)}},
	}
	contributors := []models.ContributorRecord{
		{Username: "a", Employer: "@Google"},
		{Username: "b", Employer: "Acme"},
	}

	e := NewEngineer()
	first := e.Extract(testRepo(), contributors, history)
	second := e.Extract(testRepo(), contributors, history)
	assert.Equal(t, first, second)
	for i, v := range first.Values() {
		assert.Equal(t, math.Float64bits(v), math.Float64bits(second.Values()[i]))
	}
}

func TestExtract_ContributorMix(t *testing.T) {
	contributors := []models.ContributorRecord{
		{Username: "a", Employer: "@google"},
		{Username: "b", Employer: "Google "},
		{Username: "c", Employer: "Acme Corp"},
		{Username: "d"},
	}

	fv := NewEngineer().Extract(testRepo(), contributors, nil)
	assert.Equal(t, 4, fv.OrganizationSize)
	// google and acme corp
	assert.InDelta(t, 0.5, fv.ContributorDiversity, 1e-12)
	assert.InDelta(t, 0.5, fv.CrossCompanyContributions, 1e-12)
}

func TestExtract_HistoryFeatures(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("stars growth uses the mean of the window", func(t *testing.T) {
		history := []models.HistoryPoint{{Stars: 20000}, {Stars: 30000}}
		fv := NewEngineer().Extract(testRepo(), nil, history)
		assert.InDelta(t, 1.0, fv.StarsGrowthRate, 1e-12)
	})

	t.Run("zero mean stars", func(t *testing.T) {
		fv := NewEngineer().Extract(testRepo(), nil, []models.HistoryPoint{{Stars: 0}})
		assert.Equal(t, 0.0, fv.StarsGrowthRate)
	})

	t.Run("commit frequency floors the gap at one hour", func(t *testing.T) {
		history := []models.HistoryPoint{{Commits: []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)}}}
		fv := NewEngineer().Extract(testRepo(), nil, history)
		assert.Equal(t, 1.0, fv.CommitFrequency)
	})

	t.Run("commit frequency dedupes commits seen twice", func(t *testing.T) {
		history := []models.HistoryPoint{
			{Commits: []time.Time{base, base.Add(4 * time.Hour)}},
			{Commits: []time.Time{base.Add(4 * time.Hour), base.Add(8 * time.Hour)}},
		}
		fv := NewEngineer().Extract(testRepo(), nil, history)
		assert.InDelta(t, 0.25, fv.CommitFrequency, 1e-12)
	})

	t.Run("single commit", func(t *testing.T) {
		fv := NewEngineer().Extract(testRepo(), nil, []models.HistoryPoint{{Commits: []time.Time{base}}})
		assert.Equal(t, 0.0, fv.CommitFrequency)
	})

	t.Run("recent activity counts commit days in the last week", func(t *testing.T) {
		observed := base.Add(10 * 24 * time.Hour)
		var history []models.HistoryPoint
		for i := 0; i < 8; i++ {
			history = append(history, models.HistoryPoint{
				ObservedAt: observed.Add(time.Duration(i-7) * 30 * time.Minute),
				Commits: []time.Time{
					observed.Add(-1 * time.Hour),
					observed.Add(-3 * time.Hour),
					observed.Add(-2*24*time.Hour - time.Hour),
					observed.Add(-5 * 24 * time.Hour),
					observed.Add(-9 * 24 * time.Hour),
				},
			})
		}
		fv := NewEngineer().Extract(testRepo(), nil, history)
		assert.InDelta(t, 3.0/7.0, fv.RecentActivityScore, 1e-12)
	})

	t.Run("recent activity ignores old commits repeated across points", func(t *testing.T) {
		observed := base.Add(90 * 24 * time.Hour)
		old := observed.Add(-60 * 24 * time.Hour)
		var history []models.HistoryPoint
		for i := 0; i < 7; i++ {
			history = append(history, models.HistoryPoint{
				ObservedAt: observed.Add(time.Duration(i) * 30 * time.Minute),
				Commits:    []time.Time{old},
			})
		}
		fv := NewEngineer().Extract(testRepo(), nil, history)
		assert.Equal(t, 0.0, fv.RecentActivityScore)
	})

	t.Run("language consistency", func(t *testing.T) {
		history := []models.HistoryPoint{{Language: "C"}, {Language: "Go"}, {}, {Language: "Go"}}
		fv := NewEngineer().Extract(testRepo(), nil, history)
		assert.InDelta(t, 2.0/3.0, fv.LanguageConsistency, 1e-12)
	})

	t.Run("license and topic transitions", func(t *testing.T) {
		history := []models.HistoryPoint{
			{License: "Apache License 2.0", Topics: []string{"cli"}},
			{License: "Apache License 2.0", Topics: []string{"tooling", "cli"}},
			{License: "MIT License", Topics: []string{"cli", "tooling"}},
		}
		fv := NewEngineer().Extract(testRepo(), nil, history)
		assert.Equal(t, 1, fv.LicenseChanges)
		// adding "tooling" then dropping it; reordering is not a change
		assert.Equal(t, 2, fv.TopicChanges)
	})
}

func TestNormalizeEmployer(t *testing.T) {
	assert.Equal(t, "google", NormalizeEmployer("  @Google "))
	assert.Equal(t, "", NormalizeEmployer(" @ "))
	assert.True(t, NewEngineer().IsLargeEmployer("@microsoft"))
	assert.False(t, NewEngineer("Acme").IsLargeEmployer("Google"))
}
