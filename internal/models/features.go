package models

import (
	"fmt"
	"math"
	"time"
)

// FeatureNames lists the features in the order used by Values
var FeatureNames = []string{
	"stars_growth_rate",
	"contributor_diversity",
	"commit_frequency",
	"cross_company_contributions",
	"language_consistency",
	"organization_size",
	"recent_activity_score",
	"network_centrality",
	"license_changes",
	"topic_changes",
}

// FeatureVector is the numeric summary of one repository at one point in time
type FeatureVector struct {
	RepoID                    int64   `json:"repo_id"`
	StarsGrowthRate           float64 `json:"stars_growth_rate"`
	ContributorDiversity      float64 `json:"contributor_diversity"`
	CommitFrequency           float64 `json:"commit_frequency"`
	CrossCompanyContributions float64 `json:"cross_company_contributions"`
	LanguageConsistency       float64 `json:"language_consistency"`
	OrganizationSize          int     `json:"organization_size"`
	RecentActivityScore       float64 `json:"recent_activity_score"`
	NetworkCentrality         float64 `json:"network_centrality"`
	LicenseChanges            int     `json:"license_changes"`
	TopicChanges              int     `json:"topic_changes"`
}

// Values returns the features as a slice ordered like FeatureNames
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.StarsGrowthRate,
		f.ContributorDiversity,
		f.CommitFrequency,
		f.CrossCompanyContributions,
		f.LanguageConsistency,
		float64(f.OrganizationSize),
		f.RecentActivityScore,
		f.NetworkCentrality,
		float64(f.LicenseChanges),
		float64(f.TopicChanges),
	}
}

// Validate rejects vectors carrying NaN or infinite values
func (f FeatureVector) Validate() error {
	for i, v := range f.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("feature %s of repo %d is not finite: %v", FeatureNames[i], f.RepoID, v)
		}
	}
	return nil
}

// HistoryPoint is one past observation of a repository, oldest first in a history slice
type HistoryPoint struct {
	ObservedAt time.Time   `json:"observed_at"`
	Stars      int         `json:"stars"`
	Forks      int         `json:"forks"`
	Language   string      `json:"language,omitempty"`
	License    string      `json:"license,omitempty"`
	Topics     []string    `json:"topics,omitempty"`
	Commits    []time.Time `json:"commits,omitempty"`
}
