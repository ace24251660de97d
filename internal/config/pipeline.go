package config

import "time"

// CollectorConfig bounds the breadth of one collection cycle
type CollectorConfig struct {
	MinStars         int
	TopRepositories  int
	ContributorRepos int
	MaxContributors  int
	OrgWatchlist     []string
	OrgLimit         int
	CommitWindow     time.Duration
	RequestSpacing   time.Duration
}

// CacheConfig holds the TTLs of the cached keys
type CacheConfig struct {
	SnapshotTTL    time.Duration
	AnalysisTTL    time.Duration
	ComputeTimeout time.Duration
}

// SchedulerConfig holds the background refresh configuration
type SchedulerConfig struct {
	Interval     time.Duration
	QueueSize    int
	RunOnStartup bool
}

// AnalysisConfig bounds the analysis stage
type AnalysisConfig struct {
	MaxAnalyzed     int
	MaxPredicted    int
	HistoryLimit    int
	BaselineSize    int
	BaselineSeedRun int
	LabelsPath      string
}

// DefaultCollectorConfig returns the default collector configuration
func DefaultCollectorConfig() *CollectorConfig {
	return &CollectorConfig{
		MinStars:         10000,
		TopRepositories:  50,
		ContributorRepos: 20,
		MaxContributors:  100,
		OrgWatchlist:     []string{"microsoft", "google", "meta", "amazon", "apple", "netflix"},
		OrgLimit:         10,
		CommitWindow:     90 * 24 * time.Hour,
		RequestSpacing:   200 * time.Millisecond,
	}
}

// DefaultCacheConfig returns the default cache configuration
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		SnapshotTTL:    5 * time.Minute,
		AnalysisTTL:    10 * time.Minute,
		ComputeTimeout: 45 * time.Minute,
	}
}

// DefaultSchedulerConfig returns the default scheduler configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Interval:     30 * time.Minute,
		QueueSize:    1,
		RunOnStartup: true,
	}
}

// DefaultAnalysisConfig returns the default analysis configuration
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		MaxAnalyzed:     20,
		MaxPredicted:    10,
		HistoryLimit:    90,
		BaselineSize:    1000,
		BaselineSeedRun: 10,
	}
}
