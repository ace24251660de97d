package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string
	LogLevel           string
	DataDir            string
	DBConnectionString string
	AdminToken         string
	Auth               *AuthConfig
	GitHub             *GitHubConfig
	Collector          *CollectorConfig
	Cache              *CacheConfig
	Scheduler          *SchedulerConfig
	Analysis           *AnalysisConfig
}

// ArchiveDir is where per-cycle snapshot and analysis files are written
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.DataDir, "cycles")
}

// HistoryPath is the bbolt file used when no database is configured
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// Load reads the configuration from the environment, falling back to defaults
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads the configuration through the given viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	gh := DefaultGitHubConfig()
	col := DefaultCollectorConfig()
	cc := DefaultCacheConfig()
	sc := DefaultSchedulerConfig()
	ac := DefaultAnalysisConfig()
	auth := DefaultAuthConfig()

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("GITHUB_API_URL", gh.APIBaseURL)
	v.SetDefault("GITHUB_MAX_RETRIES", gh.RateLimit.MaxRetries)
	v.SetDefault("GITHUB_INITIAL_BACKOFF", gh.RateLimit.InitialBackoff)
	v.SetDefault("GITHUB_MAX_BACKOFF", gh.RateLimit.MaxBackoff)
	v.SetDefault("GITHUB_MAX_RATE_LIMIT_WAIT", gh.RateLimit.MaxRateLimitWait)
	v.SetDefault("GITHUB_REQUEST_TIMEOUT", gh.RateLimit.RequestTimeout)
	v.SetDefault("MIN_STARS", col.MinStars)
	v.SetDefault("TOP_REPOSITORIES", col.TopRepositories)
	v.SetDefault("CONTRIBUTOR_REPOSITORIES", col.ContributorRepos)
	v.SetDefault("MAX_CONTRIBUTORS", col.MaxContributors)
	v.SetDefault("ORG_WATCHLIST", strings.Join(col.OrgWatchlist, ","))
	v.SetDefault("ORG_LIMIT", col.OrgLimit)
	v.SetDefault("COMMIT_WINDOW", col.CommitWindow)
	v.SetDefault("REQUEST_SPACING", col.RequestSpacing)
	v.SetDefault("SNAPSHOT_TTL", cc.SnapshotTTL)
	v.SetDefault("ANALYSIS_TTL", cc.AnalysisTTL)
	v.SetDefault("COMPUTE_TIMEOUT", cc.ComputeTimeout)
	v.SetDefault("REFRESH_INTERVAL", sc.Interval)
	v.SetDefault("REFRESH_ON_STARTUP", sc.RunOnStartup)
	v.SetDefault("MAX_ANALYZED", ac.MaxAnalyzed)
	v.SetDefault("MAX_PREDICTED", ac.MaxPredicted)
	v.SetDefault("BASELINE_SIZE", ac.BaselineSize)
	v.SetDefault("ADMIN_USERNAME", auth.Username)
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRES", auth.TokenTTL)
	v.AutomaticEnv()

	gh.Token = v.GetString("GITHUB_TOKEN")
	gh.APIBaseURL = strings.TrimRight(v.GetString("GITHUB_API_URL"), "/")
	gh.RateLimit.MaxRetries = v.GetInt("GITHUB_MAX_RETRIES")
	gh.RateLimit.InitialBackoff = v.GetDuration("GITHUB_INITIAL_BACKOFF")
	gh.RateLimit.MaxBackoff = v.GetDuration("GITHUB_MAX_BACKOFF")
	gh.RateLimit.MaxRateLimitWait = v.GetDuration("GITHUB_MAX_RATE_LIMIT_WAIT")
	gh.RateLimit.RequestTimeout = v.GetDuration("GITHUB_REQUEST_TIMEOUT")

	col.MinStars = v.GetInt("MIN_STARS")
	col.TopRepositories = v.GetInt("TOP_REPOSITORIES")
	col.ContributorRepos = v.GetInt("CONTRIBUTOR_REPOSITORIES")
	col.MaxContributors = v.GetInt("MAX_CONTRIBUTORS")
	col.OrgWatchlist = splitList(v.GetString("ORG_WATCHLIST"))
	col.OrgLimit = v.GetInt("ORG_LIMIT")
	col.CommitWindow = v.GetDuration("COMMIT_WINDOW")
	col.RequestSpacing = v.GetDuration("REQUEST_SPACING")

	cc.SnapshotTTL = v.GetDuration("SNAPSHOT_TTL")
	cc.AnalysisTTL = v.GetDuration("ANALYSIS_TTL")
	cc.ComputeTimeout = v.GetDuration("COMPUTE_TIMEOUT")

	sc.Interval = v.GetDuration("REFRESH_INTERVAL")
	sc.RunOnStartup = v.GetBool("REFRESH_ON_STARTUP")

	ac.MaxAnalyzed = v.GetInt("MAX_ANALYZED")
	ac.MaxPredicted = v.GetInt("MAX_PREDICTED")
	ac.BaselineSize = v.GetInt("BASELINE_SIZE")
	ac.LabelsPath = v.GetString("ACQUISITION_LABELS_PATH")

	auth.Username = v.GetString("ADMIN_USERNAME")
	auth.Password = v.GetString("ADMIN_PASSWORD")
	auth.JWTSecret = v.GetString("JWT_SECRET_KEY")
	auth.TokenTTL = v.GetDuration("JWT_ACCESS_TOKEN_EXPIRES")

	cfg := &Config{
		Port:               v.GetString("PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		DataDir:            v.GetString("DATA_DIR"),
		DBConnectionString: v.GetString("DB_CONNECTION_STRING"),
		AdminToken:         v.GetString("ADMIN_TOKEN"),
		Auth:               auth,
		GitHub:             gh,
		Collector:          col,
		Cache:              cc,
		Scheduler:          sc,
		Analysis:           ac,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Scheduler.Interval < time.Second {
		return fmt.Errorf("REFRESH_INTERVAL must be at least 1s, got %v", c.Scheduler.Interval)
	}
	if c.Cache.SnapshotTTL <= 0 || c.Cache.AnalysisTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Collector.TopRepositories <= 0 {
		return fmt.Errorf("TOP_REPOSITORIES must be positive, got %d", c.Collector.TopRepositories)
	}
	if c.Auth.LoginEnabled() && c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TOKEN_EXPIRES must be positive, got %v", c.Auth.TokenTTL)
	}
	if c.GitHub.RateLimit.MaxRetries <= 0 {
		return fmt.Errorf("GITHUB_MAX_RETRIES must be positive, got %d", c.GitHub.RateLimit.MaxRetries)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
