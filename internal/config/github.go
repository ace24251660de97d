package config

import "time"

// GitHubConfig holds GitHub-specific configuration
type GitHubConfig struct {
	Token      string
	APIBaseURL string
	RateLimit  RateLimitConfig
}

// RateLimitConfig holds rate limit configuration
type RateLimitConfig struct {
	MaxRetries       int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	MaxRateLimitWait time.Duration
	RequestTimeout   time.Duration
}

// DefaultGitHubConfig returns the default GitHub configuration
func DefaultGitHubConfig() *GitHubConfig {
	return &GitHubConfig{
		APIBaseURL: "https://api.github.com",
		RateLimit: RateLimitConfig{
			MaxRetries:       3,
			InitialBackoff:   time.Second,
			MaxBackoff:       30 * time.Second,
			MaxRateLimitWait: 15 * time.Minute,
			RequestTimeout:   30 * time.Second,
		},
	}
}
