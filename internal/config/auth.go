package config

import "time"

// AuthConfig holds the admin login settings. Login stays disabled until both
// a password and a signing secret are configured.
type AuthConfig struct {
	Username  string
	Password  string
	JWTSecret string
	TokenTTL  time.Duration
}

// DefaultAuthConfig returns the default admin login configuration
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		Username: "admin",
		TokenTTL: time.Hour,
	}
}

// LoginEnabled reports whether tokens can be issued
func (c *AuthConfig) LoginEnabled() bool {
	return c.Password != "" && c.JWTSecret != ""
}
