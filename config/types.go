package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Instance InstanceConfig `mapstructure:"instance"`
	Auth     AuthConfig     `mapstructure:"auth"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// InstanceConfig identifies the org and the referral program
type InstanceConfig struct {
	URL        string `mapstructure:"url"`
	APIVersion string `mapstructure:"api_version"`
	Program    string `mapstructure:"program"`
}

// AuthConfig holds connected app credentials. AccessToken, when set, is
// used as a static session token and the OAuth flow is skipped.
type AuthConfig struct {
	LoginURL     string   `mapstructure:"login_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
	AccessToken  string   `mapstructure:"access_token"`
	TokenStore   string   `mapstructure:"token_store"`
}

// HTTPConfig configures the transport
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// BatchConfig configures batch event submission
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// FilterConfig contains named event filter expressions
type FilterConfig map[string]string

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
