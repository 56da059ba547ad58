package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/s0up4200/referral/referral"
)

// EnvPrefix prefixes every environment variable, e.g. REFERRAL_AUTH_CLIENT_ID.
const EnvPrefix = "REFERRAL"

// Load loads the configuration from file, .env and environment. Without an
// explicit path a missing config file is not an error.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".referral"))
		}
		v.AddConfigPath("/etc/referral/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultTokenStore is where tokens are persisted unless configured otherwise.
func DefaultTokenStore() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "referral", "tokens.db")
	}
	return "tokens.db"
}

// setDefaults sets default configuration values. Every key is registered so
// AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("instance.url", "")
	v.SetDefault("instance.api_version", referral.DefaultVersion)
	v.SetDefault("instance.program", "")

	v.SetDefault("auth.login_url", "https://login.salesforce.com")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.redirect_url", "")
	v.SetDefault("auth.scopes", []string{"api", "refresh_token"})
	v.SetDefault("auth.access_token", "")
	v.SetDefault("auth.token_store", DefaultTokenStore())

	v.SetDefault("http.timeout", "30s")
	v.SetDefault("batch.concurrency", referral.DefaultConcurrency)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Instance.URL != "" {
		u, err := url.Parse(cfg.Instance.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("instance.url must be an absolute URL: %s", cfg.Instance.URL)
		}
	}

	version, err := referral.NormalizeVersion(cfg.Instance.APIVersion)
	if err != nil {
		return fmt.Errorf("instance.api_version: %w", err)
	}
	cfg.Instance.APIVersion = version

	if cfg.Auth.AccessToken == "" && cfg.Auth.ClientID == "" {
		return fmt.Errorf("either auth.access_token or auth.client_id must be set")
	}

	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}

	if cfg.Batch.Concurrency < 1 || cfg.Batch.Concurrency > referral.MaxConcurrency {
		return fmt.Errorf("batch.concurrency must be between 1 and %d", referral.MaxConcurrency)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
