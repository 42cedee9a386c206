package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the repoanalyzer service
type Config struct {
	// Server settings
	Port string
	Host string

	// GitHub settings
	GitHubBaseURL   string
	GitHubToken     string // Personal Access Token
	GitHubAppID     string // GitHub App ID
	GitHubAppKey    string // GitHub App private key
	GitHubInstallID string // GitHub App installation ID

	// Worker pool settings
	MaxWorkers int

	// Rate limiting, in requests per hour
	APIRateLimitThreshold int

	// Timeouts and retries
	FetchTimeoutMS     int
	RetryMaxAttempts   int
	RetryBackoffBaseMS int

	// Sessions
	MaxSessions  int
	SessionTTLMS int

	// Tokenizer model used for prompt estimates
	TokenModel string

	// Observability
	LogLevel    string
	MetricsPath string

	// Development
	Environment string
}

// Load creates a new Config by reading from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Default values
		Port:                  getEnvOrDefault("PORT", "8080"),
		Host:                  getEnvOrDefault("HOST", "0.0.0.0"),
		GitHubBaseURL:         getEnvOrDefault("GITHUB_BASE_URL", "https://api.github.com"),
		MaxWorkers:            getEnvAsIntOrDefault("MAX_WORKERS", 4),
		APIRateLimitThreshold: getEnvAsIntOrDefault("API_RATE_LIMIT_THRESHOLD", 60),
		FetchTimeoutMS:        getEnvAsIntOrDefault("FETCH_TIMEOUT_MS", 30000),
		RetryMaxAttempts:      getEnvAsIntOrDefault("RETRY_MAX_ATTEMPTS", 2),
		RetryBackoffBaseMS:    getEnvAsIntOrDefault("RETRY_BACKOFF_MS_BASE", 500),
		MaxSessions:           getEnvAsIntOrDefault("MAX_SESSIONS", 256),
		SessionTTLMS:          getEnvAsIntOrDefault("SESSION_TTL_MS", 30*60*1000),
		TokenModel:            getEnvOrDefault("TOKEN_MODEL", "gpt-4"),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		MetricsPath:           getEnvOrDefault("METRICS_PATH", "/metrics"),
		Environment:           getEnvOrDefault("ENVIRONMENT", "development"),
	}

	// Optional credentials
	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.GitHubAppID = os.Getenv("GITHUB_APP_ID")
	cfg.GitHubAppKey = os.Getenv("GITHUB_APP_KEY")
	cfg.GitHubInstallID = os.Getenv("GITHUB_INSTALL_ID")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// GitHub App credentials are all-or-nothing
	appFields := 0
	for _, v := range []string{c.GitHubAppID, c.GitHubAppKey, c.GitHubInstallID} {
		if v != "" {
			appFields++
		}
	}
	if appFields != 0 && appFields != 3 {
		return fmt.Errorf("GitHub App credentials (GITHUB_APP_ID, GITHUB_APP_KEY, GITHUB_INSTALL_ID) must be provided together")
	}

	// Validate worker pool settings
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be greater than 0")
	}

	if c.MaxWorkers > 64 {
		return fmt.Errorf("MAX_WORKERS should not exceed 64")
	}

	if c.APIRateLimitThreshold <= 0 {
		return fmt.Errorf("API_RATE_LIMIT_THRESHOLD must be greater than 0")
	}

	// Validate timeouts
	if c.FetchTimeoutMS <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_MS must be greater than 0")
	}

	// Validate retry settings
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be non-negative")
	}

	if c.RetryBackoffBaseMS <= 0 {
		return fmt.Errorf("RETRY_BACKOFF_MS_BASE must be greater than 0")
	}

	// Validate sessions
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be greater than 0")
	}

	if c.SessionTTLMS <= 0 {
		return fmt.Errorf("SESSION_TTL_MS must be greater than 0")
	}

	return nil
}

// GetFetchTimeout returns the fetch timeout as a duration
func (c *Config) GetFetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// GetRetryBackoffBase returns the retry backoff base as a duration
func (c *Config) GetRetryBackoffBase() time.Duration {
	return time.Duration(c.RetryBackoffBaseMS) * time.Millisecond
}

// GetSessionTTL returns the idle session expiry as a duration
func (c *Config) GetSessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMS) * time.Millisecond
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDebug returns true when per-request logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// HasGitHubApp returns true if GitHub App credentials are configured
func (c *Config) HasGitHubApp() bool {
	return c.GitHubAppID != "" && c.GitHubAppKey != "" && c.GitHubInstallID != ""
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
