package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken string

	// Default repository to report on when the request omits one
	DefaultOwner string
	DefaultRepo  string

	// Team roster: either a static comma-separated list of logins or
	// an org/team-slug pair resolved through the GitHub API.
	TeamMembers []string
	TeamOrg     string
	TeamSlug    string

	// Reporting window when no explicit range is given
	DefaultDays int

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string

	// Logging
	LogLevel string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	days, err := strconv.Atoi(getEnv("DEFAULT_DAYS", "7"))
	if err != nil {
		return nil, &ConfigError{Field: "DEFAULT_DAYS", Message: "must be an integer"}
	}

	return &Config{
		GitHubToken:  getEnv("GITHUB_TOKEN", ""),
		DefaultOwner: getEnv("GITHUB_OWNER", "PowerShell"),
		DefaultRepo:  getEnv("GITHUB_REPO", "PowerShell"),
		TeamMembers:  splitList(getEnv("TEAM_MEMBERS", "")),
		TeamOrg:      getEnv("TEAM_ORG", ""),
		TeamSlug:     getEnv("TEAM_SLUG", ""),
		DefaultDays:  days,
		APIPort:      getEnv("API_PORT", "8080"),
		APIHost:      getEnv("API_HOST", "localhost"),
		APIEndpoint:  getEnv("API_ENDPOINT", "http://localhost:8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token is required"}
	}
	if c.DefaultDays < 1 || c.DefaultDays > 200 {
		return &ConfigError{Field: "DEFAULT_DAYS", Message: "must be between 1 and 200"}
	}
	if (c.TeamOrg == "") != (c.TeamSlug == "") {
		return &ConfigError{Field: "TEAM_ORG", Message: "TEAM_ORG and TEAM_SLUG must be set together"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
