package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("GITHUB_OWNER", "")
	t.Setenv("GITHUB_REPO", "")
	t.Setenv("TEAM_MEMBERS", "")
	t.Setenv("DEFAULT_DAYS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "PowerShell", cfg.DefaultOwner)
	assert.Equal(t, "PowerShell", cfg.DefaultRepo)
	assert.Equal(t, 7, cfg.DefaultDays)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Empty(t, cfg.TeamMembers)
	require.NoError(t, cfg.Validate())
}

func TestLoadTeamMembersList(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("TEAM_MEMBERS", "alice, bob , ,carol")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, cfg.TeamMembers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing token", func(c *Config) { c.GitHubToken = "" }, "GITHUB_TOKEN"},
		{"days too large", func(c *Config) { c.DefaultDays = 201 }, "DEFAULT_DAYS"},
		{"days zero", func(c *Config) { c.DefaultDays = 0 }, "DEFAULT_DAYS"},
		{"org without slug", func(c *Config) { c.TeamOrg = "osswatch" }, "TEAM_ORG"},
		{"valid", func(c *Config) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{GitHubToken: "token", DefaultDays: 7}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRejectsNonIntegerDays(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("DEFAULT_DAYS", "a week")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_DAYS")
}
