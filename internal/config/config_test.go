package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.True(t, cfg.Google.ValidateTokens)
	assert.Equal(t, "primary", cfg.Reminders.CalendarID)
	assert.Equal(t, "@default", cfg.Reminders.TaskListID)
	assert.Equal(t, 10, cfg.Reminders.MaxResults)
	assert.Equal(t, "UTC", cfg.Reminders.TimeZone)
	assert.Equal(t, "pillminder.db", cfg.Store.Path)
	assert.Equal(t, "0 7 * * *", cfg.Digest.Schedule)
	assert.Equal(t, 720*time.Hour, cfg.Feed.TTL)
	assert.False(t, cfg.FeedsEnabled())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pillminder.yaml")
	content := `
http:
  addr: ":8181"
reminders:
  time_zone: Europe/Berlin
  max_results: 25
feed:
  secret: s3cret
  ttl: 24h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, ":8181", cfg.HTTP.Addr)
	assert.Equal(t, "Europe/Berlin", cfg.Reminders.TimeZone)
	assert.Equal(t, 25, cfg.Reminders.MaxResults)
	assert.Equal(t, 24*time.Hour, cfg.Feed.TTL)
	assert.True(t, cfg.FeedsEnabled())
	assert.Equal(t, "primary", cfg.Reminders.CalendarID)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pillminder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":8181\"\n"), 0o600))

	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("GOOGLE_CLIENT_ID", "id.apps.googleusercontent.com")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("PILLMINDER_FEED_SECRET", "from-env")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, "id.apps.googleusercontent.com", cfg.Google.ClientID)
	assert.Equal(t, "secret", cfg.Google.ClientSecret)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "from-env", cfg.Feed.Secret)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load(NewViper(), "")
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty addr", mutate: func(c *Config) { c.HTTP.Addr = "" }},
		{name: "zero max results", mutate: func(c *Config) { c.Reminders.MaxResults = 0 }},
		{name: "bad zone", mutate: func(c *Config) { c.Reminders.TimeZone = "Mars/Olympus" }},
		{name: "empty store path", mutate: func(c *Config) { c.Store.Path = "" }},
		{name: "digest without schedule", mutate: func(c *Config) { c.Digest.Enabled = true; c.Digest.Schedule = "" }},
		{name: "feed without ttl", mutate: func(c *Config) { c.Feed.Secret = "x"; c.Feed.TTL = 0 }},
		{name: "client id without secret", mutate: func(c *Config) { c.Google.ClientID = "id" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PILLMINDER_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PILLMINDER_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("PILLMINDER_TEST_DOTENV"))
}
