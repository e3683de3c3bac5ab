// Package config resolves the pillminder configuration.
//
// Precedence is flag > environment > config file > default. Environment
// variables are the upper-cased key with dots replaced by underscores
// (http.addr is HTTP_ADDR). A .env file is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config is the resolved configuration.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Google    GoogleConfig    `mapstructure:"google"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Store     StoreConfig     `mapstructure:"store"`
	Digest    DigestConfig    `mapstructure:"digest"`
	Feed      FeedConfig      `mapstructure:"feed"`
}

type HTTPConfig struct {
	Addr    string `mapstructure:"addr"`
	BaseURL string `mapstructure:"base_url"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// GoogleConfig holds the OAuth client used to refresh cached tokens. Both
// fields are optional; without them cached tokens are used until they expire.
type GoogleConfig struct {
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	ValidateTokens bool   `mapstructure:"validate_tokens"`
}

type RemindersConfig struct {
	CalendarID string `mapstructure:"calendar_id"`
	TaskListID string `mapstructure:"task_list_id"`
	MaxResults int    `mapstructure:"max_results"`
	TimeZone   string `mapstructure:"time_zone"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type DigestConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// FeedConfig configures ICS subscription feeds. Feeds are disabled when
// Secret is empty.
type FeedConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

var defaults = map[string]any{
	"http.addr":              ":8080",
	"http.base_url":          "",
	"metrics.enabled":        false,
	"metrics.addr":           ":9090",
	"google.client_id":       "",
	"google.client_secret":   "",
	"google.validate_tokens": true,
	"reminders.calendar_id":  "primary",
	"reminders.task_list_id": "@default",
	"reminders.max_results":  10,
	"reminders.time_zone":    "UTC",
	"store.path":             "pillminder.db",
	"digest.enabled":         false,
	"digest.schedule":        "0 7 * * *",
	"feed.secret":            "",
	"feed.ttl":               "720h",
}

// envBindings are environment names that do not follow the key mapping.
var envBindings = map[string]string{
	"metrics.enabled": "METRICS_ENABLED",
	"metrics.addr":    "METRICS_ADDR",
	"feed.secret":     "PILLMINDER_FEED_SECRET",
}

// NewViper returns a viper instance with defaults and environment mapping set.
// Callers bind their flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		// BindEnv with an explicit name never fails.
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
	return v
}

// LoadDotEnv loads the first existing file of paths into the environment.
// Variables already set are kept. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := gotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		return nil
	}
	return nil
}

// Load reads configFile (or ./pillminder.yaml when empty and present) into v
// and decodes the result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("pillminder")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr cannot be empty")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr cannot be empty when metrics are enabled")
	}
	if c.Reminders.MaxResults < 1 || c.Reminders.MaxResults > 250 {
		return fmt.Errorf("reminders.max_results must be between 1 and 250, got %d", c.Reminders.MaxResults)
	}
	if _, err := time.LoadLocation(c.Reminders.TimeZone); err != nil {
		return fmt.Errorf("invalid reminders.time_zone %q: %w", c.Reminders.TimeZone, err)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path cannot be empty")
	}
	if c.Digest.Enabled && c.Digest.Schedule == "" {
		return fmt.Errorf("digest.schedule cannot be empty when the digest is enabled")
	}
	if c.Feed.Secret != "" && c.Feed.TTL <= 0 {
		return fmt.Errorf("feed.ttl must be positive, got %s", c.Feed.TTL)
	}
	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		return fmt.Errorf("google.client_id and google.client_secret must be set together")
	}
	return nil
}

// FeedsEnabled reports whether ICS subscription feeds can be issued.
func (c *Config) FeedsEnabled() bool {
	return c.Feed.Secret != ""
}
