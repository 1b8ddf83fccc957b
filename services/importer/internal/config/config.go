// Package config reads importer settings from flags, config.yaml, .env and the
// environment.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stoik/taskbridge/services/importer/internal/destination"
	"github.com/stoik/taskbridge/services/importer/internal/migration"
	"github.com/stoik/taskbridge/services/importer/internal/ratelimit"
)

// Config holds the settings of one importer invocation
type Config struct {
	Env       string
	LogLevel  string
	LogFormat string

	Source       string
	TeamID       string
	SourceToken  string
	SourceAppKey string
	SourceURL    string

	DestinationToken string
	DestinationHost  string

	RateRequests int
	RateWindow   time.Duration
	Timeout      time.Duration

	ReportDatabaseURL string
}

// SetDefaults registers defaults and environment bindings on v. A .env file in
// the working directory is loaded into the process environment first; values
// already set in the environment win over it.
func SetDefaults(v *viper.Viper) {
	_ = godotenv.Load()

	v.SetDefault("env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("rate_limit.requests", ratelimit.DefaultBudget)
	v.SetDefault("rate_limit.window", ratelimit.DefaultWindow)
	v.SetDefault("http.timeout", 30*time.Second)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("custom_api_host", "CUSTOM_API_HOST")
	_ = v.BindEnv("dev_access_token", "DEV_ACCESS_TOKEN")
}

// Load reads every importer key from v
func Load(v *viper.Viper) *Config {
	return &Config{
		Env:       v.GetString("env"),
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),

		Source:       strings.ToLower(strings.TrimSpace(v.GetString("source.type"))),
		TeamID:       v.GetString("team_id"),
		SourceToken:  v.GetString("source.token"),
		SourceAppKey: v.GetString("source.app_key"),
		SourceURL:    v.GetString("source.api_url"),

		DestinationToken: v.GetString("destination.token"),
		DestinationHost:  destination.Host(destinationHost(v), v.GetString("dev_access_token") != ""),

		RateRequests: v.GetInt("rate_limit.requests"),
		RateWindow:   v.GetDuration("rate_limit.window"),
		Timeout:      v.GetDuration("http.timeout"),

		ReportDatabaseURL: v.GetString("report.database_url"),
	}
}

// destinationHost prefers CUSTOM_API_HOST over destination.host from flags,
// DESTINATION_HOST or config.yaml
func destinationHost(v *viper.Viper) string {
	if host := v.GetString("custom_api_host"); host != "" {
		return host
	}
	return v.GetString("destination.host")
}

func (c *Config) Credentials() migration.Credentials {
	return migration.Credentials{
		DestinationToken: c.DestinationToken,
		TeamID:           c.TeamID,
		Token:            c.SourceToken,
		AppKey:           c.SourceAppKey,
	}
}

func (c *Config) RunConfig(logger *zap.Logger) migration.RunConfig {
	return migration.RunConfig{
		DestinationHost: c.DestinationHost,
		SourceURL:       c.SourceURL,
		Timeout:         c.Timeout,
		RateBudget:      c.RateRequests,
		RateWindow:      c.RateWindow,
		Logger:          logger,
	}
}
