package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "password",
}

type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	AppOrigin string `env:"APP_ORIGIN" envDefault:"http://localhost:8080"`

	// Record store. Either the Airtable trio or DATABASE_URL must be set;
	// DATABASE_URL wins when both are present.
	AirtableToken  string `env:"AIRTABLE_TOKEN"`
	AirtableBaseID string `env:"AIRTABLE_BASE_ID"`
	AirtableTable  string `env:"AIRTABLE_MATCHES_TABLE" envDefault:"matches"`
	DatabaseURL    string `env:"DATABASE_URL"`

	// Chat provider. Optional: without it, match lifecycle still works but
	// session token minting returns a configuration error.
	StreamKey    string `env:"STREAM_KEY"`
	StreamSecret string `env:"STREAM_SECRET"`

	// Optional Redis for rate limiting the state polling endpoint.
	RedisURL             string `env:"REDIS_URL"`
	StateRateLimitPerMin int    `env:"STATE_RATE_LIMIT_PER_MIN" envDefault:"60"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) HasPostgres() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasAirtable() bool {
	return c.AirtableToken != "" && c.AirtableBaseID != "" && c.AirtableTable != ""
}

func (c *Config) HasStream() bool {
	return c.StreamKey != "" && c.StreamSecret != ""
}

func (c *Config) Validate(isProduction bool) error {
	if !c.HasPostgres() && !c.HasAirtable() {
		return fmt.Errorf("no record store configured: set DATABASE_URL or AIRTABLE_TOKEN/AIRTABLE_BASE_ID/AIRTABLE_MATCHES_TABLE")
	}

	if isProduction {
		if !c.HasStream() {
			log.Warn().Msg("STREAM_KEY/STREAM_SECRET are empty in production: session token minting disabled")
		}
		if c.StreamSecret != "" {
			if err := validateSecret("STREAM_SECRET", c.StreamSecret); err != nil {
				return err
			}
		}
		if c.RedisURL == "" {
			log.Warn().Msg("REDIS_URL is empty in production: state polling is not rate limited")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
