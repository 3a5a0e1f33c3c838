package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("HasAirtable requires all three settings", func(t *testing.T) {
		cfg := &Config{AirtableToken: "pat_x", AirtableBaseID: "app_x", AirtableTable: "matches"}
		assert.True(t, cfg.HasAirtable())

		cfg.AirtableBaseID = ""
		assert.False(t, cfg.HasAirtable())
	})

	t.Run("HasStream requires key and secret", func(t *testing.T) {
		cfg := &Config{StreamKey: "key"}
		assert.False(t, cfg.HasStream())

		cfg.StreamSecret = "secret"
		assert.True(t, cfg.HasStream())
	})
}

func TestValidate(t *testing.T) {
	t.Run("fails without any record store", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.Validate(false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "record store")
	})

	t.Run("passes with airtable configured", func(t *testing.T) {
		cfg := &Config{AirtableToken: "pat_x", AirtableBaseID: "app_x", AirtableTable: "matches"}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("passes with postgres configured", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://localhost/matches"}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects short stream secret in production", func(t *testing.T) {
		cfg := &Config{
			DatabaseURL:  "postgres://localhost/matches",
			StreamKey:    "key",
			StreamSecret: "short",
		}
		err := cfg.Validate(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STREAM_SECRET")
	})

	t.Run("rejects known weak secret in production", func(t *testing.T) {
		cfg := &Config{
			DatabaseURL:  "postgres://localhost/matches",
			StreamSecret: "change-me",
		}
		err := cfg.Validate(true)
		require.Error(t, err)
	})

	t.Run("allows short stream secret outside production", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://localhost/matches", StreamSecret: "short"}
		assert.NoError(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "LOG_LEVEL", "APP_ORIGIN", "AIRTABLE_TOKEN", "AIRTABLE_BASE_ID",
		"AIRTABLE_MATCHES_TABLE", "DATABASE_URL", "STREAM_KEY", "STREAM_SECRET",
		"REDIS_URL", "STATE_RATE_LIMIT_PER_MIN",
	}
	originalEnv := make(map[string]string, len(keys))
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
		os.Unsetenv(k)
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "http://localhost:8080", cfg.AppOrigin)
		assert.Equal(t, "matches", cfg.AirtableTable)
		assert.Equal(t, 60, cfg.StateRateLimitPerMin)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("PORT", "3000")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("AIRTABLE_TOKEN", "pat_test")
		os.Setenv("AIRTABLE_BASE_ID", "app_test")
		os.Setenv("STATE_RATE_LIMIT_PER_MIN", "120")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "pat_test", cfg.AirtableToken)
		assert.Equal(t, "app_test", cfg.AirtableBaseID)
		assert.Equal(t, 120, cfg.StateRateLimitPerMin)
	})
}
