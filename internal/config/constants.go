package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Purge sweep interval for the Postgres backend. Rows it removes are
// already past the 24h line and read as GONE, so the sweep only reclaims
// storage.
const PurgeSweepInterval = time.Hour

// Identifier generation
const (
	JoinKeyLength       = 28
	MatchIDSuffixLength = 6
)

// State polling contract. Clients start at the base interval, double it
// up to the cap on 429, fall back to the retry interval on other errors,
// and give up after the consecutive-failure threshold.
const (
	PollBaseInterval  = 5 * time.Second
	PollMaxInterval   = 20 * time.Second
	PollRetryInterval = 10 * time.Second
	PollMaxFailures   = 6
)
