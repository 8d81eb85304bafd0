package config

import "time"

// Credential and claim lifetimes
const (
	ChatTokenTTL    = time.Hour
	ChatTokenLeeway = 60 * time.Second
	ClaimTTL        = 10 * time.Minute
	ClaimTokenBytes = 8
)

// Session reconnect policy
const ReconnectDelay = 3 * time.Second

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
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Outbound gateway request timeout
const GatewayRequestTimeout = 10 * time.Second

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Default rate limiting
const DefaultRateLimitPerMin = 60
