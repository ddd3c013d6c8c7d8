package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Key is the well-known key the token is stored under
	Key string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// TokenTTL bounds how long a stored token outlives the login that
	// wrote it. Zero means no expiry; the server rejecting the token is
	// the only authoritative signal either way.
	TokenTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		Key:          "gobang:token",
		PoolSize:     10,
		MinIdleConns: 2,
		TokenTTL:     0,
	}
}
